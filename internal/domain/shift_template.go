package domain

import (
	"time"
)

// ShiftTemplate 是可复用的循环班次定义，
// 生成器根据它在滚动时间窗口内物化出具体的教学班次。
type ShiftTemplate struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerID"`        // 负责老师
	ParticipantIDs []string  `json:"participantIDs"` // 参与学生
	Weekdays       []int32   `json:"weekdays"`       // ISO 星期，1 = 周一，7 = 周日
	LocalStartTime string    `json:"localStartTime"` // HH:mm，模板时区下的当地时间
	LocalEndTime   string    `json:"localEndTime"`   // HH:mm，必须晚于 LocalStartTime（不支持跨午夜）
	Timezone       string    `json:"timezone"`       // IANA 时区名
	HorizonDays    int32     `json:"horizonDays"`    // 提前生成多少天的班次
	ExcludedDates  []string  `json:"excludedDates"`  // YYYY-MM-DD，模板时区下的日历日期
	Subject        string    `json:"subject"`
	Note           string    `json:"note"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
	Version        int32     `json:"-"`
}

const (
	// LocalTimeLayout 是模板中当地时间的格式
	LocalTimeLayout = "15:04"
	// LocalDateLayout 是排除日期的格式
	LocalDateLayout = "2006-01-02"
)
