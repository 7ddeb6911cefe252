package domain

import (
	"time"
)

type ShiftStatus string

const (
	ShiftStatusScheduled  ShiftStatus = "scheduled"
	ShiftStatusInProgress ShiftStatus = "inProgress"
	ShiftStatusCompleted  ShiftStatus = "completed"
	ShiftStatusMissed     ShiftStatus = "missed"
	ShiftStatusCancelled  ShiftStatus = "cancelled"
)

type ShiftOrigin string

const (
	ShiftOriginGenerated ShiftOrigin = "generated"
	ShiftOriginManual    ShiftOrigin = "manual"
)

// Shift 是一节具体的教学班次。
// 模板生成的班次的 ID 由 (模板 ID, 开始时刻) 确定性地导出，
// 手动创建的班次的 ID 独立分配，TemplateID 为空。
type Shift struct {
	ID             string      `json:"id"`
	TemplateID     *string     `json:"templateID"` // 为空表示独立/历史遗留班次
	OwnerID        string      `json:"ownerID"`
	ParticipantIDs []string    `json:"participantIDs"` // 生成时从模板复制的快照，不随模板实时变化
	Subject        string      `json:"subject"`
	StartAt        time.Time   `json:"startAt"` // UTC
	EndAt          time.Time   `json:"endAt"`   // UTC
	Status         ShiftStatus `json:"status"`
	Origin         ShiftOrigin `json:"origin"`
	// TemplateVersion 记录生成或上次传播时模板的版本号，
	// 传播器用它来判断快照是否已经过期。
	TemplateVersion int32     `json:"-"`
	RoomHandle      *string   `json:"roomHandle"` // 会议室开通后回填的句柄
	Note            string    `json:"note"`
	CreatedAt       time.Time `json:"createdAt"`
	LastModifiedAt  time.Time `json:"lastModifiedAt"`
	Version         int32     `json:"-"`
}

// IsFutureScheduled 判断班次是否还没开始且仍处于待上课状态，
// 只有这样的班次才允许被模板编辑传播修改。
func (s *Shift) IsFutureScheduled(now time.Time) bool {
	return s.Status == ShiftStatusScheduled && s.StartAt.After(now)
}
