package domain

import "time"

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

// ConflictReportMailData 是发送给管理员的排班冲突报告，
// 多个模板在同一 (老师, 开始时刻) 上生成班次时需要人工处理。
type ConflictReportMailData struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Conflicts   []ConflictMailItem `json:"conflicts"`
}

type ConflictMailItem struct {
	OwnerID  string    `json:"ownerID"`
	StartAt  time.Time `json:"startAt"`
	ShiftIDs []string  `json:"shiftIDs"`
}
