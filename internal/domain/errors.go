package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound 表示传播时引用的模板、老师或学生已经不存在，
// 对应的班次保持原样不动，只记录日志。
var ErrNotFound = errors.New("引用的记录不存在")

// ValidationError 表示模板在写入时违反了不变式。
// 校验只发生在写入路径上，生成器永远不会看到非法的激活模板。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError 表示两个模板生成的班次在同一 (老师, 开始时刻) 上碰撞。
// 这是模板层面的排班冲突而不是数据错误，所以交给人工处理而不自动修复。
type ConflictError struct {
	OwnerID  string
	StartAt  time.Time
	ShiftIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("老师 %s 在 %s 存在多个模板生成的班次: %s",
		e.OwnerID, e.StartAt.UTC().Format(time.RFC3339), strings.Join(e.ShiftIDs, ", "))
}
