package generator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GeneratedShiftID 由 (模板 ID, 开始时刻) 确定性地导出班次 ID。
// 同一模板下不同的开始时刻必然产生不同的 ID，唯一性由构造保证而不靠锁，
// 这也是 CreateShiftIfAbsent 能等价于"恰好创建一次"的原因。
func GeneratedShiftID(templateID string, startAt time.Time) string {
	return fmt.Sprintf("tpl_%s_%d", templateID, startAt.Unix())
}

// NewManualShiftID 为手动创建的班次分配独立的 ID。
func NewManualShiftID() string {
	return uuid.NewString()
}
