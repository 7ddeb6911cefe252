package generator

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/queue"
)

// 生成引擎只依赖存储的这一小部分能力，*repository.Repository 实现了它们。
// 模板库和班次库是唯一的共享可变状态，引擎自身不在多次运行之间缓存
// 任何可能和库里数据产生分歧的东西。

type TemplateStore interface {
	GetActiveShiftTemplates() ([]*domain.ShiftTemplate, error)
	// GetInactiveShiftTemplatesWithFutureShifts 返回已停用但还挂着
	// 未来 scheduled 生成班次的模板，调度器据此补上漏掉的取消。
	GetInactiveShiftTemplatesWithFutureShifts(now time.Time) ([]*domain.ShiftTemplate, error)
}

type ShiftStore interface {
	CreateShiftIfAbsent(s *domain.Shift) (bool, error)
	GetFutureScheduledGeneratedShifts(templateID string, now time.Time) ([]*domain.Shift, error)
	GetScheduledShifts() ([]*domain.Shift, error)
	RescheduleShift(oldID string, newID string, startAt time.Time, endAt time.Time, templateVersion int32) error
	UpdateShiftSnapshot(id string, ownerID string, participantIDs []string, subject string, templateVersion int32) error
	CancelShift(id string) error
	DeleteShift(id string) error
}

type UserStore interface {
	FindMissingUsers(ids []string) ([]string, error)
}

type ProvisionPublisher interface {
	PublishProvisionTask(task queue.ProvisionTask) error
}

type MailPublisher interface {
	PublishMailMessage(msg domain.MailMessage) error
}
