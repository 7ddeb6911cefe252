package generator

import (
	"log/slog"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/queue"
)

// Materializer 把候选时刻变成持久化的班次记录。
// 写入用 create-if-absent 语义，重复调用不会产生第二条记录。
type Materializer struct {
	shifts    ShiftStore
	publisher ProvisionPublisher // 可以为 nil，此时跳过会议室开通
}

func NewMaterializer(shifts ShiftStore, publisher ProvisionPublisher) *Materializer {
	return &Materializer{
		shifts:    shifts,
		publisher: publisher,
	}
}

// Materialize 物化一个候选时刻。班次不存在时插入并返回 created = true，
// 已存在时什么都不做。负责人、参与者和科目是生成那一刻的模板快照，
// 之后的模板编辑不会追溯地改动已经成为历史的班次。
func (m *Materializer) Materialize(st *domain.ShiftTemplate, occ Occurrence) (*domain.Shift, bool, error) {
	templateID := st.ID
	participantIDs := make([]string, len(st.ParticipantIDs))
	copy(participantIDs, st.ParticipantIDs)

	shift := &domain.Shift{
		ID:              GeneratedShiftID(st.ID, occ.StartAt),
		TemplateID:      &templateID,
		OwnerID:         st.OwnerID,
		ParticipantIDs:  participantIDs,
		Subject:         st.Subject,
		StartAt:         occ.StartAt,
		EndAt:           occ.EndAt,
		Status:          domain.ShiftStatusScheduled,
		Origin:          domain.ShiftOriginGenerated,
		TemplateVersion: st.Version,
	}

	created, err := m.shifts.CreateShiftIfAbsent(shift)
	if err != nil {
		return nil, false, err
	}

	if created && m.publisher != nil {
		task := queue.ProvisionTask{
			ShiftID:        shift.ID,
			StartAt:        shift.StartAt,
			EndAt:          shift.EndAt,
			ParticipantIDs: shift.ParticipantIDs,
		}
		if err := m.publisher.PublishProvisionTask(task); err != nil {
			// 开通是可重试的后续动作，失败不回滚已经创建的班次
			slog.Error("无法发布会议室开通任务", "shiftID", shift.ID, "error", err)
		}
	}

	return shift, created, nil
}
