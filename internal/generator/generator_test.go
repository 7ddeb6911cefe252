package generator

import (
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/queue"
)

// fakeShiftStore 是内存版的班次存储，语义和 repository 的实现保持一致。
type fakeShiftStore struct {
	shifts map[string]*domain.Shift
}

func newFakeShiftStore(shifts ...*domain.Shift) *fakeShiftStore {
	store := &fakeShiftStore{shifts: make(map[string]*domain.Shift)}
	for _, s := range shifts {
		store.shifts[s.ID] = cloneShift(s)
	}
	return store
}

func cloneShift(s *domain.Shift) *domain.Shift {
	clone := *s
	clone.ParticipantIDs = append([]string(nil), s.ParticipantIDs...)
	return &clone
}

func (f *fakeShiftStore) CreateShiftIfAbsent(s *domain.Shift) (bool, error) {
	if _, ok := f.shifts[s.ID]; ok {
		return false, nil
	}
	f.shifts[s.ID] = cloneShift(s)
	return true, nil
}

func (f *fakeShiftStore) GetFutureScheduledGeneratedShifts(templateID string, now time.Time) ([]*domain.Shift, error) {
	result := make([]*domain.Shift, 0)
	for _, s := range f.shifts {
		if s.Origin != domain.ShiftOriginGenerated || s.TemplateID == nil || *s.TemplateID != templateID {
			continue
		}
		if !s.IsFutureScheduled(now) {
			continue
		}
		result = append(result, cloneShift(s))
	}
	return result, nil
}

func (f *fakeShiftStore) GetScheduledShifts() ([]*domain.Shift, error) {
	result := make([]*domain.Shift, 0)
	for _, s := range f.shifts {
		if s.Status == domain.ShiftStatusScheduled {
			result = append(result, cloneShift(s))
		}
	}
	return result, nil
}

func (f *fakeShiftStore) RescheduleShift(oldID string, newID string, startAt time.Time, endAt time.Time, templateVersion int32) error {
	s, ok := f.shifts[oldID]
	if !ok {
		return errors.New("班次不存在: " + oldID)
	}
	delete(f.shifts, oldID)
	s.ID = newID
	s.StartAt = startAt
	s.EndAt = endAt
	s.TemplateVersion = templateVersion
	f.shifts[newID] = s
	return nil
}

func (f *fakeShiftStore) UpdateShiftSnapshot(id string, ownerID string, participantIDs []string, subject string, templateVersion int32) error {
	s, ok := f.shifts[id]
	if !ok {
		return errors.New("班次不存在: " + id)
	}
	s.OwnerID = ownerID
	s.ParticipantIDs = append([]string(nil), participantIDs...)
	s.Subject = subject
	s.TemplateVersion = templateVersion
	return nil
}

func (f *fakeShiftStore) CancelShift(id string) error {
	s, ok := f.shifts[id]
	if !ok {
		return errors.New("班次不存在: " + id)
	}
	if s.Status != domain.ShiftStatusScheduled {
		return errors.New("只有待上课的班次可以取消")
	}
	s.Status = domain.ShiftStatusCancelled
	return nil
}

func (f *fakeShiftStore) DeleteShift(id string) error {
	delete(f.shifts, id)
	return nil
}

type fakeUserStore struct {
	missing []string
}

func (f *fakeUserStore) FindMissingUsers(ids []string) ([]string, error) {
	result := make([]string, 0)
	for _, id := range ids {
		for _, m := range f.missing {
			if id == m {
				result = append(result, id)
			}
		}
	}
	return result, nil
}

type fakeProvisionPublisher struct {
	tasks []queue.ProvisionTask
}

func (f *fakeProvisionPublisher) PublishProvisionTask(task queue.ProvisionTask) error {
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeMailPublisher struct {
	messages []domain.MailMessage
}

func (f *fakeMailPublisher) PublishMailMessage(msg domain.MailMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}
