package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

// newSaturdayTemplate 返回一个每周六 10:00-11:00 (UTC) 的模板。
func newSaturdayTemplate() *domain.ShiftTemplate {
	return &domain.ShiftTemplate{
		ID:             "tpl_sat",
		OwnerID:        "teacher_1",
		ParticipantIDs: []string{"student_1", "student_2"},
		Weekdays:       []int32{6},
		LocalStartTime: "10:00",
		LocalEndTime:   "11:00",
		Timezone:       "UTC",
		HorizonDays:    7,
		Subject:        "物理",
		IsActive:       true,
		Version:        2,
	}
}

func generatedShift(st *domain.ShiftTemplate, startAt time.Time, endAt time.Time, version int32) *domain.Shift {
	templateID := st.ID
	return &domain.Shift{
		ID:              GeneratedShiftID(st.ID, startAt),
		TemplateID:      &templateID,
		OwnerID:         st.OwnerID,
		ParticipantIDs:  append([]string(nil), st.ParticipantIDs...),
		Subject:         st.Subject,
		StartAt:         startAt,
		EndAt:           endAt,
		Status:          domain.ShiftStatusScheduled,
		Origin:          domain.ShiftOriginGenerated,
		TemplateVersion: version,
	}
}

func TestPropagateSkipsWhenUpToDate(t *testing.T) {
	st := newSaturdayTemplate()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// 班次快照已经是当前版本，但内容和模板不一致，
	// 传播器应该连看都不看一眼
	existing := generatedShift(st,
		time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 11, 0, 0, 0, time.UTC),
		st.Version,
	)
	existing.Subject = "旧科目"
	store := newFakeShiftStore(existing)

	p := NewPropagator(store, &fakeUserStore{}, 10)
	require.NoError(t, p.Propagate(st, now))

	require.Equal(t, "旧科目", store.shifts[existing.ID].Subject)
}

func TestPropagateReschedulesTimeChange(t *testing.T) {
	st := newSaturdayTemplate()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// 模板已经改成 10:00，库里的班次还停留在老版本的 09:00
	oldStart := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	existing := generatedShift(st, oldStart, oldStart.Add(time.Hour), st.Version-1)
	existing.Note = "学生请假过一次"
	store := newFakeShiftStore(existing)

	p := NewPropagator(store, &fakeUserStore{}, 10)
	require.NoError(t, p.Propagate(st, now))

	newStart := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	newID := GeneratedShiftID(st.ID, newStart)

	require.NotContains(t, store.shifts, existing.ID)
	require.Contains(t, store.shifts, newID)

	updated := store.shifts[newID]
	require.Equal(t, newStart, updated.StartAt)
	require.Equal(t, newStart.Add(time.Hour), updated.EndAt)
	require.Equal(t, st.Version, updated.TemplateVersion)
	// 原地更新：和模板无关的字段原样保留
	require.Equal(t, "学生请假过一次", updated.Note)
}

func TestPropagateRefreshesSnapshot(t *testing.T) {
	st := newSaturdayTemplate()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	startAt := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	existing := generatedShift(st, startAt, startAt.Add(time.Hour), st.Version-1)
	existing.ParticipantIDs = []string{"student_1"}
	existing.Subject = "旧科目"
	store := newFakeShiftStore(existing)

	p := NewPropagator(store, &fakeUserStore{}, 10)
	require.NoError(t, p.Propagate(st, now))

	// 日期和时刻都没变，只有快照需要刷新
	updated := store.shifts[existing.ID]
	require.Equal(t, st.ParticipantIDs, updated.ParticipantIDs)
	require.Equal(t, st.Subject, updated.Subject)
	require.Equal(t, st.Version, updated.TemplateVersion)
}

func TestPropagateDeletesDroppedDates(t *testing.T) {
	st := newSaturdayTemplate()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// 模板已经改成只有周六，这个周日的班次来自老版本
	sunStart := time.Date(2026, 1, 4, 10, 0, 0, 0, time.UTC)
	sunday := generatedShift(st, sunStart, sunStart.Add(time.Hour), st.Version-1)
	store := newFakeShiftStore(sunday)

	p := NewPropagator(store, &fakeUserStore{}, 10)
	require.NoError(t, p.Propagate(st, now))

	require.NotContains(t, store.shifts, sunday.ID)
}

func TestPropagateLeavesStartedShiftsAlone(t *testing.T) {
	st := newSaturdayTemplate()

	// now 在班次开始之后，这个班次已经不属于"未来"
	startAt := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	started := generatedShift(st, startAt, startAt.Add(time.Hour), st.Version-1)
	started.Status = domain.ShiftStatusInProgress
	store := newFakeShiftStore(started)

	now := time.Date(2026, 1, 3, 9, 30, 0, 0, time.UTC)
	p := NewPropagator(store, &fakeUserStore{}, 10)
	require.NoError(t, p.Propagate(st, now))

	untouched := store.shifts[started.ID]
	require.Equal(t, startAt, untouched.StartAt)
	require.Equal(t, st.Version-1, untouched.TemplateVersion)
}

func TestPropagateCancelsOnDeactivation(t *testing.T) {
	st := newSaturdayTemplate()
	st.IsActive = false
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	startAt := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	future := generatedShift(st, startAt, startAt.Add(time.Hour), st.Version)

	pastStart := time.Date(2025, 12, 27, 10, 0, 0, 0, time.UTC)
	past := generatedShift(st, pastStart, pastStart.Add(time.Hour), st.Version)
	past.Status = domain.ShiftStatusCompleted

	store := newFakeShiftStore(future, past)

	p := NewPropagator(store, &fakeUserStore{}, 10)
	require.NoError(t, p.Propagate(st, now))

	// 未来的班次被取消而不是删除，历史班次原样保留
	require.Equal(t, domain.ShiftStatusCancelled, store.shifts[future.ID].Status)
	require.Equal(t, domain.ShiftStatusCompleted, store.shifts[past.ID].Status)
}

func TestPropagateRejectsMissingUsers(t *testing.T) {
	st := newSaturdayTemplate()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	startAt := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	existing := generatedShift(st, startAt, startAt.Add(time.Hour), st.Version-1)
	store := newFakeShiftStore(existing)

	p := NewPropagator(store, &fakeUserStore{missing: []string{"student_2"}}, 10)
	err := p.Propagate(st, now)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// 引用失效时班次保持原样
	require.Contains(t, store.shifts, existing.ID)
	require.Equal(t, startAt, store.shifts[existing.ID].StartAt)
}
