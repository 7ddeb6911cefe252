package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

func manualShift(id string, ownerID string, startAt time.Time) *domain.Shift {
	return &domain.Shift{
		ID:             id,
		OwnerID:        ownerID,
		ParticipantIDs: []string{"student_1"},
		Subject:        "历史",
		StartAt:        startAt,
		EndAt:          startAt.Add(time.Hour),
		Status:         domain.ShiftStatusScheduled,
		Origin:         domain.ShiftOriginManual,
	}
}

func TestDedupCancelsManualDuplicate(t *testing.T) {
	st := newSaturdayTemplate()
	startAt := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)

	generated := generatedShift(st, startAt, startAt.Add(time.Hour), st.Version)
	manual := manualShift("manual_1", st.OwnerID, startAt)
	store := newFakeShiftStore(generated, manual)

	mail := &fakeMailPublisher{}
	resolver := NewResolver(store, mail, "admin@example.com")

	report, err := resolver.Run(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// 生成的班次是规范的那一个，手动班次被取消
	require.Equal(t, []string{"manual_1"}, report.CancelledShiftIDs)
	require.Empty(t, report.Conflicts)
	require.Equal(t, domain.ShiftStatusCancelled, store.shifts["manual_1"].Status)
	require.Equal(t, domain.ShiftStatusScheduled, store.shifts[generated.ID].Status)
	require.Empty(t, mail.messages)
}

func TestDedupReportsGeneratedCollision(t *testing.T) {
	startAt := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)

	first := newSaturdayTemplate()
	second := newSaturdayTemplate()
	second.ID = "tpl_other"

	a := generatedShift(first, startAt, startAt.Add(time.Hour), first.Version)
	b := generatedShift(second, startAt, startAt.Add(time.Hour), second.Version)
	store := newFakeShiftStore(a, b)

	mail := &fakeMailPublisher{}
	resolver := NewResolver(store, mail, "admin@example.com")

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	report, err := resolver.Run(now)
	require.NoError(t, err)

	// 两个模板生成的班次碰撞：不自动消解，上报给管理员
	require.Empty(t, report.CancelledShiftIDs)
	require.Len(t, report.Conflicts, 1)

	conflict := report.Conflicts[0]
	require.Equal(t, first.OwnerID, conflict.OwnerID)
	require.Equal(t, startAt, conflict.StartAt)
	require.ElementsMatch(t, []string{a.ID, b.ID}, conflict.ShiftIDs)

	require.Equal(t, domain.ShiftStatusScheduled, store.shifts[a.ID].Status)
	require.Equal(t, domain.ShiftStatusScheduled, store.shifts[b.ID].Status)

	require.Len(t, mail.messages, 1)
	require.Equal(t, "conflict_report", mail.messages[0].Type)
	require.Equal(t, "admin@example.com", mail.messages[0].To)
}

func TestDedupReportsManualOnlyDuplicates(t *testing.T) {
	startAt := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)

	a := manualShift("manual_a", "teacher_1", startAt)
	b := manualShift("manual_b", "teacher_1", startAt)
	store := newFakeShiftStore(a, b)

	resolver := NewResolver(store, nil, "")
	report, err := resolver.Run(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// 没有生成班次背书，无法判断哪个是规范的，只上报
	require.Empty(t, report.CancelledShiftIDs)
	require.Len(t, report.Conflicts, 1)
	require.Equal(t, []string{"manual_a", "manual_b"}, report.Conflicts[0].ShiftIDs)
}

func TestDedupIgnoresDistinctSlots(t *testing.T) {
	st := newSaturdayTemplate()
	startAt := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)

	generated := generatedShift(st, startAt, startAt.Add(time.Hour), st.Version)
	// 同一个老师，不同的开始时刻
	other := manualShift("manual_1", st.OwnerID, startAt.Add(2*time.Hour))
	// 同一个开始时刻，不同的老师
	another := manualShift("manual_2", "teacher_2", startAt)
	store := newFakeShiftStore(generated, other, another)

	resolver := NewResolver(store, nil, "")
	report, err := resolver.Run(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Empty(t, report.CancelledShiftIDs)
	require.Empty(t, report.Conflicts)
}

func TestDedupIsIdempotent(t *testing.T) {
	st := newSaturdayTemplate()
	startAt := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)

	generated := generatedShift(st, startAt, startAt.Add(time.Hour), st.Version)
	manual := manualShift("manual_1", st.OwnerID, startAt)
	store := newFakeShiftStore(generated, manual)

	resolver := NewResolver(store, nil, "")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := resolver.Run(now)
	require.NoError(t, err)

	// 已取消的班次不再参与分组，第二次运行什么都不做
	report, err := resolver.Run(now)
	require.NoError(t, err)
	require.Empty(t, report.CancelledShiftIDs)
	require.Empty(t, report.Conflicts)
}
