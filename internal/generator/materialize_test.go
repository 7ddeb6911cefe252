package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

func TestMaterializeCreatesShift(t *testing.T) {
	st := newWeekendTemplate()
	st.Version = 3
	store := newFakeShiftStore()
	publisher := &fakeProvisionPublisher{}
	m := NewMaterializer(store, publisher)

	occ := Occurrence{
		StartAt: time.Date(2026, 1, 3, 15, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 1, 3, 17, 0, 0, 0, time.UTC),
	}

	shift, created, err := m.Materialize(st, occ)
	require.NoError(t, err)
	require.True(t, created)

	require.Equal(t, GeneratedShiftID(st.ID, occ.StartAt), shift.ID)
	require.NotNil(t, shift.TemplateID)
	require.Equal(t, st.ID, *shift.TemplateID)
	require.Equal(t, st.OwnerID, shift.OwnerID)
	require.Equal(t, st.ParticipantIDs, shift.ParticipantIDs)
	require.Equal(t, st.Subject, shift.Subject)
	require.Equal(t, domain.ShiftStatusScheduled, shift.Status)
	require.Equal(t, domain.ShiftOriginGenerated, shift.Origin)
	require.Equal(t, st.Version, shift.TemplateVersion)

	// 新班次触发一次会议室开通任务
	require.Len(t, publisher.tasks, 1)
	require.Equal(t, shift.ID, publisher.tasks[0].ShiftID)
}

func TestMaterializeIsIdempotent(t *testing.T) {
	st := newWeekendTemplate()
	store := newFakeShiftStore()
	publisher := &fakeProvisionPublisher{}
	m := NewMaterializer(store, publisher)

	occ := Occurrence{
		StartAt: time.Date(2026, 1, 3, 15, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 1, 3, 17, 0, 0, 0, time.UTC),
	}

	_, created, err := m.Materialize(st, occ)
	require.NoError(t, err)
	require.True(t, created)

	// 第二次物化同一个时刻：不产生新记录，也不重复开通
	_, created, err = m.Materialize(st, occ)
	require.NoError(t, err)
	require.False(t, created)
	require.Len(t, store.shifts, 1)
	require.Len(t, publisher.tasks, 1)
}

func TestMaterializeSnapshotIsDetached(t *testing.T) {
	st := newWeekendTemplate()
	store := newFakeShiftStore()
	m := NewMaterializer(store, nil)

	occ := Occurrence{
		StartAt: time.Date(2026, 1, 3, 15, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 1, 3, 17, 0, 0, 0, time.UTC),
	}

	shift, _, err := m.Materialize(st, occ)
	require.NoError(t, err)

	// 之后对模板切片的修改不应该影响已经生成的班次
	st.ParticipantIDs[0] = "someone_else"
	require.Equal(t, []string{"student_1"}, shift.ParticipantIDs)
}
