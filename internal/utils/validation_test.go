package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

func newValidTemplate() *domain.ShiftTemplate {
	return &domain.ShiftTemplate{
		ID:             "tpl_1",
		OwnerID:        "teacher_1",
		ParticipantIDs: []string{"student_1", "student_2"},
		Weekdays:       []int32{2, 4},
		LocalStartTime: "09:00",
		LocalEndTime:   "10:30",
		Timezone:       "Asia/Shanghai",
		HorizonDays:    10,
		Subject:        "数学",
		IsActive:       true,
	}
}

func TestValidateShiftTemplate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ValidateShiftTemplate(newValidTemplate(), now))

	tests := []struct {
		name   string
		mutate func(st *domain.ShiftTemplate)
		field  string
	}{
		{
			name:   "未知时区",
			mutate: func(st *domain.ShiftTemplate) { st.Timezone = "Mars/Olympus_Mons" },
			field:  "timezone",
		},
		{
			name:   "开始时间格式错误",
			mutate: func(st *domain.ShiftTemplate) { st.LocalStartTime = "9am" },
			field:  "localStartTime",
		},
		{
			name:   "结束时间早于开始时间",
			mutate: func(st *domain.ShiftTemplate) { st.LocalEndTime = "08:00" },
			field:  "localEndTime",
		},
		{
			name:   "结束时间等于开始时间",
			mutate: func(st *domain.ShiftTemplate) { st.LocalEndTime = st.LocalStartTime },
			field:  "localEndTime",
		},
		{
			name:   "生成窗口为零",
			mutate: func(st *domain.ShiftTemplate) { st.HorizonDays = 0 },
			field:  "horizonDays",
		},
		{
			name:   "缺少负责老师",
			mutate: func(st *domain.ShiftTemplate) { st.OwnerID = "" },
			field:  "ownerID",
		},
		{
			name:   "参与学生为空",
			mutate: func(st *domain.ShiftTemplate) { st.ParticipantIDs = nil },
			field:  "participantIDs",
		},
		{
			name:   "参与学生重复",
			mutate: func(st *domain.ShiftTemplate) { st.ParticipantIDs = []string{"student_1", "student_1"} },
			field:  "participantIDs",
		},
		{
			name:   "星期越界",
			mutate: func(st *domain.ShiftTemplate) { st.Weekdays = []int32{0, 3} },
			field:  "weekdays",
		},
		{
			name:   "星期重复",
			mutate: func(st *domain.ShiftTemplate) { st.Weekdays = []int32{3, 3} },
			field:  "weekdays",
		},
		{
			name:   "激活的模板没有选择星期",
			mutate: func(st *domain.ShiftTemplate) { st.Weekdays = nil },
			field:  "weekdays",
		},
		{
			name:   "排除日期格式错误",
			mutate: func(st *domain.ShiftTemplate) { st.ExcludedDates = []string{"01/03/2026"} },
			field:  "excludedDates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newValidTemplate()
			tt.mutate(st)

			err := ValidateShiftTemplate(st, now)
			require.Error(t, err)

			var validationErr *domain.ValidationError
			require.True(t, errors.As(err, &validationErr))
			require.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestValidateRejectsBlanketExclusion(t *testing.T) {
	// 2026-01-01 是周四。只在周六上课、窗口 7 天的模板，
	// 窗口内唯一能生成的日期是 1 月 3 日，把它排除后模板什么都生成不了。
	st := newValidTemplate()
	st.Timezone = "UTC"
	st.Weekdays = []int32{6}
	st.HorizonDays = 7
	st.ExcludedDates = []string{"2026-01-03"}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := ValidateShiftTemplate(st, now)
	require.Error(t, err)

	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, "excludedDates", validationErr.Field)

	// 窗口内还剩别的可生成日期时，同样的排除是允许的
	st.HorizonDays = 14
	require.NoError(t, ValidateShiftTemplate(st, now))
}

func TestValidateAllowsWeekdayOutsideShortWindow(t *testing.T) {
	// 2026-01-05 是周一。只在周六上课、窗口 2 天、没有任何排除日期的
	// 模板此刻的窗口还没滚到周六，但这不是配置错误：
	// 窗口滚过去之后自然会生成
	st := newValidTemplate()
	st.Timezone = "UTC"
	st.Weekdays = []int32{6}
	st.HorizonDays = 2

	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ValidateShiftTemplate(st, now))

	// 有排除日期时按整周对齐检查：对齐后的窗口里唯一的周六被排除，拒绝
	st.ExcludedDates = []string{"2026-01-10"}
	err := ValidateShiftTemplate(st, now)
	require.Error(t, err)

	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, "excludedDates", validationErr.Field)

	// 排除的日期落在检查窗口之外时不影响模板
	st.ExcludedDates = []string{"2026-03-07"}
	require.NoError(t, ValidateShiftTemplate(st, now))
}

func TestValidateInactiveTemplateSkipsGenerationChecks(t *testing.T) {
	// 未激活的模板允许暂时没有星期，激活时才要求完整
	st := newValidTemplate()
	st.IsActive = false
	st.Weekdays = nil

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ValidateShiftTemplate(st, now))
}
