package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

func TestGenerateRandomWeekdays(t *testing.T) {
	for i := 0; i < 100; i++ {
		weekdays := GenerateRandomWeekdays()
		require.NotEmpty(t, weekdays)
		require.LessOrEqual(t, len(weekdays), 3)

		seen := make(map[int32]bool)
		for _, weekday := range weekdays {
			require.GreaterOrEqual(t, weekday, int32(1))
			require.LessOrEqual(t, weekday, int32(7))
			require.False(t, seen[weekday])
			seen[weekday] = true
		}
	}
}

func TestGenerateRandomShiftTemplateIsValid(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	timezones := []string{"Asia/Riyadh", "Asia/Shanghai", "America/New_York"}

	// 随机生成的模板必须能通过写入路径上的校验
	for i := 0; i < 100; i++ {
		st := GenerateRandomShiftTemplate("teacher_1", []string{"student_1"}, timezones)
		require.NoError(t, ValidateShiftTemplate(st, now))
	}
}

func TestGenerateRandomUser(t *testing.T) {
	user := GenerateRandomUser(domain.RoleStudent, "example.com", nil)
	require.NotEmpty(t, user.FullName)
	require.Contains(t, user.Email, "@example.com")
	require.Equal(t, domain.RoleStudent, user.Role)
	require.Equal(t, "UTC", user.Timezone)
	require.True(t, user.IsActive)
}
