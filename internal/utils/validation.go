package utils

import (
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

// ValidateShiftTemplate 在写入路径上检查模板的不变式。
// 校验失败返回 *domain.ValidationError；通过校验的模板
// 才允许进入存储，生成器因此永远不会看到非法的激活模板。
//
// now 用来检查排除日期有没有把接下来整个生成窗口都压住——
// 老系统里出现过排除字段被填反导致模板静默地什么都不生成的情况，
// 这里在写入时直接拒绝，而不是替用户猜测本意。
func ValidateShiftTemplate(st *domain.ShiftTemplate, now time.Time) error {
	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		return &domain.ValidationError{Field: "timezone", Reason: "未知的时区 " + st.Timezone}
	}

	startTime, err := time.Parse(domain.LocalTimeLayout, st.LocalStartTime)
	if err != nil {
		return &domain.ValidationError{Field: "localStartTime", Reason: "时间格式错误，应为 HH:mm"}
	}
	endTime, err := time.Parse(domain.LocalTimeLayout, st.LocalEndTime)
	if err != nil {
		return &domain.ValidationError{Field: "localEndTime", Reason: "时间格式错误，应为 HH:mm"}
	}
	if !endTime.After(startTime) {
		// 不支持跨午夜的班次
		return &domain.ValidationError{Field: "localEndTime", Reason: "结束时间必须晚于开始时间"}
	}

	if st.HorizonDays < 1 {
		return &domain.ValidationError{Field: "horizonDays", Reason: "生成窗口至少为 1 天"}
	}

	if st.OwnerID == "" {
		return &domain.ValidationError{Field: "ownerID", Reason: "必须指定负责老师"}
	}
	if len(st.ParticipantIDs) == 0 {
		return &domain.ValidationError{Field: "participantIDs", Reason: "参与学生不能为空"}
	}
	seenParticipants := make(map[string]bool)
	for _, id := range st.ParticipantIDs {
		if seenParticipants[id] {
			return &domain.ValidationError{Field: "participantIDs", Reason: "参与学生重复: " + id}
		}
		seenParticipants[id] = true
	}

	seenWeekdays := make(map[int32]bool)
	for _, weekday := range st.Weekdays {
		if weekday < 1 || weekday > 7 {
			return &domain.ValidationError{Field: "weekdays", Reason: "星期必须在 1 到 7 之间"}
		}
		if seenWeekdays[weekday] {
			return &domain.ValidationError{Field: "weekdays", Reason: "星期重复"}
		}
		seenWeekdays[weekday] = true
	}

	excluded := make(map[string]bool, len(st.ExcludedDates))
	for _, excludedDate := range st.ExcludedDates {
		if _, err := time.ParseInLocation(domain.LocalDateLayout, excludedDate, loc); err != nil {
			return &domain.ValidationError{Field: "excludedDates", Reason: "日期格式错误，应为 YYYY-MM-DD: " + excludedDate}
		}
		excluded[excludedDate] = true
	}

	if !st.IsActive {
		// 未激活的模板什么都不生成，剩下的检查只对激活模板有意义
		return nil
	}

	if len(st.Weekdays) == 0 {
		return &domain.ValidationError{Field: "weekdays", Reason: "激活的模板必须至少选择一个星期"}
	}

	// 没有排除日期的模板永远不会被压住：窗口相位暂时没碰到
	// 选中的星期不是配置错误，窗口滚过去自然会生成
	if len(st.ExcludedDates) == 0 {
		return nil
	}

	// 检查的窗口向上对齐到整周，保证每个选中的星期至少被看一次，
	// 短窗口的相位不会误杀合法模板；对齐后仍然一个可生成日期
	// 都不剩，才说明排除日期把整个窗口压住了
	scanDays := st.HorizonDays
	if rem := scanDays % 7; rem != 0 {
		scanDays += 7 - rem
	}

	day := now.In(loc)
	generatable := false
	for i := int32(0); i < scanDays; i++ {
		if seenWeekdays[isoWeekdayOf(day)] && !excluded[day.Format(domain.LocalDateLayout)] {
			generatable = true
			break
		}
		day = day.AddDate(0, 0, 1)
	}
	if !generatable {
		return &domain.ValidationError{Field: "excludedDates", Reason: "排除日期覆盖了整个生成窗口，模板将什么都不生成"}
	}

	return nil
}

// isoWeekdayOf 返回 ISO 星期，1 = 周一，7 = 周日
func isoWeekdayOf(t time.Time) int32 {
	weekday := int32(t.Weekday())
	if weekday == 0 {
		return 7
	}
	return weekday
}
