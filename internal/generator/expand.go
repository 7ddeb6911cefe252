package generator

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

// Occurrence 是展开循环规则得到的一个候选班次时刻，均为 UTC。
type Occurrence struct {
	StartAt time.Time
	EndAt   time.Time
}

// isoWeekday 把 ISO 星期 (1 = 周一) 映射到 rrule 的星期
var isoWeekday = map[int32]rrule.Weekday{
	1: rrule.MO,
	2: rrule.TU,
	3: rrule.WE,
	4: rrule.TH,
	5: rrule.FR,
	6: rrule.SA,
	7: rrule.SU,
}

// Expand 把模板在 [windowStart, windowEnd) 窗口内展开成按时间排序的候选时刻。
// 这是一个纯函数：相同的输入永远产生相同的输出，幂等物化建立在这之上。
//
// 当地时间逐日通过模板时区解析成绝对时刻，而不是缓存一个固定偏移，
// 所以时区在窗口中途改变偏移时结果依然正确。
// 未激活的模板和空的星期集合直接返回空列表，不算错误。
func Expand(st *domain.ShiftTemplate, now time.Time, windowStart time.Time, windowEnd time.Time) ([]Occurrence, error) {
	occurrences := make([]Occurrence, 0)

	if !st.IsActive || len(st.Weekdays) == 0 {
		return occurrences, nil
	}
	if !windowEnd.After(windowStart) {
		return occurrences, nil
	}

	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无法解析模板时区 %q: %w", st.Timezone, err)
	}

	startHour, startMinute, err := parseLocalTime(st.LocalStartTime)
	if err != nil {
		return nil, err
	}
	endHour, endMinute, err := parseLocalTime(st.LocalEndTime)
	if err != nil {
		return nil, err
	}

	weekdays := make([]rrule.Weekday, 0, len(st.Weekdays))
	for _, weekday := range st.Weekdays {
		wd, ok := isoWeekday[weekday]
		if !ok {
			return nil, fmt.Errorf("非法的星期值 %d", weekday)
		}
		weekdays = append(weekdays, wd)
	}

	// DTSTART 取窗口起点在模板时区下的日历日期加上当地开始时间，
	// 具体哪天生成由 BYDAY 和窗口过滤决定
	localStart := windowStart.In(loc)
	dtstart := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), startHour, startMinute, 0, 0, loc)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: weekdays,
		Dtstart:   dtstart,
	})
	if err != nil {
		return nil, fmt.Errorf("无法构造循环规则: %w", err)
	}

	var set rrule.Set
	set.RRule(r)

	// 排除日期按模板时区下的当地开始时间对齐，和候选时刻精确相等才会被剔除
	for _, excludedDate := range st.ExcludedDates {
		d, err := time.ParseInLocation(domain.LocalDateLayout, excludedDate, loc)
		if err != nil {
			return nil, fmt.Errorf("无法解析排除日期 %q: %w", excludedDate, err)
		}
		set.ExDate(time.Date(d.Year(), d.Month(), d.Day(), startHour, startMinute, 0, 0, loc))
	}

	for _, startAt := range set.Between(dtstart, windowEnd.In(loc), true) {
		// 结束时刻用候选日期重新经过时区解析，而不是直接加一段时长
		endAt := time.Date(startAt.Year(), startAt.Month(), startAt.Day(), endHour, endMinute, 0, 0, loc)

		if !startAt.After(now) {
			// 过去的时刻不生成
			continue
		}
		if startAt.Before(windowStart) || !startAt.Before(windowEnd) {
			continue
		}

		occurrences = append(occurrences, Occurrence{
			StartAt: startAt.UTC(),
			EndAt:   endAt.UTC(),
		})
	}

	return occurrences, nil
}

// HorizonWindow 计算模板当前应该存在班次的滚动窗口 [now, now+horizonDays)。
func HorizonWindow(st *domain.ShiftTemplate, now time.Time, defaultHorizonDays int) (time.Time, time.Time) {
	horizonDays := int(st.HorizonDays)
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	return now, now.Add(time.Duration(horizonDays) * 24 * time.Hour)
}

func parseLocalTime(value string) (int, int, error) {
	t, err := time.Parse(domain.LocalTimeLayout, value)
	if err != nil {
		return 0, 0, fmt.Errorf("无法解析当地时间 %q: %w", value, err)
	}
	return t.Hour(), t.Minute(), nil
}
