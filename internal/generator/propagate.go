package generator

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

// Propagator 把模板编辑传播到还没开始的班次上。
// 它只处理 startAt 在未来且状态仍为 scheduled 的生成班次，
// 已经开始、已完成或手动创建的班次一律不碰。
//
// 和老系统"整批删掉重新生成"的做法不同，这里按模板时区下的
// 日历日期逐个对账：日期还在循环规则里的班次原地更新，
// 不再匹配的才删除，这样备注之类的无关字段不会被误伤。
type Propagator struct {
	shifts             ShiftStore
	users              UserStore
	defaultHorizonDays int
}

func NewPropagator(shifts ShiftStore, users UserStore, defaultHorizonDays int) *Propagator {
	return &Propagator{
		shifts:             shifts,
		users:              users,
		defaultHorizonDays: defaultHorizonDays,
	}
}

// Propagate 对账一个模板的未来班次。所有班次的 template_version
// 都已经等于模板当前版本时直接返回，所以周期性地反复调用是廉价的。
func (p *Propagator) Propagate(st *domain.ShiftTemplate, now time.Time) error {
	existing, err := p.shifts.GetFutureScheduledGeneratedShifts(st.ID, now)
	if err != nil {
		return err
	}

	if !st.IsActive {
		// 模板停用：未来的生成班次标记为 cancelled 而不是删除，保留审计痕迹
		for _, s := range existing {
			if err := p.shifts.CancelShift(s.ID); err != nil {
				return err
			}
		}
		if len(existing) > 0 {
			slog.Info("模板已停用，未来班次已取消", "templateID", st.ID, "cancelled", len(existing))
		}
		return nil
	}

	stale := false
	for _, s := range existing {
		if s.TemplateVersion != st.Version {
			stale = true
			break
		}
	}
	if !stale {
		return nil
	}

	// 模板引用的老师或学生已经不存在时不做任何修改，只上报
	ids := append([]string{st.OwnerID}, st.ParticipantIDs...)
	missing, err := p.users.FindMissingUsers(ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, strings.Join(missing, ", "))
	}

	loc, err := time.LoadLocation(st.Timezone)
	if err != nil {
		return err
	}

	windowStart, windowEnd := HorizonWindow(st, now, p.defaultHorizonDays)
	expected, err := Expand(st, now, windowStart, windowEnd)
	if err != nil {
		return err
	}

	expectedByDate := make(map[string]Occurrence, len(expected))
	for _, occ := range expected {
		expectedByDate[occ.StartAt.In(loc).Format(domain.LocalDateLayout)] = occ
	}

	for _, s := range existing {
		date := s.StartAt.In(loc).Format(domain.LocalDateLayout)
		occ, ok := expectedByDate[date]
		if !ok {
			// 新的循环规则不再覆盖这一天，班次还没开始，可以直接删除；
			// 空出来的时段由之后的生成步骤回填
			if err := p.shifts.DeleteShift(s.ID); err != nil {
				return err
			}
			continue
		}

		currentID := s.ID
		if !s.StartAt.Equal(occ.StartAt) || !s.EndAt.Equal(occ.EndAt) {
			// 当地时间或时区变了：原地更新时刻，同时把 ID 换成
			// 由新开始时刻导出的值，保持标识和内容的一致
			newID := GeneratedShiftID(st.ID, occ.StartAt)
			if err := p.shifts.RescheduleShift(s.ID, newID, occ.StartAt, occ.EndAt, st.Version); err != nil {
				return err
			}
			currentID = newID
		}

		if err := p.shifts.UpdateShiftSnapshot(currentID, st.OwnerID, st.ParticipantIDs, st.Subject, st.Version); err != nil {
			return err
		}
	}

	return nil
}
