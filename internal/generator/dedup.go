package generator

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

// Resolver 是幂等的去重审计：把 scheduled 状态的班次按
// (老师, 开始时刻) 分组，消解历史遗留的重复数据。
// 模板生成的班次有模板和传播器背书，所以它是规范的那一个，
// 和它碰撞的手动班次被取消；多个生成班次互相碰撞说明模板层面
// 存在排班冲突，只上报不自动消解。
type Resolver struct {
	shifts       ShiftStore
	mail         MailPublisher // 可以为 nil，此时只记录日志
	adminAddress string
}

func NewResolver(shifts ShiftStore, mail MailPublisher, adminAddress string) *Resolver {
	return &Resolver{
		shifts:       shifts,
		mail:         mail,
		adminAddress: adminAddress,
	}
}

type DedupReport struct {
	CancelledShiftIDs []string                `json:"cancelledShiftIDs"`
	Conflicts         []*domain.ConflictError `json:"-"`
}

func (r *DedupReport) ConflictItems() []domain.ConflictMailItem {
	items := make([]domain.ConflictMailItem, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		items = append(items, domain.ConflictMailItem{
			OwnerID:  c.OwnerID,
			StartAt:  c.StartAt,
			ShiftIDs: c.ShiftIDs,
		})
	}
	return items
}

func (r *Resolver) Run(now time.Time) (*DedupReport, error) {
	shifts, err := r.shifts.GetScheduledShifts()
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]*domain.Shift)
	for _, s := range shifts {
		key := fmt.Sprintf("%s|%d", s.OwnerID, s.StartAt.Unix())
		groups[key] = append(groups[key], s)
	}

	report := &DedupReport{
		CancelledShiftIDs: make([]string, 0),
		Conflicts:         make([]*domain.ConflictError, 0),
	}

	for _, group := range groups {
		if len(group) <= 1 {
			continue
		}

		generated := make([]*domain.Shift, 0, len(group))
		manual := make([]*domain.Shift, 0, len(group))
		for _, s := range group {
			if s.Origin == domain.ShiftOriginGenerated {
				generated = append(generated, s)
			} else {
				manual = append(manual, s)
			}
		}

		if len(generated) == 1 {
			// 生成班次是规范的那一个，碰撞的手动班次取消
			for _, s := range manual {
				if err := r.shifts.CancelShift(s.ID); err != nil {
					return nil, err
				}
				report.CancelledShiftIDs = append(report.CancelledShiftIDs, s.ID)
			}
			continue
		}

		// 多个生成班次碰撞，或者全是手动班次：交给人工处理
		ids := make([]string, 0, len(group))
		for _, s := range group {
			ids = append(ids, s.ID)
		}
		sort.Strings(ids)
		report.Conflicts = append(report.Conflicts, &domain.ConflictError{
			OwnerID:  group[0].OwnerID,
			StartAt:  group[0].StartAt,
			ShiftIDs: ids,
		})
	}

	for _, conflict := range report.Conflicts {
		slog.Warn("检测到排班冲突", "ownerID", conflict.OwnerID, "startAt", conflict.StartAt, "shiftIDs", conflict.ShiftIDs)
	}

	if len(report.Conflicts) > 0 && r.mail != nil {
		msg := domain.MailMessage{
			Type: "conflict_report",
			To:   r.adminAddress,
			Data: domain.ConflictReportMailData{
				GeneratedAt: now,
				Conflicts:   report.ConflictItems(),
			},
		}
		if err := r.mail.PublishMailMessage(msg); err != nil {
			// 邮件发不出去不影响审计结果，下一轮还会再报
			slog.Error("无法发布冲突报告邮件", "error", err)
		}
	}

	return report, nil
}
