package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/generator"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/repository"
)

func (h *Handler) QueryShifts(w http.ResponseWriter, r *http.Request) {
	filter := repository.ShiftFilter{
		OwnerID:       r.URL.Query().Get("ownerID"),
		ParticipantID: r.URL.Query().Get("participantID"),
	}

	if fromParam := r.URL.Query().Get("from"); fromParam != "" {
		from, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			h.errorResponse(w, r, "from 参数格式错误，应为 RFC3339")
			return
		}
		filter.From = &from
	}
	if toParam := r.URL.Query().Get("to"); toParam != "" {
		to, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			h.errorResponse(w, r, "to 参数格式错误，应为 RFC3339")
			return
		}
		filter.To = &to
	}

	shifts, err := h.repository.QueryShifts(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次成功", shifts)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(ShiftCtx).(*domain.Shift)

	h.successResponse(w, r, "获取班次成功", s)
}

// CreateManualShift 创建一节不属于任何模板的独立班次。
func (h *Handler) CreateManualShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID        string    `json:"ownerID" validate:"required"`
		ParticipantIDs []string  `json:"participantIDs" validate:"required,min=1"`
		Subject        string    `json:"subject"`
		StartAt        time.Time `json:"startAt" validate:"required"`
		EndAt          time.Time `json:"endAt" validate:"required"`
		Note           string    `json:"note"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !req.EndAt.After(req.StartAt) {
		h.errorResponse(w, r, "结束时间必须晚于开始时间")
		return
	}

	// 和模板写入路径一样，负责老师和参与学生必须都存在，
	// 否则会插入一条传播器永远无法处理的孤儿班次
	missing, err := h.repository.FindMissingUsers(append([]string{req.OwnerID}, req.ParticipantIDs...))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(missing) > 0 {
		h.errorResponse(w, r, "用户不存在: "+strings.Join(missing, ", "))
		return
	}

	// 同一个老师在同一开始时刻已有班次时直接拒绝，
	// 不要制造一条将来要靠去重审计处理的重复数据
	startAt := req.StartAt.UTC()
	existing, err := h.repository.QueryShifts(repository.ShiftFilter{OwnerID: req.OwnerID, From: &startAt, To: ptrTime(startAt.Add(time.Second))})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	for _, s := range existing {
		if s.Status == domain.ShiftStatusScheduled {
			h.errorResponse(w, r, "该老师在此时刻已有班次")
			return
		}
	}

	s := &domain.Shift{
		ID:             generator.NewManualShiftID(),
		TemplateID:     nil,
		OwnerID:        req.OwnerID,
		ParticipantIDs: req.ParticipantIDs,
		Subject:        req.Subject,
		StartAt:        startAt,
		EndAt:          req.EndAt.UTC(),
		Status:         domain.ShiftStatusScheduled,
		Origin:         domain.ShiftOriginManual,
		Note:           req.Note,
	}

	if _, err := h.repository.CreateShiftIfAbsent(s); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建班次成功", s)
}

func (h *Handler) CancelShift(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(ShiftCtx).(*domain.Shift)

	if s.Status != domain.ShiftStatusScheduled {
		h.errorResponse(w, r, "只有待上课的班次才能取消")
		return
	}

	if err := h.repository.CancelShift(s.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	s.Status = domain.ShiftStatusCancelled
	h.successResponse(w, r, "取消班次成功", s)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
