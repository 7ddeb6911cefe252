package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/utils"
)

func (h *Handler) GetAllShiftTemplates(w http.ResponseWriter, r *http.Request) {
	sts, err := h.repository.GetAllShiftTemplates()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有班次模板成功", sts)
}

func (h *Handler) CreateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID        string   `json:"ownerID" validate:"required"`
		ParticipantIDs []string `json:"participantIDs" validate:"required,min=1"`
		Weekdays       []int32  `json:"weekdays" validate:"required,dive,gte=1,lte=7"`
		LocalStartTime string   `json:"localStartTime" validate:"required"`
		LocalEndTime   string   `json:"localEndTime" validate:"required"`
		Timezone       string   `json:"timezone" validate:"required"`
		HorizonDays    *int32   `json:"horizonDays" validate:"omitempty,gte=1"`
		ExcludedDates  []string `json:"excludedDates"`
		Subject        string   `json:"subject"`
		Note           string   `json:"note"`
		IsActive       bool     `json:"isActive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	horizonDays := int32(h.config.Scheduler.DefaultHorizonDays)
	if req.HorizonDays != nil {
		horizonDays = *req.HorizonDays
	}

	st := &domain.ShiftTemplate{
		OwnerID:        req.OwnerID,
		ParticipantIDs: req.ParticipantIDs,
		Weekdays:       req.Weekdays,
		LocalStartTime: req.LocalStartTime,
		LocalEndTime:   req.LocalEndTime,
		Timezone:       req.Timezone,
		HorizonDays:    horizonDays,
		ExcludedDates:  req.ExcludedDates,
		Subject:        req.Subject,
		Note:           req.Note,
		IsActive:       req.IsActive,
	}

	if err := utils.ValidateShiftTemplate(st, time.Now().UTC()); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 负责老师和参与学生必须都存在
	missing, err := h.repository.FindMissingUsers(append([]string{st.OwnerID}, st.ParticipantIDs...))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(missing) > 0 {
		h.errorResponse(w, r, "用户不存在: "+strings.Join(missing, ", "))
		return
	}

	if err := h.repository.CreateShiftTemplate(st); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "shift_templates_pkey":
				h.errorResponse(w, r, "模板已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 激活的模板立即生成一轮，不用等下一次周期性调度
	if st.IsActive {
		if _, err := h.engine.GenerateForTemplate(r.Context(), st); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	h.successResponse(w, r, "创建模板成功", st)
}

func (h *Handler) GetShiftTemplate(w http.ResponseWriter, r *http.Request) {
	st := r.Context().Value(ShiftTemplateCtx).(*domain.ShiftTemplate)

	h.successResponse(w, r, "获取模板成功", st)
}

func (h *Handler) UpdateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	st := r.Context().Value(ShiftTemplateCtx).(*domain.ShiftTemplate)

	var req struct {
		OwnerID        *string  `json:"ownerID"`
		ParticipantIDs []string `json:"participantIDs" validate:"omitempty,min=1"`
		Weekdays       []int32  `json:"weekdays" validate:"omitempty,dive,gte=1,lte=7"`
		LocalStartTime *string  `json:"localStartTime"`
		LocalEndTime   *string  `json:"localEndTime"`
		Timezone       *string  `json:"timezone"`
		HorizonDays    *int32   `json:"horizonDays" validate:"omitempty,gte=1"`
		ExcludedDates  []string `json:"excludedDates"`
		Subject        *string  `json:"subject"`
		Note           *string  `json:"note"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.OwnerID != nil {
		st.OwnerID = *req.OwnerID
	}
	if req.ParticipantIDs != nil {
		st.ParticipantIDs = req.ParticipantIDs
	}
	if req.Weekdays != nil {
		st.Weekdays = req.Weekdays
	}
	if req.LocalStartTime != nil {
		st.LocalStartTime = *req.LocalStartTime
	}
	if req.LocalEndTime != nil {
		st.LocalEndTime = *req.LocalEndTime
	}
	if req.Timezone != nil {
		st.Timezone = *req.Timezone
	}
	if req.HorizonDays != nil {
		st.HorizonDays = *req.HorizonDays
	}
	if req.ExcludedDates != nil {
		st.ExcludedDates = req.ExcludedDates
	}
	if req.Subject != nil {
		st.Subject = *req.Subject
	}
	if req.Note != nil {
		st.Note = *req.Note
	}

	if err := utils.ValidateShiftTemplate(st, time.Now().UTC()); err != nil {
		h.badRequest(w, r, err)
		return
	}

	missing, err := h.repository.FindMissingUsers(append([]string{st.OwnerID}, st.ParticipantIDs...))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(missing) > 0 {
		h.errorResponse(w, r, "用户不存在: "+strings.Join(missing, ", "))
		return
	}

	if err := h.repository.UpdateShiftTemplate(st); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "模板已被其他人修改，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 版本号已经变了，立即把编辑传播到未来的班次上；
	// 即使这里失败，下一轮周期性调度也会收敛
	if _, err := h.engine.GenerateForTemplate(r.Context(), st); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新模板成功", st)
}

func (h *Handler) DeactivateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	st := r.Context().Value(ShiftTemplateCtx).(*domain.ShiftTemplate)

	if st.IsActive {
		st.IsActive = false
		if err := h.repository.UpdateShiftTemplate(st); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, "模板已被其他人修改，请重试")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
	}

	// 未来的生成班次标记为取消，历史班次保留。
	// 模板早已停用时也照样跑一遍传播：上一次停用请求可能在
	// 写库之后、取消班次之前失败，重复调用把漏下的取消补上
	if _, err := h.engine.GenerateForTemplate(r.Context(), st); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "停用模板成功", st)
}

func (h *Handler) GenerateShiftsForTemplate(w http.ResponseWriter, r *http.Request) {
	st := r.Context().Value(ShiftTemplateCtx).(*domain.ShiftTemplate)

	created, err := h.engine.GenerateForTemplate(r.Context(), st)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "生成班次成功", map[string]int{"created": created})
}
