package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/generator"
)

// RunHorizon 手动触发一轮完整的生成，效果和周期性调度完全一样。
// 和 scheduler 抢同一把分布式锁，避免两轮生成并发执行。
func (h *Handler) RunHorizon(w http.ResponseWriter, r *http.Request) {
	lockExpiration := time.Duration(h.config.Scheduler.RunLockExpiration) * time.Second
	ok, err := h.redisClient.SetNX(r.Context(), generator.RunLockKey, time.Now().UTC().Format(time.RFC3339), lockExpiration).Result()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.writeJSON(w, r, http.StatusConflict, Response{
			Success: false,
			Message: "另一轮生成正在执行，请稍后再试",
		})
		return
	}
	defer func() {
		if err := h.redisClient.Del(r.Context(), generator.RunLockKey).Err(); err != nil {
			h.logInternalServerError(r, err)
		}
	}()

	stats, err := h.engine.RunOnce(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "生成完成", stats)
}

// RunDedup 手动触发一轮去重审计。
func (h *Handler) RunDedup(w http.ResponseWriter, r *http.Request) {
	report, err := h.resolver.Run(time.Now().UTC())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: "去重审计完成",
		Data: map[string]any{
			"cancelledShiftIDs": report.CancelledShiftIDs,
			"conflicts":         report.ConflictItems(),
		},
	})
}
