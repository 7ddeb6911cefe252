package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

// Engine 是滚动窗口生成的驱动：对每个激活的模板，
// 先把未完成的模板编辑传播出去，再把 [now, now+horizon) 窗口内
// 缺失的班次物化出来。
//
// 引擎不记录"已经生成到哪"这类状态，每一轮都从当前时刻重新推导窗口，
// 依靠物化的幂等性吞掉重复的工作。这比维护一个水位线多做一点计算，
// 但彻底消灭了"调度状态和现实脱节"这一整类需要人工修数据的问题。
type Engine struct {
	cfg          *config.Config
	templates    TemplateStore
	materializer *Materializer
	propagator   *Propagator
}

func NewEngine(cfg *config.Config, templates TemplateStore, materializer *Materializer, propagator *Propagator) *Engine {
	return &Engine{
		cfg:          cfg,
		templates:    templates,
		materializer: materializer,
		propagator:   propagator,
	}
}

// RunLockKey 是 redis 里的分布式锁，保证同一时间只有一轮生成在跑，
// 不管是 scheduler 的周期触发还是管理员的手动触发。
const RunLockKey = "shift_engine:horizon_run_lock"

type RunStats struct {
	Templates int `json:"templates"`
	Created   int `json:"created"`
	Failed    int `json:"failed"`
}

// RunOnce 处理一遍所有激活的模板。单个模板上的失败会被捕获并带着
// 模板 ID 记录下来，绝不拖垮其余模板的生成——模板之间相互独立，
// 一个配置坏掉的模板不应该让整批生成停摆。
func (e *Engine) RunOnce(ctx context.Context) (*RunStats, error) {
	templates, err := e.templates.GetActiveShiftTemplates()
	if err != nil {
		return nil, err
	}

	// 停用时的内联取消可能失败，收敛不能只依赖那一次调用：
	// 已停用但还挂着未来班次的模板也要扫进来，传播会把它们取消
	leftovers, err := e.templates.GetInactiveShiftTemplatesWithFutureShifts(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	templates = append(templates, leftovers...)

	stats := &RunStats{Templates: len(templates)}

	for _, st := range templates {
		created, err := e.runTemplate(ctx, st)
		stats.Created += created
		if err != nil {
			stats.Failed++
			slog.Error("模板生成失败，跳过", "templateID", st.ID, "error", err)
		}

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	slog.Info("生成完成", "templates", stats.Templates, "created", stats.Created, "failed", stats.Failed)
	return stats, nil
}

// runTemplate 在单独的超时上下文里处理一个模板，并把 panic 转成错误。
// 超时后放弃本轮，下一轮会安全地重试。
func (e *Engine) runTemplate(ctx context.Context, st *domain.ShiftTemplate) (created int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.Scheduler.TemplateTimeout)*time.Second)
	defer cancel()

	return e.GenerateForTemplate(ctx, st)
}

// GenerateForTemplate 是单个模板的生成路径：传播、展开、按时间顺序物化。
// 模板 PATCH 之后的内联传播和手动触发走的也是这条路。
func (e *Engine) GenerateForTemplate(ctx context.Context, st *domain.ShiftTemplate) (int, error) {
	now := time.Now().UTC()

	if err := e.propagator.Propagate(st, now); err != nil {
		return 0, err
	}

	if !st.IsActive {
		return 0, nil
	}

	windowStart, windowEnd := HorizonWindow(st, now, e.cfg.Scheduler.DefaultHorizonDays)
	occurrences, err := Expand(st, now, windowStart, windowEnd)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, occ := range occurrences {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		_, ok, err := e.materializer.Materialize(st, occ)
		if err != nil {
			// 存储不可用属于可重试错误，向上抛给调度循环
			return created, err
		}
		if ok {
			created++
		}
	}

	return created, nil
}
