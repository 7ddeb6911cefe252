package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/generator"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/queue"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/repository"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	publisher   *queue.Publisher
	redisClient *redis.Client
	engine      *generator.Engine
	resolver    *generator.Resolver

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, publisher *queue.Publisher, rdb *redis.Client, engine *generator.Engine, resolver *generator.Resolver) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		publisher:   publisher,
		redisClient: rdb,
		engine:      engine,
		resolver:    resolver,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 以下 API 由外部认证服务签发的令牌保护
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/shift-templates", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateShiftTemplate)
			r.Get("/", h.GetAllShiftTemplates)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.shiftTemplate)
				r.Get("/", h.GetShiftTemplate)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateShiftTemplate)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/deactivate", h.DeactivateShiftTemplate)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/generate", h.GenerateShiftsForTemplate)
			})
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.QueryShifts)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateManualShift)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.shift)
				r.Get("/", h.GetShift)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/cancel", h.CancelShift)
			})
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleAdmin}))
			r.Post("/horizon-run", h.RunHorizon)
			r.Post("/dedup-run", h.RunDedup)
		})
	})
}
