package handler

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/linking"
	"github.com/ogurasousui/employee-link-api/internal/platform/metrics"
	"go.uber.org/zap"
)

// Pinger はストアへの疎通確認を行います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler は社員 API の HTTP ハンドラーです。
type Handler struct {
	employees  employee.UseCase
	linking    linking.UseCase
	db         Pinger
	metrics    *metrics.Metrics
	logger     *zap.Logger
	validate   *validator.Validate
	translator ut.Translator
}

// Option は Handler の任意設定です。
type Option func(*Handler)

// WithPinger は /healthz で使用する疎通確認先を設定します。
func WithPinger(db Pinger) Option {
	return func(h *Handler) { h.db = db }
}

// WithMetrics はリクエストメトリクスの記録先と /metrics を有効にします。
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New は Handler を生成します。
func New(employees employee.UseCase, links linking.UseCase, opts ...Option) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, fmt.Errorf("register validator translations: %w", err)
	}

	h := &Handler{
		employees:  employees,
		linking:    links,
		logger:     zap.NewNop(),
		validate:   validate,
		translator: translator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Routes はルーティング済みの http.Handler を返します。
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestID, h.instrument, h.recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.errorJSON(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.errorJSON(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", h.Healthz)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.ListEmployees)
		r.Post("/", h.CreateEmployee)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/unlinked", h.UnlinkedOverview)
			r.Get("/auto-link/plan", h.PreviewAutoLink)
			r.Post("/auto-link", h.AutoLink)
			r.Post("/auto-link/per-pair", h.AutoLinkPerPair)
			r.Post("/manual-link", h.ManualLink)
			r.Post("/unlink", h.Unlink)
		})

		r.Get("/user/{userId}", h.GetEmployeeByUserID)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEmployee)
			r.Put("/", h.UpdateEmployee)
			r.Delete("/", h.DeleteEmployee)
		})
	})

	return r
}

// Healthz はストアへの疎通を確認します。
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			h.errorJSON(w, r, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
