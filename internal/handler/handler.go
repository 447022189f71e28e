package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/recall/internal/llm"
	"github.com/pavelanni/recall/internal/model"
	"github.com/pavelanni/recall/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// DefaultGradeTimeout bounds one grading call when the config sets none.
const DefaultGradeTimeout = 2 * time.Minute

// Grader scores a submitted answer.
type Grader interface {
	GradeAnswer(ctx context.Context, q model.Question, answer string) (*llm.GradeResult, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	grader   Grader
	config   model.ServerConfig
	validate *validator.Validate
}

// New creates a new Handler.
func New(s *store.Store, g Grader, cfg model.ServerConfig) (*Handler, error) {
	if cfg.GradeTimeout <= 0 {
		cfg.GradeTimeout = DefaultGradeTimeout
	}
	return &Handler{
		store:    s,
		grader:   g,
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Routes registers all HTTP routes. API paths accept an optional trailing
// slash.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.StripSlashes)
		api.NotFound(h.handleNotFound)
		api.MethodNotAllowed(h.handleMethodNotAllowed)

		api.Get("/documents", h.handleListDocuments)
		api.Get("/documents/{documentID}", h.handleGetDocument)
		api.Get("/documents/{documentID}/questions", h.handleListDocumentQuestions)
		api.Get("/questions/{questionID}", h.handleGetQuestion)
		api.Post("/questions/{questionID}/answer", h.handleSubmitAnswer)
		api.Get("/answers/{answerID}", h.handleGetAnswer)
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), strings.TrimRight(h.config.BasePath, "/"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "ErrNotFound")
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "ErrMethodNotAllowed")
}
