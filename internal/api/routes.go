package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mrwolf/parami/internal/config"
	"github.com/mrwolf/parami/internal/content"
	"github.com/mrwolf/parami/internal/db"
	"github.com/mrwolf/parami/internal/planner"
	"github.com/mrwolf/parami/internal/vault"
)

// Default per-actor request budget
const (
	RateLimit       = 60
	RateLimitWindow = time.Minute
)

// Deps are the collaborators the HTTP surface needs. Vault may be nil.
type Deps struct {
	Config  *config.Config
	DB      *db.DB
	Vault   *vault.Vault
	Catalog *content.Catalog
	Planner *planner.Planner
	Clock   clockwork.Clock
	Log     *zap.Logger
}

// NewRouter builds the router. The returned handlers accept a digest trigger
// once the scheduler exists.
func NewRouter(deps Deps) (*chi.Mux, *Handlers) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Log))

	handlers := NewHandlers(deps)
	limiter := NewRateLimiter(RateLimit, RateLimitWindow, handlers.clock)

	// Public endpoints
	r.Get("/health", handlers.Health)

	// API v1 routes (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Config))
		r.Use(RateLimitMiddleware(limiter))
		r.Use(JSONContentType)

		r.Get("/today", handlers.Today)
		r.Get("/themes", handlers.Themes)
		r.Get("/themes/{id}", handlers.Theme)
		r.Get("/themes/{id}/recurrence", handlers.Recurrence)

		r.Post("/activities/dismiss", handlers.Dismiss)
		r.Post("/activities/restart", handlers.Restart)
		r.Post("/rotation/advance", handlers.AdvanceRotation)

		r.Post("/quiz", handlers.SubmitQuiz)
		r.Get("/quiz/results", handlers.QuizResults)
		r.Get("/quiz/results/{id}", handlers.QuizResult)

		r.Put("/reflections", handlers.PutReflection)
		r.Get("/reflections", handlers.Reflections)
		r.Get("/analytics", handlers.Analytics)

		r.Post("/digest", handlers.Digest)
	})

	return r, handlers
}
