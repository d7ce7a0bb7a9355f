package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/modes"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/store"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

// Options are the router settings that come from configuration.
type Options struct {
	APIKey string
	// Model is advertised by /v1/models and echoed in completions.
	Model            string
	Backend          string
	UpstreamTimeout  time.Duration
	CompletionsRPS   float64
	CompletionsBurst int
	// StaticDir, when set, is served at / without auth.
	StaticDir string
}

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(
	db *store.DB,
	coord *coordinator.Coordinator,
	registry *modes.Registry,
	health upstream.HealthChecker,
	opts Options,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	// Handlers
	healthH := NewHealthHandler(db, health, coord)
	chatH := NewChatHandler(coord, opts.UpstreamTimeout)
	messageH := NewMessageHandler(coord)
	completionH := NewCompletionHandler(coord, opts.Model, opts.UpstreamTimeout, logger)
	modelH := NewModelHandler(opts.Model, opts.Backend, registry)

	limiter := rate.NewLimiter(rate.Limit(opts.CompletionsRPS), opts.CompletionsBurst)

	// Unauthenticated routes
	r.Get("/health", healthH.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(opts.APIKey))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/models", modelH.Models)
			r.Get("/modes", modelH.Modes)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chatH.List)
				r.Post("/", chatH.Create)
				r.Get("/active", chatH.GetActive)
				r.Post("/active", chatH.SetActive)
				r.Get("/{id}", chatH.Get)
				r.Patch("/{id}", chatH.Update)
				r.Delete("/{id}", chatH.Delete)
				r.Put("/{id}/mode", chatH.SetMode)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Get("/{id}", messageH.History)
				r.Delete("/{id}", messageH.Clear)
			})

			r.With(RateLimit(limiter)).Post("/chat/completions", completionH.Create)
		})
	})

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}

	return r
}
