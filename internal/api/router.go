package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/robertddewey/ChatPop-sub000/internal/api/middleware"
	"github.com/robertddewey/ChatPop-sub000/internal/cache"
	"github.com/robertddewey/ChatPop-sub000/internal/handlers"
	"github.com/robertddewey/ChatPop-sub000/internal/monitor"
	"github.com/robertddewey/ChatPop-sub000/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, pg store.DataStore, c *cache.Cache, mon *monitor.Monitor) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // voice waveforms need headroom
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting shares the cache's Redis connection
	limiter := middleware.NewRateLimiter(c.Client(), logger)
	r.Use(limiter.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(pg, c, mon, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	// Rooms and messages
	r.Post("/rooms", h.CreateRoom)
	r.Route("/rooms/{id}", func(r chi.Router) {
		r.Get("/messages", h.GetRoomMessages)
		r.Post("/messages", h.PostMessage)
		r.Delete("/messages/{msgID}", h.DeleteMessage)

		r.Post("/messages/{msgID}/pin", h.PinMessage)
		r.Delete("/messages/{msgID}/pin", h.UnpinMessage)
		r.Get("/pins", h.GetPinnedMessages)
		r.Get("/pins/floor", h.GetPinFloor)

		r.Get("/messages/{msgID}/reactions", h.GetReactions)
		r.Post("/messages/{msgID}/reactions", h.AddReaction)
		r.Delete("/messages/{msgID}/reactions", h.RemoveReaction)
		r.Get("/reactions", h.BatchGetReactions)
	})

	// Block lists
	r.Route("/users/{id}/blocks", func(r chi.Router) {
		r.Get("/", h.GetBlocks)
		r.Post("/", h.AddBlock)
		r.Delete("/{username}", h.RemoveBlock)
		r.Post("/sync", h.SyncBlocks)
	})

	// Cache observability
	r.Route("/monitoring", func(r chi.Router) {
		r.Get("/events", h.GetMonitorEvents)
		r.Get("/summary", h.GetMonitorSummary)
		r.Get("/mode", h.GetMonitorMode)
	})

	return r
}
