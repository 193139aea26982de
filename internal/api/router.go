package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/SAHIL7163/Talksy-backend/internal/api/middleware"
	"github.com/SAHIL7163/Talksy-backend/internal/handlers"
)

// NewRouter creates and configures the HTTP router. The websocket endpoint
// is mounted alongside the REST surface; both feed the same orchestrator.
// Authentication sits in an external edge and is not applied here.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, wsHandler http.Handler, clientURL string) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)
	r.Use(middleware.MaxBodySize(64 * 1024)) // 64KB max body

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - credentialed requests from the chat client
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{clientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	// Realtime transport
	r.Handle("/ws", wsHandler)

	// Chat REST surface
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/messages/{channelId}", h.GetChannelMessages)
		r.Put("/message/{messageId}", h.EditMessage)
		r.Delete("/message/{messageId}", h.DeleteMessage)
		r.Put("/message/{messageId}/read", h.MarkRead)
		r.Post("/ai", h.AIMessage)
	})

	return r
}
