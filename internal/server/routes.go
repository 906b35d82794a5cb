// Package server wires HTTP handlers into a chi router for the chat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Tyrowin/roomchat/internal/metrics"
)

// Routes configures and returns the router with all application routes:
// health check, WebSocket endpoint, test page, stats and metrics.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		metrics.Middleware,
	)

	r.Get("/", HealthHandler)
	r.Get("/ws", s.WebSocketHandler)
	r.Get("/test", TestPageHandler)
	r.Get("/stats", s.StatsHandler)
	r.Handle("/metrics", metrics.Handler())
	return r
}
