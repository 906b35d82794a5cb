// Package server assembles the dispatcher, hub, upgrader and routes into a
// runnable Server.
package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Server is one chat service instance: a dispatcher holding all chat state,
// the hub running client connections, and the HTTP handlers in front of them.
type Server struct {
	cfg      Config
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New builds a Server from cfg. Call StartHub before serving requests.
func New(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = sanitize(cfg)
	dispatcher := chat.NewDispatcher(logger.Named("chat"), cfg.ChatOptions())
	policy := newOriginPolicy(cfg.AllowedOrigins, logger)

	return &Server{
		cfg: cfg,
		hub: NewHub(dispatcher, cfg, logger.Named("hub")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.checkOrigin,
		},
		logger: logger,
	}
}

// Hub returns the server's hub for shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config {
	return s.cfg
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.Routes()
}

// StartHub starts the hub loop in a separate goroutine.
// This should be called before starting the HTTP server.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.logger.Info("hub started and ready to manage WebSocket connections")
}
