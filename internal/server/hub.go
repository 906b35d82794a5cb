// Package server coordinates client registration, session setup, and
// connection cleanup for the chat WebSocket system via the Hub type.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Hub tracks every live WebSocket client and runs its pumps. Chat semantics
// (names, rooms, commands) live in the chat.Dispatcher; the hub binds each
// client to a session on registration and ends that session exactly once.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	dispatcher *chat.Dispatcher
	cfg        Config
	logger     *zap.Logger
}

// NewHub creates a Hub serving dispatcher. The returned Hub is ready to
// manage WebSocket connections once Run is started.
func NewHub(dispatcher *chat.Dispatcher, cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		dispatcher: dispatcher,
		cfg:        sanitize(cfg),
		logger:     logger,
	}
}

// Dispatcher returns the chat core served by this hub.
func (h *Hub) Dispatcher() *chat.Dispatcher {
	return h.dispatcher
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Register hands a freshly upgraded client to the hub. It returns false if
// the hub is shutting down, in which case the caller still owns the client.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. This method should be called in a separate goroutine
// as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Debug("received nil client registration; skipping")
				continue
			}
			h.handleRegister(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	session, err := h.dispatcher.Connect(client)
	if err != nil {
		h.logger.Warn("refusing client", zap.String("addr", client.addr), zap.Error(err))
		reason := "server unavailable"
		if errors.Is(err, chat.ErrNamesExhausted) {
			reason = "no free names, try again later"
		}
		client.closeWithReason(websocket.CloseTryAgainLater, reason)
		return
	}
	client.session = session

	h.mutex.Lock()
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	h.logger.Info("client registered",
		zap.String("addr", client.addr), zap.String("session", session.ID()), zap.Int("clients", clientCount))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// unregisterClient is called by a client's read pump when it stops. During
// shutdown the loop is gone, so the client is removed directly.
func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		h.removeClient(client)
	}
}

// removeClient ends client's session and closes its outbound queue. It is
// safe to call more than once.
func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	if client.session != nil {
		h.dispatcher.Disconnect(client.session)
	}
	client.shutdownSend()

	if ok {
		h.logger.Info("client unregistered", zap.String("addr", client.addr), zap.Int("clients", clientCount))
	}
}

// shutdownClients closes every client connection; each read pump then runs
// its own cleanup.
func (h *Hub) shutdownClients() {
	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		client.closeConnection()
	}

	h.logger.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or with context.DeadlineExceeded when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
