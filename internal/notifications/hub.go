package notifications

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"appx/internal/middleware"
	"appx/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// Hub tracks the open notification sockets of every user on this instance.
type Hub struct {
	mu      sync.RWMutex
	sockets map[uint][]*Client
	count   int
	closed  bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{sockets: make(map[uint][]*Client)}
}

// Name labels the hub in metrics.
func (h *Hub) Name() string { return "notification hub" }

// Register adds a socket for userID, enforcing the per-user and global limits.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed, h.count >= maxTotalConns:
		return nil, ErrServerFull
	case len(h.sockets[userID]) >= maxConnsPerUser:
		return nil, ErrUserFull
	}

	c := newClient(h, conn, userID)
	h.sockets[userID] = append(h.sockets[userID], c)
	h.count++
	observability.WebSocketConnections.Inc()
	return c, nil
}

// UnregisterClient drops c and closes its queue. Calling it twice is harmless.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.sockets[c.userID]
	i := slices.Index(list, c)
	if i < 0 {
		return
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(h.sockets, c.userID)
	} else {
		h.sockets[c.userID] = list
	}
	h.count--
	observability.WebSocketConnections.Dec()
	c.close("")
}

// Broadcast queues message on every socket of userID.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	targets := slices.Clone(h.sockets[userID])
	h.mu.RUnlock()

	data := []byte(message)
	for _, c := range targets {
		c.TrySend(data)
	}
}

// IsOnline reports whether userID has an open socket here.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sockets[userID]) > 0
}

// ConnectionCount returns the number of open sockets across all users.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// StartWiring forwards messages published on any user channel to that user's
// sockets on this instance.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.SubscribeUsers(ctx, func(userID uint, payload string) {
		h.Broadcast(userID, payload)
	})
}

// Shutdown asks every socket to close with a going-away frame and refuses new
// registrations. The frames are written by each client's write pump.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for _, list := range h.sockets {
		for _, c := range list {
			observability.WebSocketConnections.Dec()
			c.close("Server shutting down")
		}
	}
	middleware.Logger.Info("notification hub closed", slog.Int("connections", h.count))
	clear(h.sockets)
	h.count = 0
	return nil
}
