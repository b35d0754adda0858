package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// EventNotification is the websocket event carrying a new notification.
const EventNotification = "notification"

// Subscriber subscribes to a user's channel and invokes handler for incoming events.
type Subscriber interface {
	SubscribeUser(userID int64, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains user_id -> set of connections. Events arrive through Redis so that any
// instance holding a user's socket receives what the worker publishes.
type Hub struct {
	users       map[int64]map[string]*Client
	subs        map[int64]func()
	subscribing map[int64]bool
	mu          sync.RWMutex
	logger      *zap.Logger
	sub         Subscriber
}

// NewHub creates a new WebSocket hub. sub may be nil for a single-process setup.
func NewHub(logger *zap.Logger, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		users:       make(map[int64]map[string]*Client),
		subs:        make(map[int64]func()),
		subscribing: make(map[int64]bool),
		logger:      logger,
		sub:         sub,
	}
}

// Register adds a client. Starts the Redis subscription for the user on their first connection.
// The subscribe round-trip runs outside the lock.
func (h *Hub) Register(c *Client) {
	userID := c.UserID
	h.mu.Lock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[string]*Client)
	}
	h.users[userID][c.ID] = c
	subscribe := h.sub != nil && h.subs[userID] == nil && !h.subscribing[userID]
	if subscribe {
		h.subscribing[userID] = true
	}
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.Int64("user_id", userID))
	if !subscribe {
		return
	}

	cancel, err := h.sub.SubscribeUser(userID, func(event string, payload []byte) {
		h.SendToUser(userID, event, json.RawMessage(payload))
	})

	h.mu.Lock()
	delete(h.subscribing, userID)
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("subscribe user channel failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if len(h.users[userID]) == 0 {
		// Every socket closed while subscribing.
		h.mu.Unlock()
		cancel()
		return
	}
	h.subs[userID] = cancel
	h.mu.Unlock()
}

// Unregister removes a client. Cancels the Redis subscription when the user's last socket closes.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	m, ok := h.users[c.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := m[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(m, c.ID)
	close(c.send)
	var cancel func()
	if len(m) == 0 {
		delete(h.users, c.UserID)
		cancel = h.subs[c.UserID]
		delete(h.subs, c.UserID)
	}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID))
}

// SendToUser delivers an event to every local socket of userID. Slow clients drop messages.
func (h *Hub) SendToUser(userID int64, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.users[userID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full, dropping", zap.String("client_id", c.ID))
		}
	}
}

// Connections returns the number of local sockets open for userID.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
