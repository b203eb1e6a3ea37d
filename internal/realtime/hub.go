package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/notify"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventModeration is the feed event carrying a notify.Notice.
	EventModeration = "moderation"
)

// Hub keeps the connected admin feed clients and broadcasts moderation activity to them.
// With Redis configured, notices go through pub/sub so every server instance delivers them.
type Hub struct {
	clients   map[string]*Client
	cancelSub func()
	mu        sync.RWMutex
	logger    *zap.Logger
	redis     RedisPublisher
	redisSub  RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishFeedEvent(ctx context.Context, event string, payload []byte) error
}

// RedisSubscriber subscribes to the feed channel and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeFeed(handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client. The Redis subscription starts with the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if len(h.clients) == 0 && h.redisSub != nil && h.cancelSub == nil {
		cancel, err := h.redisSub.SubscribeFeed(func(event string, payload []byte) {
			h.Broadcast(event, json.RawMessage(payload))
		})
		if err != nil {
			h.logger.Warn("feed subscribe failed", zap.Error(err))
		} else {
			h.cancelSub = cancel
		}
	}
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("feed client joined", zap.String("client_id", c.ID), zap.String("account_id", c.AccountID))
}

// Unregister removes a client. The Redis subscription stops when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	if len(h.clients) == 0 && h.cancelSub != nil {
		h.cancelSub()
		h.cancelSub = nil
	}
	h.mu.Unlock()
	h.logger.Debug("feed client left", zap.String("client_id", c.ID))
}

// Broadcast sends a message to all local clients.
func (h *Hub) Broadcast(event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish implements notify.Publisher. With Redis the subscriber callback performs the
// broadcast once for all instances, this one included.
func (h *Hub) Publish(ctx context.Context, n notify.Notice) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	if h.redis != nil {
		err := h.redis.PublishFeedEvent(ctx, EventModeration, data)
		if err == nil {
			return
		}
		h.logger.Warn("feed publish failed, delivering locally", zap.Error(err))
	}
	h.Broadcast(EventModeration, json.RawMessage(data))
}

// Count returns the number of connected clients on this instance.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// send delivers a message to one client.
func (h *Hub) send(clientID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}
