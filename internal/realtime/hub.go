package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub tracks the sockets of connected users on this instance.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *slog.Logger
	mu         sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations until ctx is done. Run it as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[c.userID]; !ok {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()
			h.logger.Debug("realtime client registered", "user_id", c.userID)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
			h.logger.Debug("realtime client unregistered", "user_id", c.userID)
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *Client) {
	clients, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := clients[c]; ok {
		delete(clients, c)
		close(c.send)
		if len(clients) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for c := range clients {
			h.remove(c)
		}
	}
}

// Register adds c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Deliver hands msg to every socket of userID. Slow clients drop the frame.
func (h *Hub) Deliver(userID string, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
			n++
		default:
			h.logger.Warn("realtime client buffer full, frame dropped", "user_id", userID)
		}
	}
	return n
}

// Connected reports how many sockets userID has on this instance.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Listen subscribes to every user channel on Redis and delivers incoming frames
// until ctx is done.
func (h *Hub) Listen(ctx context.Context, rdb redis.UniversalClient) error {
	sub := rdb.PSubscribe(ctx, redisChannel(UserChannel("*")))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	h.logger.Info("realtime hub subscribed", "pattern", redisChannel(UserChannel("*")))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			userID, ok := userFromRedisChannel(m.Channel)
			if !ok {
				continue
			}
			h.Deliver(userID, []byte(m.Payload))
		}
	}
}
