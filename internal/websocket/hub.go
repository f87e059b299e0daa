package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"chatgpt-clone-be/internal/pkg/logger"
	"chatgpt-clone-be/pkg/stream"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans chat updates out to a user's connected devices: the device that
// submitted a turn streams it over HTTP, every other device of the same user
// mirrors it over the socket. Redis relays the same payloads across
// instances; without Redis the hub is single-instance only.
type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyTurnEvent mirrors one turn update to the owner's devices.
func (h *Hub) NotifyTurnEvent(userId, sessionId uuid.UUID, ev stream.TurnEvent) {
	payload := map[string]interface{}{
		"type":       "turn_event",
		"session_id": sessionId.String(),
		"event":      ev.Type.String(),
	}
	if ev.Message != nil {
		payload["message"] = ev.Message
	}
	if ev.Delta != "" {
		payload["delta"] = ev.Delta
	}
	if ev.Err != nil {
		payload["error"] = ev.Err.Error()
	}

	h.send(userId, payload)
}

// NotifySessionsChanged tells the owner's devices to refetch the sidebar.
func (h *Hub) NotifySessionsChanged(userId uuid.UUID) {
	h.send(userId, map[string]interface{}{
		"type": "sessions_changed",
	})
}

func (h *Hub) send(userId uuid.UUID, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal payload", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	clients, localFound := h.clients[userId]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				// Stalled device: evict it. Run owns the channel close, so
				// only enqueue the unregister here.
				h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"user_id": userId})
				h.unregister <- client
			}
		}
	}

	// Other instances may hold more of this user's devices.
	if h.rdb != nil {
		relay := map[string]interface{}{
			"target_user_id": userId.String(),
			"message":        data,
		}
		jsonRelay, _ := json.Marshal(relay)
		h.rdb.Publish(context.Background(), "cluster_events", jsonRelay)
	}
}

// subscribeToRedis delivers payloads relayed from other instances. Every
// instance subscribes to "cluster_events" and forwards to the target user's
// local clients only.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[uid]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					h.unregister <- client
				}
			}
		}
	}
}
