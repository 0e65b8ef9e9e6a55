package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"member-portal-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "notification_events"

// Hub tracks connected clients per user (multi-device) and fans out push
// payloads. With redis configured it also relays across instances so a user
// connected to another node still receives the push.
type Hub struct {
	clients    map[uuid.UUID][]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// instanceID tags every relayed envelope so the cluster loop can drop
	// this instance's own messages; local delivery already happened before
	// publishing.
	instanceID string

	rdb    *redis.Client
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		instanceID: uuid.NewString(),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeCluster()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Debug("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

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
				}
			}
			h.mu.Unlock()
		}
	}
}

// Push implements the notification service's push channel. Returns true when
// the payload reached at least one local connection or was relayed to the
// cluster channel.
func (h *Hub) Push(userID uuid.UUID, payload interface{}) bool {
	data, err := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": payload,
	})
	if err != nil {
		return false
	}

	delivered := h.deliverLocal(userID, data)

	if h.rdb != nil {
		envelope, _ := json.Marshal(clusterEnvelope{Origin: h.instanceID, TargetUserID: userID.String(), Message: data})
		if err := h.rdb.Publish(context.Background(), clusterChannel, envelope).Err(); err != nil {
			h.logger.Warn("Hub", "Cluster relay failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		} else {
			delivered = true
		}
	}
	return delivered
}

// Broadcast pushes a payload to every connected client on every instance.
func (h *Hub) Broadcast(payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": payload,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	for userID := range h.clients {
		h.deliverLocalLocked(userID, data)
	}
	h.mu.RUnlock()

	if h.rdb != nil {
		envelope, _ := json.Marshal(clusterEnvelope{Origin: h.instanceID, TargetUserID: "*", Message: data})
		h.rdb.Publish(context.Background(), clusterChannel, envelope)
	}
}

func (h *Hub) deliverLocal(userID uuid.UUID, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deliverLocalLocked(userID, data)
}

// deliverLocalLocked requires h.mu held (read lock is enough; slow clients
// are evicted via the unregister channel, not inline).
func (h *Hub) deliverLocalLocked(userID uuid.UUID, data []byte) bool {
	clients, ok := h.clients[userID]
	if !ok {
		return false
	}

	delivered := false
	for _, client := range clients {
		select {
		case client.Send <- data:
			delivered = true
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
	return delivered
}

type clusterEnvelope struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func (h *Hub) subscribeCluster() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.handleClusterMessage([]byte(msg.Payload))
	}
}

func (h *Hub) handleClusterMessage(payload []byte) {
	var envelope clusterEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.Warn("Hub", "Malformed cluster message", map[string]interface{}{"error": err.Error()})
		return
	}

	// Redis fans out to every subscriber, this instance included. Local
	// delivery already happened at publish time, so a self-originated
	// envelope would arrive twice.
	if envelope.Origin == h.instanceID {
		return
	}

	if envelope.TargetUserID == "*" {
		h.mu.RLock()
		for userID := range h.clients {
			h.deliverLocalLocked(userID, envelope.Message)
		}
		h.mu.RUnlock()
		return
	}

	userID, err := uuid.Parse(envelope.TargetUserID)
	if err != nil {
		return
	}
	h.deliverLocal(userID, envelope.Message)
}
