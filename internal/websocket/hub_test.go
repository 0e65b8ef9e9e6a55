package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func attachClient(h *Hub, userID uuid.UUID) *Client {
	client := &Client{Hub: h, UserID: userID, Send: make(chan []byte, 4)}
	h.mu.Lock()
	h.clients[userID] = append(h.clients[userID], client)
	h.mu.Unlock()
	return client
}

func TestPushDeliversLocally(t *testing.T) {
	hub := NewHub(nil, nopLogger{})
	userID := uuid.New()
	client := attachClient(hub, userID)

	assert.True(t, hub.Push(userID, map[string]string{"title": "hello"}))

	var frame struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-client.Send, &frame))
	assert.Equal(t, "notification", frame.Type)
	assert.Equal(t, "hello", frame.Data["title"])

	assert.False(t, hub.Push(uuid.New(), map[string]string{"title": "nobody"}))
}

func TestClusterMessageSkipsOwnEnvelopes(t *testing.T) {
	hub := NewHub(nil, nopLogger{})
	userID := uuid.New()
	client := attachClient(hub, userID)

	message, _ := json.Marshal(map[string]string{"type": "notification"})
	own, _ := json.Marshal(clusterEnvelope{Origin: hub.instanceID, TargetUserID: userID.String(), Message: message})
	foreign, _ := json.Marshal(clusterEnvelope{Origin: uuid.NewString(), TargetUserID: userID.String(), Message: message})

	hub.handleClusterMessage(own)
	assert.Empty(t, client.Send, "self-originated envelope must not be redelivered")

	hub.handleClusterMessage(foreign)
	require.Len(t, client.Send, 1)
	assert.JSONEq(t, string(message), string(<-client.Send))
}

func TestClusterBroadcastSkipsOwnEnvelopes(t *testing.T) {
	hub := NewHub(nil, nopLogger{})
	first := attachClient(hub, uuid.New())
	second := attachClient(hub, uuid.New())

	message, _ := json.Marshal(map[string]string{"type": "notification"})
	own, _ := json.Marshal(clusterEnvelope{Origin: hub.instanceID, TargetUserID: "*", Message: message})
	foreign, _ := json.Marshal(clusterEnvelope{Origin: uuid.NewString(), TargetUserID: "*", Message: message})

	hub.handleClusterMessage(own)
	assert.Empty(t, first.Send)
	assert.Empty(t, second.Send)

	hub.handleClusterMessage(foreign)
	assert.Len(t, first.Send, 1)
	assert.Len(t, second.Send, 1)
}
