package websocket

import (
	"testing"
	"time"

	"chatgpt-clone-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func waitForClients(t *testing.T, hub *Hub, userId uuid.UUID, n int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients[userId]) == n
	}, time.Second, 5*time.Millisecond)
}

func TestStalledClientIsEvictedWithoutKillingTheHub(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run()

	userId := uuid.New()
	stalled := &Client{Hub: hub, UserID: userId, Send: make(chan []byte)} // nobody drains
	hub.register <- stalled
	waitForClients(t, hub, userId, 1)

	// Fan-out to a client that never reads must evict it. A panic in the hub
	// goroutine would crash the test binary here.
	hub.NotifySessionsChanged(userId)

	assert.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.clients[userId]
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "stalled client should be unregistered")

	// Eviction closed the channel exactly once, in Run.
	select {
	case _, open := <-stalled.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("stalled client's channel was never closed")
	}

	// The hub is still alive and delivering.
	healthy := &Client{Hub: hub, UserID: userId, Send: make(chan []byte, 4)}
	hub.register <- healthy
	waitForClients(t, hub, userId, 1)
	hub.NotifySessionsChanged(userId)

	select {
	case msg := <-healthy.Send:
		assert.Contains(t, string(msg), "sessions_changed")
	case <-time.After(time.Second):
		t.Fatal("hub stopped delivering after evicting a stalled client")
	}
}
