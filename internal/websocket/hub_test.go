package websocket

import (
	"testing"

	"minitalk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconnectSupersedesPreviousSocket(t *testing.T) {
	logger.Init()
	hub := NewHub()

	first := NewClient(nil, hub, "user-1", "web")
	second := NewClient(nil, hub, "user-1", "web")

	hub.registerClient(first)
	hub.registerClient(second)

	// The superseded socket's read pump can still deliver a frame after
	// the hub released its send channel; it must fail, not panic.
	err := first.SendMessage(NewWSMessage(MessageTypeHeartbeat, "", nil))
	require.Error(t, err)

	require.NoError(t, second.SendMessage(NewWSMessage(MessageTypeHeartbeat, "", nil)))

	assert.True(t, hub.IsUserOnline("user-1"))

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Same(t, second, hub.userClients["user-1"])
	assert.NotContains(t, hub.clients, first)
	assert.Contains(t, hub.clients, second)
}

func TestClientCloseIsIdempotent(t *testing.T) {
	logger.Init()
	hub := NewHub()
	client := NewClient(nil, hub, "user-2", "web")

	client.close()
	client.close()

	assert.Error(t, client.SendMessage(NewWSMessage(MessageTypeHeartbeat, "", nil)))
}
