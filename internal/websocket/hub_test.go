package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func registerClient(t *testing.T, hub *Hub, watch string) *Client {
	t.Helper()
	client := NewClient(nil, watch)
	hub.Register(client)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.clients[client.ID]
		return ok
	}, time.Second, 5*time.Millisecond)
	return client
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("no message arrived")
		return ""
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := startHub(t)
	a := registerClient(t, hub, "")
	b := registerClient(t, hub, "alice")

	hub.Broadcast([]byte("snapshot"))

	assert.Equal(t, "snapshot", receive(t, a))
	assert.Equal(t, "snapshot", receive(t, b))
	assert.Equal(t, 2, hub.ClientCount())
}

func TestBroadcastUserFiltersByWatch(t *testing.T) {
	hub := startHub(t)
	everything := registerClient(t, hub, "")
	alice := registerClient(t, hub, "alice")
	bob := registerClient(t, hub, "bob")

	hub.BroadcastUser("alice", []byte("progress"))

	assert.Equal(t, "progress", receive(t, everything))
	assert.Equal(t, "progress", receive(t, alice))

	select {
	case msg := <-bob.Send:
		t.Fatalf("client watching bob received %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "")

	hub.Unregister(client)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open)
}

func TestLaggingClientDropsInsteadOfBlocking(t *testing.T) {
	client := NewClient(nil, "")
	for i := 0; i < cap(client.Send)+10; i++ {
		client.SendMessage([]byte("x"))
	}
	assert.Len(t, client.Send, cap(client.Send))
}
