package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var got Message
		require.NoError(t, json.Unmarshal(data, &got))
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "alice")
	c2 := mockClient(hub, "alice")
	c3 := mockClient(hub, "bob")
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	assert.Equal(t, 3, hub.ClientCount())
	assert.Equal(t, 2, hub.UserClientCount("alice"))

	hub.Unregister(c1)
	hub.Unregister(c1)
	assert.Equal(t, 1, hub.UserClientCount("alice"))

	hub.Unregister(c2)
	hub.Unregister(c3)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestPublishOnlyReachesUser(t *testing.T) {
	hub := NewHub(slog.Default())
	alice := mockClient(hub, "alice")
	bob := mockClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	hub.Publish("alice", NewMessage("notification", "created", "n1", map[string]any{"unread_count": 3}))

	got := receive(t, alice)
	assert.Equal(t, "notification_created", got.Type)
	assert.Equal(t, "n1", got.ID)
	assert.EqualValues(t, 3, got.Extra["unread_count"])

	select {
	case <-bob.send:
		t.Fatal("bob should not receive alice's event")
	default:
	}
}

func TestPublishFullBufferDrops(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "alice")
	hub.Register(c)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Publish("alice", NewMessage("test", "fill", "", nil))
	}
	assert.Len(t, c.send, sendBufferSize)
	hub.Unregister(c)
}

func TestDisconnect(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "alice")
	hub.Register(c)

	hub.Disconnect("alice", NewMessage("session", "revoked", "", nil))
	assert.Equal(t, 0, hub.ClientCount())

	got := receive(t, c)
	assert.Equal(t, "session_revoked", got.Type)
	_, ok := <-c.send
	assert.False(t, ok)

	// Run's deferred unregister must not double close.
	hub.Unregister(c)
}

func TestHandlerEndToEnd(t *testing.T) {
	hub := NewHub(slog.Default())
	userOf := func(r *http.Request) (string, bool) {
		id := r.URL.Query().Get("user")
		return id, id != ""
	}
	server := httptest.NewServer(Handler(hub, userOf, []string{"*"}, slog.Default()))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?user=alice"
	conn, _, err := ws.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return hub.UserClientCount("alice") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("alice", NewMessage("notification", "created", "n1", nil))
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "notification_created", got.Type)

	conn.Close(ws.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsAnonymous(t *testing.T) {
	hub := NewHub(slog.Default())
	userOf := func(r *http.Request) (string, bool) { return "", false }
	server := httptest.NewServer(Handler(hub, userOf, []string{"*"}, slog.Default()))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
