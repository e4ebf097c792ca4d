package services

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures lifecycle callbacks for assertions.
type recordingHandler struct {
	mu           sync.Mutex
	disconnected []string
}

func (r *recordingHandler) HandleConnect(*Client)         {}
func (r *recordingHandler) HandleMessage(*Client, []byte) {}

func (r *recordingHandler) HandleDisconnect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, c.username)
}

func (r *recordingHandler) disconnects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.disconnected...)
}

// newTestClient builds a hub client with no underlying socket; tests read
// outbound events straight off the send channel.
func newTestClient(h *Hub, gameID, username string, buffer int) *Client {
	return &Client{
		hub:      h,
		id:       uuid.NewString(),
		send:     make(chan []byte, buffer),
		gameID:   gameID,
		username: username,
	}
}

// recvEvent pops one queued event off the client and decodes it.
func recvEvent(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()

	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed for %s", c.username)
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	default:
		t.Fatalf("no event queued for %s", c.username)
		return nil
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	assert.Empty(t, c.send, "unexpected event queued for %s", c.username)
}

func drainEvents(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	alice := newTestClient(hub, "AB12CD", "alice", 8)
	bob := newTestClient(hub, "AB12CD", "bob", 8)
	other := newTestClient(hub, "FFFFFF", "carol", 8)
	hub.addClient(alice)
	hub.addClient(bob)
	hub.addClient(other)

	hub.BroadcastToGame("AB12CD", ChatEvent{Type: "chat_message", Sender: "alice", Text: "hi"})

	for _, c := range []*Client{alice, bob} {
		event := recvEvent(t, c)
		assert.Equal(t, "chat_message", event["type"])
		assert.Equal(t, "hi", event["text"])
	}
	assertNoEvent(t, other)
}

func TestBroadcastDropsSlowClientOnly(t *testing.T) {
	hub := NewHub()
	alice := newTestClient(hub, "AB12CD", "alice", 8)
	stuck := newTestClient(hub, "AB12CD", "bob", 0) // zero buffer: always full
	hub.addClient(alice)
	hub.addClient(stuck)

	hub.BroadcastToGame("AB12CD", GameStatusEvent{Type: "game_status_update", Status: StatusActive})

	event := recvEvent(t, alice)
	assert.Equal(t, "game_status_update", event["type"])

	// The stuck client is gone and its channel closed; alice is untouched.
	assert.Equal(t, 1, hub.GameConnectionCount("AB12CD"))
	_, ok := <-stuck.send
	assert.False(t, ok)
}

func TestReconnectReplacesHandle(t *testing.T) {
	hub := NewHub()
	first := newTestClient(hub, "AB12CD", "alice", 8)
	second := newTestClient(hub, "AB12CD", "alice", 8)
	hub.addClient(first)
	hub.addClient(second)

	assert.Equal(t, 1, hub.GameConnectionCount("AB12CD"))

	// The replaced handle is closed and no longer counts as registered.
	_, ok := <-first.send
	assert.False(t, ok)
	assert.False(t, hub.removeClient(first))

	hub.BroadcastToGame("AB12CD", ChatEvent{Type: "chat_message", Sender: "alice", Text: "back"})
	event := recvEvent(t, second)
	assert.Equal(t, "back", event["text"])
}

func TestRemoveClientCleansUpGame(t *testing.T) {
	hub := NewHub()
	alice := newTestClient(hub, "AB12CD", "alice", 8)
	hub.addClient(alice)

	assert.True(t, hub.removeClient(alice))
	assert.Equal(t, 0, hub.GameConnectionCount("AB12CD"))

	// Broadcasting into an empty game is a no-op.
	hub.BroadcastToGame("AB12CD", ChatEvent{Type: "chat_message"})
}

func TestSendToClientIsUnicast(t *testing.T) {
	hub := NewHub()
	alice := newTestClient(hub, "AB12CD", "alice", 8)
	bob := newTestClient(hub, "AB12CD", "bob", 8)
	hub.addClient(alice)
	hub.addClient(bob)

	hub.SendToClient(alice, ErrorEvent{Type: "error", Message: "nope"})

	event := recvEvent(t, alice)
	assert.Equal(t, "error", event["type"])
	assert.Equal(t, "nope", event["message"])
	assertNoEvent(t, bob)
}

func TestSendToDroppedHandleIsNoOp(t *testing.T) {
	hub := NewHub()
	stuck := newTestClient(hub, "AB12CD", "bob", 0)
	hub.addClient(stuck)

	// The broadcast drops bob and closes his channel; a later unicast to the
	// stale handle must be ignored, not sent on the closed channel.
	hub.BroadcastToGame("AB12CD", ChatEvent{Type: "chat_message"})
	require.Equal(t, 0, hub.GameConnectionCount("AB12CD"))

	hub.SendToClient(stuck, ErrorEvent{Type: "error", Message: "late"})
}

func TestSendToReplacedHandleIsNoOp(t *testing.T) {
	hub := NewHub()
	first := newTestClient(hub, "AB12CD", "alice", 8)
	second := newTestClient(hub, "AB12CD", "alice", 8)
	hub.addClient(first)
	hub.addClient(second)

	hub.SendToClient(first, ErrorEvent{Type: "error", Message: "late"})

	assertNoEvent(t, second)
	assert.Equal(t, 1, hub.GameConnectionCount("AB12CD"))
}

func TestSendToClientDropsFullBuffer(t *testing.T) {
	hub := NewHub()
	handler := &recordingHandler{}
	hub.SetHandler(handler)

	stuck := newTestClient(hub, "AB12CD", "bob", 0)
	hub.addClient(stuck)

	hub.SendToClient(stuck, ErrorEvent{Type: "error", Message: "nope"})

	assert.Equal(t, 0, hub.GameConnectionCount("AB12CD"))
	assert.Equal(t, []string{"bob"}, handler.disconnects())
}

func TestForcedDropNotifiesRemainingPeers(t *testing.T) {
	hub := NewHub()
	handler := &recordingHandler{}
	hub.SetHandler(handler)

	alice := newTestClient(hub, "AB12CD", "alice", 8)
	stuck := newTestClient(hub, "AB12CD", "bob", 0)
	hub.addClient(alice)
	hub.addClient(stuck)

	hub.BroadcastToGame("AB12CD", ChatEvent{Type: "chat_message", Sender: "alice", Text: "hi"})

	// The forced drop runs the same disconnect handling as a normal close.
	assert.Equal(t, []string{"bob"}, handler.disconnects())

	// The eventual readPump unregister of the dropped handle must not
	// notify a second time.
	assert.False(t, hub.removeClient(stuck))
	assert.Equal(t, []string{"bob"}, handler.disconnects())
}

func TestConnectedPlayers(t *testing.T) {
	hub := NewHub()
	hub.addClient(newTestClient(hub, "AB12CD", "alice", 1))
	hub.addClient(newTestClient(hub, "AB12CD", "bob", 1))

	assert.ElementsMatch(t, []string{"alice", "bob"}, hub.ConnectedPlayers("AB12CD"))
	assert.Empty(t, hub.ConnectedPlayers("FFFFFF"))
}
