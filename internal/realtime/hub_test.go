package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *client) []Message {
	var msgs []Message
	for {
		select {
		case msg := <-c.send:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestRegistryTracksConnectionsPerIdentity(t *testing.T) {
	hub := NewHub()

	c1 := newClient(hub, nil, "user-1")
	c2 := newClient(hub, nil, "user-1")
	hub.register(c1)
	hub.register(c2)

	conns := hub.ConnectionsOf("user-1")
	assert.ElementsMatch(t, []string{c1.id, c2.id}, conns)

	hub.unregister(c1.id)
	assert.ElementsMatch(t, []string{c2.id}, hub.ConnectionsOf("user-1"))

	hub.unregister(c2.id)
	assert.Empty(t, hub.ConnectionsOf("user-1"))

	hub.mu.RLock()
	_, present := hub.clients["user-1"]
	hub.mu.RUnlock()
	assert.False(t, present, "identity should be removed once its last connection closes")
}

func TestResolveIdentity(t *testing.T) {
	hub := NewHub()

	c := newClient(hub, nil, "user-7")
	hub.register(c)

	userID, ok := hub.ResolveIdentity(c.id)
	require.True(t, ok)
	assert.Equal(t, "user-7", userID)

	hub.unregister(c.id)
	_, ok = hub.ResolveIdentity(c.id)
	assert.False(t, ok)
}

func TestUnregisterUnknownConnectionIsNoOp(t *testing.T) {
	hub := NewHub()
	hub.unregister("missing")
	assert.Empty(t, hub.ConnectionsOf("anyone"))
}

func TestEmitToUserFansOutToAllConnections(t *testing.T) {
	hub := NewHub()

	c1 := newClient(hub, nil, "user-1")
	c2 := newClient(hub, nil, "user-1")
	other := newClient(hub, nil, "user-2")
	hub.register(c1)
	hub.register(c2)
	hub.register(other)

	hub.EmitToUser("user-1", "notification:follow", map[string]string{"id": "n-1"})

	for _, c := range []*client{c1, c2} {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		assert.Equal(t, "notification:follow", msgs[0].Event)
	}
	assert.Empty(t, drain(other), "unrelated identity must not receive the push")
}

func TestEmitToUserWithoutConnectionsIsSilent(t *testing.T) {
	hub := NewHub()

	assert.NotPanics(t, func() {
		hub.EmitToUser("ghost", "notification:like", map[string]string{"id": "n-1"})
	})
}

func TestEnqueueDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := newClient(hub, nil, "user-1")
	hub.register(c)

	for i := 0; i < defaultBufferSize+10; i++ {
		hub.EmitToUser("user-1", "MESSAGE", i)
	}

	assert.Len(t, drain(c), defaultBufferSize, "overflow must be dropped, not block the sender")
}

func TestEnqueueAfterCloseIsDiscarded(t *testing.T) {
	hub := NewHub()
	c := newClient(hub, nil, "user-1")
	hub.register(c)

	c.close()

	// A reply produced by a command that raced the disconnect must be
	// dropped, not sent on the closed channel.
	assert.NotPanics(t, func() {
		c.enqueue(Message{Event: "notifications:getUnread", Data: 1})
	})

	_, ok := hub.ResolveIdentity(c.id)
	assert.False(t, ok, "closing must unregister the connection")
}

func TestCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	c := newClient(hub, nil, "user-1")
	hub.register(c)

	assert.NotPanics(t, func() {
		c.close()
		c.close()
	})
}

func TestDispatchRoutesToRegisteredCommand(t *testing.T) {
	hub := NewHub()
	hub.HandleFunc("notifications:getUnread", func(_ context.Context, userID string, _ json.RawMessage) (any, error) {
		return map[string]any{"count": 3, "user": userID}, nil
	})

	c := newClient(hub, nil, "user-1")
	hub.register(c)

	c.dispatch(context.Background(), Envelope{Event: "notifications:getUnread"})

	msgs := drain(c)
	require.Len(t, msgs, 1)
	assert.Equal(t, "notifications:getUnread", msgs[0].Event)
	assert.Nil(t, msgs[0].Success)

	payload, ok := msgs[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user-1", payload["user"])
}

func TestDispatchRejectsUnknownEvent(t *testing.T) {
	hub := NewHub()
	c := newClient(hub, nil, "user-1")
	hub.register(c)

	c.dispatch(context.Background(), Envelope{Event: "notifications:bogus"})

	msgs := drain(c)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Success)
	assert.False(t, *msgs[0].Success)
	assert.Equal(t, "unsupported event", msgs[0].Message)
}

func TestDispatchRejectsUnregisteredConnection(t *testing.T) {
	hub := NewHub()
	hub.HandleFunc("notifications:get", func(context.Context, string, json.RawMessage) (any, error) {
		t.Fatal("command must not run for an unregistered connection")
		return nil, nil
	})

	c := newClient(hub, nil, "user-1")
	// never registered

	c.dispatch(context.Background(), Envelope{Event: "notifications:get"})

	msgs := drain(c)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Unauthorized", msgs[0].Message)
}
