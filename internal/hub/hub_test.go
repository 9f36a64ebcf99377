package hub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoh2o/portal/internal/hub"
)

func newSubscriber(userID string, buffer int) *hub.Subscriber {
	return &hub.Subscriber{UserID: userID, Send: make(chan []byte, buffer)}
}

func receive(t *testing.T, sub *hub.Subscriber) []byte {
	t.Helper()
	select {
	case payload := <-sub.Send:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestHub_DeliversOnlyToOwningIdentity(t *testing.T) {
	h := hub.NewHub()
	go h.Run()

	amina := newSubscriber("user:amina", 4)
	omar := newSubscriber("user:omar", 4)
	h.Register <- amina
	h.Register <- omar

	h.SendToUser("user:amina", []byte("toast"))

	assert.Equal(t, []byte("toast"), receive(t, amina))
	select {
	case payload := <-omar.Send:
		t.Fatalf("payload leaked across identities: %q", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_FansOutToAllStreamsOfOneIdentity(t *testing.T) {
	h := hub.NewHub()
	go h.Run()

	first := newSubscriber("user:amina", 4)
	second := newSubscriber("user:amina", 4)
	h.Register <- first
	h.Register <- second

	h.SendToUser("user:amina", []byte("badge"))

	assert.Equal(t, []byte("badge"), receive(t, first))
	assert.Equal(t, []byte("badge"), receive(t, second))
}

func TestHub_UnregisterClosesSendChannel(t *testing.T) {
	h := hub.NewHub()
	go h.Run()

	sub := newSubscriber("user:amina", 4)
	h.Register <- sub
	h.Unregister <- sub

	select {
	case _, open := <-sub.Send:
		assert.False(t, open, "send channel must be closed on unregister")
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHub_EvictsSlowSubscriber(t *testing.T) {
	h := hub.NewHub()
	go h.Run()

	slow := newSubscriber("user:amina", 1)
	h.Register <- slow

	// Fill the buffer, then send once more: the second delivery cannot be
	// buffered and must evict the subscriber.
	h.SendToUser("user:amina", []byte("one"))
	h.SendToUser("user:amina", []byte("two"))

	payload, open := <-slow.Send
	require.True(t, open)
	assert.Equal(t, []byte("one"), payload)

	_, open = <-slow.Send
	assert.False(t, open, "slow subscriber must be evicted and its channel closed")
}
