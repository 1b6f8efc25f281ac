package liveevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_NotifyReachesSubscriber(t *testing.T) {
	hub := NewHub()

	sub, backlog, err := hub.Subscribe("session-1")
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)

	hub.Notify("session-1", JobUpdate{JobID: "job-1", Status: "completed"})

	update := <-sub.Updates()
	assert.Equal(t, "job-1", update.JobID)
	assert.Equal(t, "completed", update.Status)
}

func TestHub_BufferReplayForLateSubscriber(t *testing.T) {
	hub := NewHub()

	// A first subscriber keeps the stream alive across the notify.
	keepalive, _, err := hub.Subscribe("session-1")
	require.NoError(t, err)
	defer keepalive.Close()

	hub.Notify("session-1", JobUpdate{JobID: "job-1", Status: "failed", Error: "all providers failed"})

	late, backlog, err := hub.Subscribe("session-1")
	require.NoError(t, err)
	defer late.Close()

	require.Len(t, backlog, 1)
	assert.Equal(t, "job-1", backlog[0].JobID)
	assert.Equal(t, "all providers failed", backlog[0].Error)
}

func TestHub_NotifyWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Notify("session-x", JobUpdate{JobID: "job-1"})
	hub.Notify("", JobUpdate{JobID: "job-1"})
}

func TestHub_SlowSubscriberDropsUpdates(t *testing.T) {
	hub := NewHub()

	sub, _, err := hub.Subscribe("session-1")
	require.NoError(t, err)
	defer sub.Close()

	// Flood past the subscriber channel buffer; Notify must never block.
	for i := 0; i < DefaultSubscriberBuffer*3; i++ {
		hub.Notify("session-1", JobUpdate{JobID: "job", Status: "completed"})
	}

	received := 0
	for {
		select {
		case <-sub.Updates():
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, DefaultSubscriberBuffer, received)
}

func TestHub_BufferIsBounded(t *testing.T) {
	hub := NewHub()

	keepalive, _, err := hub.Subscribe("session-1")
	require.NoError(t, err)
	defer keepalive.Close()

	for i := 0; i < DefaultBufferSize*2; i++ {
		hub.Notify("session-1", JobUpdate{JobID: "job", Status: "completed"})
	}

	_, backlog, err := hub.Subscribe("session-1")
	require.NoError(t, err)
	assert.Len(t, backlog, DefaultBufferSize)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	hub := NewHub()

	sub, _, err := hub.Subscribe("session-1")
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	// Stream is gone once its last subscriber leaves; a new notify is dropped.
	hub.Notify("session-1", JobUpdate{JobID: "job-1"})

	_, backlog, err := hub.Subscribe("session-1")
	require.NoError(t, err)
	assert.Empty(t, backlog)
}

func TestSubscribe_EmptySessionRejected(t *testing.T) {
	hub := NewHub()
	_, _, err := hub.Subscribe("  ")
	assert.Error(t, err)
}
