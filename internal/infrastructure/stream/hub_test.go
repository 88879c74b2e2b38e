package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
	"github.com/pingtools/usersync/internal/infrastructure/stream"
)

func TestPublishWithoutReceiverBuffersAndReportsFailure(t *testing.T) {
	t.Parallel()

	hub := stream.NewHub(nil)

	delivered := hub.Publish("sess-0001", domain.Event{Type: domain.EventProgress, Current: 1})
	assert.False(t, delivered)

	ch, cancel := hub.Subscribe("sess-0001")
	defer cancel()

	ev := <-ch
	assert.Equal(t, domain.EventProgress, ev.Type)
	assert.Equal(t, 1, ev.Current)
}

func TestReplayPreservesOrder(t *testing.T) {
	t.Parallel()

	hub := stream.NewHub(nil)
	for i := 1; i <= 5; i++ {
		hub.Publish("sess-0002", domain.Event{Type: domain.EventProgress, Current: i})
	}
	hub.Publish("sess-0002", domain.Event{Type: domain.EventCompletion, Current: 5})

	ch, cancel := hub.Subscribe("sess-0002")
	defer cancel()

	for i := 1; i <= 5; i++ {
		ev := <-ch
		require.Equal(t, i, ev.Current)
		require.Equal(t, domain.EventProgress, ev.Type)
	}
	ev := <-ch
	require.Equal(t, domain.EventCompletion, ev.Type)
}

func TestPublishToLiveReceiverSucceeds(t *testing.T) {
	t.Parallel()

	hub := stream.NewHub(nil)
	ch, cancel := hub.Subscribe("sess-0003")
	defer cancel()

	assert.True(t, hub.Publish("sess-0003", domain.Event{Type: domain.EventProgress}))
	<-ch
}

func TestCloseEndsStreamAfterDeliveredEvents(t *testing.T) {
	t.Parallel()

	hub := stream.NewHub(nil)
	ch, cancel := hub.Subscribe("sess-0004")
	defer cancel()

	hub.Publish("sess-0004", domain.Event{Type: domain.EventCompletion})
	hub.Close("sess-0004")

	ev, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, domain.EventCompletion, ev.Type)

	_, ok = <-ch
	assert.False(t, ok, "channel should be closed")

	// publishing after close buffers for a receiver that never comes
	assert.False(t, hub.Publish("sess-0004", domain.Event{Type: domain.EventProgress}))
}

func TestSecondSubscribeReplacesFirst(t *testing.T) {
	t.Parallel()

	hub := stream.NewHub(nil)
	first, cancelFirst := hub.Subscribe("sess-0005")
	defer cancelFirst()

	second, cancelSecond := hub.Subscribe("sess-0005")
	defer cancelSecond()

	_, ok := <-first
	assert.False(t, ok, "first receiver should be closed out")

	hub.Publish("sess-0005", domain.Event{Type: domain.EventProgress})
	ev := <-second
	assert.Equal(t, domain.EventProgress, ev.Type)
}
