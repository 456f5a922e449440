package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func TestHubSayReachesRoomSubscribersOnly(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()

	ops, err := hub.Subscribe(ctx, "ops")
	require.NoError(t, err)
	dev, err := hub.Subscribe(ctx, "dev")
	require.NoError(t, err)

	require.NoError(t, hub.Say(ctx, "ops", "Connected to IRC channel #foo"))

	got := mustPost(t, ops.Posts)
	assert.Equal(t, "ops", got.Room)
	assert.Equal(t, "Connected to IRC channel #foo", got.Text)
	assert.False(t, got.CreatedAt.IsZero())
	noPost(t, dev.Posts)
}

func TestHubUnsubscribeClosesPosts(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()

	s, err := hub.Subscribe(ctx, "ops")
	require.NoError(t, err)
	hub.Unsubscribe(s)

	select {
	case _, ok := <-s.Posts:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("posts channel not closed")
	}

	require.NoError(t, hub.Say(ctx, "ops", "nobody is listening"))
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub, _ := startHub(t)
	ctx := context.Background()

	slow, err := hub.Subscribe(ctx, "ops")
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, hub.Say(ctx, "ops", "flood"))
	}
	// A sync point: once this subscribe is handled every Say before it has been too.
	_, err = hub.Subscribe(ctx, "other")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(slow.Posts) == subscriberBuffer }, time.Second, 5*time.Millisecond)
}

func TestHubStopped(t *testing.T) {
	hub, cancel := startHub(t)
	ctx := context.Background()

	s, err := hub.Subscribe(ctx, "ops")
	require.NoError(t, err)
	require.NoError(t, hub.Say(ctx, "ops", "sync"))
	mustPost(t, s.Posts)

	cancel()
	<-hub.done

	_, ok := <-s.Posts
	assert.False(t, ok, "subscribers are closed on shutdown")
	assert.ErrorIs(t, hub.Say(ctx, "ops", "late"), ErrHubStopped)
}
