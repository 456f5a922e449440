package wire

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderPreservesOrder(t *testing.T) {
	ch := NewChannel(4)
	sender := NewSender(ch)
	ctx := context.Background()

	require.NoError(t, sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	require.NoError(t, sender.Message(ctx, "ops", "[bob] hi"))
	require.NoError(t, sender.Disconnect(ctx, "ops"))

	assert.Equal(t, "CONNECT|ops;irc://irc.example.com/foo", string(<-ch))
	assert.Equal(t, "MESSAGE|ops;[bob] hi", string(<-ch))
	assert.Equal(t, "DISCONNECT|ops", string(<-ch))
}

func TestSenderBackPressureHonoursContext(t *testing.T) {
	ch := NewChannel(1)
	sender := NewSender(ch)

	require.NoError(t, sender.Message(context.Background(), "ops", "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sender.Message(ctx, "ops", "second")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, ch, 1)
}

func TestNewChannelDefaultSize(t *testing.T) {
	assert.Equal(t, DefaultBufferSize, cap(NewChannel(0)))
}
