package wire

import (
	"context"
	"fmt"
)

// DefaultBufferSize is the boundary channel capacity used when none is configured.
const DefaultBufferSize = 64

// NewChannel creates the boundary channel shared by a Sender and the engine.
func NewChannel(size int) chan []byte {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return make(chan []byte, size)
}

// Sender writes encoded envelopes to the boundary channel. It never waits for
// a reply; Send blocks only while the channel buffer is full.
type Sender struct {
	out chan<- []byte
}

// NewSender wraps the write end of a boundary channel.
func NewSender(out chan<- []byte) *Sender {
	return &Sender{out: out}
}

// Send encodes and enqueues one instruction.
func (s *Sender) Send(ctx context.Context, kind Kind, room string, argument *string) error {
	data := Encode(Envelope{Kind: kind, Room: room, Argument: argument})

	select {
	case s.out <- data:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send %s for room %q: %w", kind, room, ctx.Err())
	}
}

// Connect asks the engine to open a connection for room.
func (s *Sender) Connect(ctx context.Context, room, url string) error {
	return s.Send(ctx, KindConnect, room, Arg(url))
}

// Disconnect asks the engine to drop the connection for room.
func (s *Sender) Disconnect(ctx context.Context, room string) error {
	return s.Send(ctx, KindDisconnect, room, nil)
}

// Message asks the engine to relay text to the room's IRC channel.
func (s *Sender) Message(ctx context.Context, room, text string) error {
	return s.Send(ctx, KindMessage, room, Arg(text))
}
