package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrHubStopped is returned once the hub's Run loop has exited.
var ErrHubStopped = errors.New("chat hub stopped")

type commandKind int

const (
	commandSubscribe commandKind = iota
	commandUnsubscribe
	commandSay
)

type command struct {
	kind       commandKind
	subscriber *Subscriber
	post       Post
}

// Hub fans posts out to the subscribers of each room. All room state is
// owned by the Run goroutine.
type Hub struct {
	commands chan command
	done     chan struct{}
	rooms    map[string]*room
	log      *zerolog.Logger
}

// NewHub creates a hub. Call Run before using it.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		commands: make(chan command, 64),
		done:     make(chan struct{}),
		rooms:    make(map[string]*room),
		log:      logger,
	}
}

// Run processes hub commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, r := range h.rooms {
				for s := range r.subscribers {
					close(s.Posts)
				}
			}
			return
		case cmd := <-h.commands:
			h.handle(cmd)
		}
	}
}

func (h *Hub) handle(cmd command) {
	switch cmd.kind {
	case commandSubscribe:
		r, ok := h.rooms[cmd.subscriber.Room]
		if !ok {
			r = newRoom(cmd.subscriber.Room)
			h.rooms[r.name] = r
		}
		r.add(cmd.subscriber)
	case commandUnsubscribe:
		r, ok := h.rooms[cmd.subscriber.Room]
		if !ok || !r.remove(cmd.subscriber) {
			return
		}
		close(cmd.subscriber.Posts)
		if r.empty() {
			delete(h.rooms, r.name)
		}
	case commandSay:
		delivered := 0
		if r, ok := h.rooms[cmd.post.Room]; ok {
			delivered = r.broadcast(cmd.post)
		}
		h.log.Debug().Str("room", cmd.post.Room).Int("delivered", delivered).Msg("chat post")
	}
}

// Say posts text into room. It implements bridge.Notifier.
func (h *Hub) Say(ctx context.Context, room, text string) error {
	return h.send(ctx, command{
		kind: commandSay,
		post: Post{Room: room, Text: text, CreatedAt: time.Now()},
	})
}

// Subscribe registers a new subscriber for room.
func (h *Hub) Subscribe(ctx context.Context, room string) (*Subscriber, error) {
	s := NewSubscriber(room)
	if err := h.send(ctx, command{kind: commandSubscribe, subscriber: s}); err != nil {
		return nil, err
	}
	return s, nil
}

// Unsubscribe removes s and closes its Posts channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	_ = h.send(context.Background(), command{kind: commandUnsubscribe, subscriber: s})
}

func (h *Hub) send(ctx context.Context, cmd command) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.commands <- cmd:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
