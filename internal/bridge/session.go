package bridge

import "context"

// Session is an open IRC transport as seen by the engine.
type Session interface {
	Join(channel string)
	Privmsg(target, text string)
	// Close sends QUIT and releases the transport. It must be safe to call
	// more than once.
	Close() error
}

// EventSink receives events from a transport. Implementations must not block.
type EventSink func(Event)

// Dialer opens IRC sessions. Events produced by the session after Dial returns
// are delivered to sink from the transport's own goroutines.
type Dialer interface {
	Dial(ctx context.Context, target Target, sink EventSink) (Session, error)
}

// EventKind classifies IRC protocol events the dispatcher reacts to.
type EventKind int

const (
	// EventWelcome is the server's 001 reply: registration is complete.
	EventWelcome EventKind = iota
	// EventChannelMessage is a PRIVMSG addressed to a channel.
	EventChannelMessage
	// EventPrivateMessage is a PRIVMSG addressed to the bot's nick.
	EventPrivateMessage
	// EventDisconnected means the transport is gone.
	EventDisconnected
)

// lifecycle reports whether losing the event would leave the connection in
// the wrong state.
func (k EventKind) lifecycle() bool {
	return k == EventWelcome || k == EventDisconnected
}

func (k EventKind) String() string {
	switch k {
	case EventWelcome:
		return "welcome"
	case EventChannelMessage:
		return "pubmsg"
	case EventPrivateMessage:
		return "privmsg"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is one IRC protocol event. Room and ConnectionID are stamped by the
// registry so stale events from a replaced session can be told apart.
type Event struct {
	Kind         EventKind
	Room         string
	ConnectionID string
	Nick         string
	Target       string
	Text         string
	Err          error
}
