package bridge

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Registry owns the live IRC connections keyed by room.
// It is not safe for concurrent use; the engine goroutine is its only caller.
type Registry struct {
	dialer   Dialer
	defaults URLDefaults
	emit     EventSink
	conns    map[string]*Connection
	log      *zerolog.Logger
}

// NewRegistry builds an empty registry. Events from every session it opens
// are stamped with the room and connection ID and passed to emit.
func NewRegistry(dialer Dialer, defaults URLDefaults, emit EventSink, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		dialer:   dialer,
		defaults: defaults,
		emit:     emit,
		conns:    make(map[string]*Connection),
		log:      logger,
	}
}

// Connect opens a connection for room. If room already has one, that
// connection is returned with created=false and rawURL is ignored.
// Nothing is registered when parsing or dialing fails.
func (r *Registry) Connect(ctx context.Context, room, rawURL string) (*Connection, bool, error) {
	if existing, ok := r.conns[room]; ok {
		return existing, false, nil
	}

	target, err := ParseURL(rawURL, r.defaults)
	if err != nil {
		return nil, false, err
	}

	conn := &Connection{
		ID:      uuid.NewString(),
		Room:    room,
		URL:     rawURL,
		Host:    target.Host,
		Port:    target.Port,
		Nick:    target.Nick,
		Channel: target.Channel,
		state:   StateConnecting,
	}

	session, err := r.dialer.Dial(ctx, target, r.stamp(conn))
	if err != nil {
		return nil, false, fmt.Errorf("dial %s for room %q: %w", target.Addr(), room, err)
	}
	conn.session = session
	r.conns[room] = conn

	r.log.Info().
		Str("room", room).
		Str("addr", target.Addr()).
		Str("nick", target.Nick).
		Str("channel", target.Channel).
		Msg("irc connection opened")

	return conn, true, nil
}

// Disconnect closes and removes the connection for room. It reports whether
// there was one.
func (r *Registry) Disconnect(room string) bool {
	conn, ok := r.conns[room]
	if !ok {
		return false
	}
	delete(r.conns, room)

	if err := conn.close(); err != nil {
		r.log.Warn().Err(err).Str("room", room).Msg("close irc connection")
	}
	r.log.Info().Str("room", room).Msg("irc connection closed")
	return true
}

// Lookup returns the connection for room.
func (r *Registry) Lookup(room string) (*Connection, bool) {
	conn, ok := r.conns[room]
	return conn, ok
}

// All returns every live connection ordered by room.
func (r *Registry) All() []*Connection {
	conns := lo.Values(r.conns)
	slices.SortFunc(conns, func(a, b *Connection) int {
		return strings.Compare(a.Room, b.Room)
	})
	return conns
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	return len(r.conns)
}

// CloseAll closes every connection and empties the registry.
func (r *Registry) CloseAll() {
	for _, conn := range r.All() {
		r.Disconnect(conn.Room)
	}
}

// current returns the connection an event belongs to, or nil when the event
// comes from a session that has since been replaced or removed.
func (r *Registry) current(ev Event) *Connection {
	conn, ok := r.conns[ev.Room]
	if !ok || conn.ID != ev.ConnectionID {
		return nil
	}
	return conn
}

// forget removes conn without closing its transport again.
func (r *Registry) forget(conn *Connection) {
	if current, ok := r.conns[conn.Room]; ok && current.ID == conn.ID {
		delete(r.conns, conn.Room)
	}
}

func (r *Registry) stamp(conn *Connection) EventSink {
	return func(ev Event) {
		ev.Room = conn.Room
		ev.ConnectionID = conn.ID
		r.emit(ev)
	}
}
