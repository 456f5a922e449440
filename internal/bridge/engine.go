package bridge

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/ircbridge/internal/wire"
)

const (
	// DefaultInterval is the reactor cadence: the longest the loop waits for
	// IRC events before checking the boundary channel again.
	DefaultInterval = 200 * time.Millisecond
	// DefaultEventBuffer is the capacity of the transport -> engine event queue.
	DefaultEventBuffer = 256
)

// Notifier posts a message into a chat room.
type Notifier interface {
	Say(ctx context.Context, room, text string) error
}

// MappingSource loads the persisted room -> IRC URL mapping.
type MappingSource interface {
	LoadMappings(ctx context.Context) (map[string]string, error)
}

// Options tunes the engine.
type Options struct {
	Interval      time.Duration
	EventBuffer   int
	CommandPrefix string
	URLDefaults   URLDefaults
}

// Engine is the reactor loop. It owns the registry and every IRC session;
// the only way in from the chat side is the boundary channel.
type Engine struct {
	commands   <-chan []byte
	events     chan Event
	registry   *Registry
	dispatcher *Dispatcher
	notifier   Notifier
	mappings   MappingSource
	interval   time.Duration
	log        *zerolog.Logger

	// Welcome and disconnect events are never shed: they sit in lifecycle
	// and wake the poll instead of competing for space in events.
	lifecycleMu sync.Mutex
	lifecycle   []Event
	wake        chan struct{}
}

// NewEngine builds an engine reading envelopes from commands.
func NewEngine(commands <-chan []byte, dialer Dialer, notifier Notifier, mappings MappingSource, opts Options, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	e := &Engine{
		commands:   commands,
		events:     make(chan Event, opts.EventBuffer),
		wake:       make(chan struct{}, 1),
		dispatcher: NewDispatcher(opts.CommandPrefix, logger),
		notifier:   notifier,
		mappings:   mappings,
		interval:   opts.Interval,
		log:        logger,
	}
	e.registry = NewRegistry(dialer, opts.URLDefaults, e.enqueue, logger)
	return e
}

// Dispatcher exposes relay handler registration. Register before Run.
func (e *Engine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// Run restores persisted bridges and then services IRC events and commands
// until ctx is cancelled. All connections are closed on return.
func (e *Engine) Run(ctx context.Context) error {
	defer e.registry.CloseAll()

	e.restore(ctx)

	for {
		if ctx.Err() != nil {
			e.log.Info().Msg("bridge engine stopped")
			return nil
		}
		e.iterate(ctx)
	}
}

func (e *Engine) restore(ctx context.Context) {
	if e.mappings == nil {
		return
	}
	mapping, err := e.mappings.LoadMappings(ctx)
	if err != nil {
		e.critical().Err(err).Msg("load irc mappings")
		return
	}

	rooms := lo.Keys(mapping)
	slices.Sort(rooms)
	for _, room := range rooms {
		conn, created, err := e.registry.Connect(ctx, room, mapping[room])
		if err != nil {
			e.critical().Err(err).Str("room", room).Msg("restore irc connection")
			continue
		}
		if created {
			e.notify(ctx, room, connectedText(conn))
		}
	}
	e.log.Info().Int("connections", e.registry.Len()).Msg("irc bridges restored")
}

// iterate runs one reactor step under recover so a bad event or command
// cannot stop the loop.
func (e *Engine) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.critical().Interface("panic", r).Msg("error managing irc connection")
		}
	}()

	e.pollEvents(ctx)
	e.drainCommands(ctx)
}

func (e *Engine) pollEvents(ctx context.Context) {
	timer := time.NewTimer(e.interval)
	defer timer.Stop()

	var first *Event
	select {
	case ev := <-e.events:
		first = &ev
	case <-e.wake:
	case <-timer.C:
	case <-ctx.Done():
		return
	}

	// Lifecycle first: a queued message may come from a session whose
	// welcome is still pending.
	for ev, ok := e.nextLifecycle(); ok; ev, ok = e.nextLifecycle() {
		e.handleEvent(ctx, ev)
	}
	if first != nil {
		e.handleEvent(ctx, *first)
	}

	// Bounded so a flood of IRC traffic cannot starve the command channel.
	for i := 1; i < cap(e.events); i++ {
		select {
		case ev := <-e.events:
			e.handleEvent(ctx, ev)
		default:
			return
		}
	}
}

func (e *Engine) drainCommands(ctx context.Context) {
	for {
		select {
		case data, ok := <-e.commands:
			if !ok {
				return
			}
			e.handleCommand(ctx, data)
		default:
			return
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev Event) {
	conn := e.registry.current(ev)
	if conn == nil {
		e.log.Debug().Str("room", ev.Room).Stringer("event", ev.Kind).Msg("drop event for stale connection")
		return
	}

	e.dispatcher.Dispatch(conn, ev)

	if ev.Kind == EventDisconnected {
		e.registry.forget(conn)
		e.notify(ctx, conn.Room, "Lost connection to IRC channel "+conn.Channel)
	}
}

func (e *Engine) handleCommand(ctx context.Context, data []byte) {
	env, err := wire.Decode(data)
	if err != nil {
		e.critical().Err(err).Bytes("envelope", data).Msg("decode command")
		return
	}

	switch env.Kind {
	case wire.KindConnect:
		if env.Argument == nil {
			e.log.Warn().Str("room", env.Room).Msg("connect without url")
			return
		}
		conn, created, err := e.registry.Connect(ctx, env.Room, *env.Argument)
		if err != nil {
			e.critical().Err(err).Str("room", env.Room).Msg("connect to irc")
			return
		}
		if created {
			e.notify(ctx, env.Room, connectedText(conn))
		}

	case wire.KindMessage:
		conn, ok := e.registry.Lookup(env.Room)
		if !ok || env.Argument == nil {
			e.log.Debug().Str("room", env.Room).Msg("drop message for unbridged room")
			return
		}
		if err := conn.Say(*env.Argument); err != nil {
			e.log.Warn().Err(err).Str("room", env.Room).Msg("relay to irc")
		}

	case wire.KindDisconnect:
		e.registry.Disconnect(env.Room)
		e.notify(ctx, env.Room, "Disconnected from IRC")

	default:
		e.log.Warn().Stringer("kind", env.Kind).Str("room", env.Room).Msg("unknown command")
	}
}

// enqueue is the registry's event sink. It runs on transport goroutines and
// never blocks them: when the queue is full, message events are dropped.
func (e *Engine) enqueue(ev Event) {
	if ev.Kind.lifecycle() {
		e.lifecycleMu.Lock()
		e.lifecycle = append(e.lifecycle, ev)
		e.lifecycleMu.Unlock()

		select {
		case e.wake <- struct{}{}:
		default:
		}
		return
	}

	select {
	case e.events <- ev:
	default:
		e.log.Warn().Str("room", ev.Room).Stringer("event", ev.Kind).Msg("irc event queue full, dropping event")
	}
}

// nextLifecycle pops one event, so a panic while handling it leaves the
// rest queued for the next iteration.
func (e *Engine) nextLifecycle() (Event, bool) {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	if len(e.lifecycle) == 0 {
		return Event{}, false
	}
	ev := e.lifecycle[0]
	e.lifecycle = e.lifecycle[1:]
	return ev, true
}

func (e *Engine) notify(ctx context.Context, room, text string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Say(ctx, room, text); err != nil {
		e.log.Warn().Err(err).Str("room", room).Msg("notify chat room")
	}
}

// critical logs at the highest severity without exiting.
func (e *Engine) critical() *zerolog.Event {
	return e.log.WithLevel(zerolog.FatalLevel)
}

func connectedText(conn *Connection) string {
	return fmt.Sprintf("Connected to IRC channel %s", conn.Channel)
}
