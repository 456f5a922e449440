package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vovakirdan/ircbridge/internal/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type engineFixture struct {
	engine   *Engine
	dialer   *fakeDialer
	notifier *recordingNotifier
	commands chan []byte
	sender   *wire.Sender
	done     chan error
	cancel   context.CancelFunc

	once sync.Once
	err  error
}

func startEngine(t *testing.T, mappings MappingSource, setup func(*Engine)) *engineFixture {
	t.Helper()
	return startEngineWithOptions(t, Options{Interval: 10 * time.Millisecond}, mappings, setup)
}

func startEngineWithOptions(t *testing.T, opts Options, mappings MappingSource, setup func(*Engine)) *engineFixture {
	t.Helper()

	commands := wire.NewChannel(16)
	f := &engineFixture{
		dialer:   newFakeDialer(),
		notifier: newRecordingNotifier(),
		commands: commands,
		sender:   wire.NewSender(commands),
		done:     make(chan error, 1),
	}
	f.engine = NewEngine(commands, f.dialer, f.notifier, mappings, opts, nil)
	if setup != nil {
		setup(f.engine)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() {
		f.done <- f.engine.Run(ctx)
	}()

	t.Cleanup(func() { _ = f.stop() })
	return f
}

func (f *engineFixture) stop() error {
	f.once.Do(func() {
		f.cancel()
		f.err = <-f.done
	})
	return f.err
}

func TestEngineConnectThenMessageIsOrdered(t *testing.T) {
	f := startEngine(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	require.NoError(t, f.sender.Message(ctx, "ops", "[bob] hello"))

	got := mustNote(t, f.notifier)
	assert.Equal(t, note{Room: "ops", Text: "Connected to IRC channel #foo"}, got)

	eventually(t, func() bool {
		return f.dialer.Dials() == 1 && len(f.dialer.Session(0).Sent()) == 1
	}, "message delivered to the new connection")
	assert.Equal(t, []sentMessage{{Target: "#foo", Text: "[bob] hello"}}, f.dialer.Session(0).Sent())
}

func TestEngineSecondConnectKeepsFirst(t *testing.T) {
	f := startEngine(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://bob@other.example.com/bar"))
	require.NoError(t, f.sender.Message(ctx, "ops", "hi"))

	mustNote(t, f.notifier)
	eventually(t, func() bool {
		return f.dialer.Dials() == 1 && len(f.dialer.Session(0).Sent()) == 1
	}, "message delivered")
	assert.Equal(t, "irc.example.com", f.dialer.Session(0).target.Host)
	assert.Equal(t, 1, f.dialer.Dials())
}

func TestEngineMessageWithoutConnectionIsDropped(t *testing.T) {
	f := startEngine(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.sender.Message(ctx, "ops", "nobody listens"))
	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))

	mustNote(t, f.notifier)
	assert.Empty(t, f.dialer.Session(0).Sent())
}

func TestEngineDisconnect(t *testing.T) {
	f := startEngine(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	mustNote(t, f.notifier)

	require.NoError(t, f.sender.Disconnect(ctx, "ops"))
	assert.Equal(t, note{Room: "ops", Text: "Disconnected from IRC"}, mustNote(t, f.notifier))
	assert.Equal(t, 1, f.dialer.Session(0).Closed())

	require.NoError(t, f.sender.Message(ctx, "ops", "after"))
	require.NoError(t, f.sender.Disconnect(ctx, "never-mapped"))
	assert.Equal(t, note{Room: "never-mapped", Text: "Disconnected from IRC"}, mustNote(t, f.notifier))
	assert.Empty(t, f.dialer.Session(0).Sent())
}

func TestEngineRestoresPersistedBridges(t *testing.T) {
	mappings := staticMappings{
		"ops": "irc://irc.example.com/foo",
		"dev": "irc://bob@irc.example.com:6697/bar",
	}
	f := startEngine(t, mappings, nil)

	got := []note{mustNote(t, f.notifier), mustNote(t, f.notifier)}
	assert.ElementsMatch(t, []note{
		{Room: "ops", Text: "Connected to IRC channel #foo"},
		{Room: "dev", Text: "Connected to IRC channel #bar"},
	}, got)
	assert.Equal(t, 2, f.dialer.Dials())
}

func TestEngineSurvivesConnectFailure(t *testing.T) {
	f := startEngine(t, nil, nil)
	f.dialer.Refuse("down.example.com")
	ctx := context.Background()

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://down.example.com/foo"))
	require.NoError(t, f.sender.Send(ctx, wire.Kind("BOGUS"), "ops", nil))
	require.NoError(t, f.sender.Connect(ctx, "dev", "irc://irc.example.com/bar"))

	assert.Equal(t, note{Room: "dev", Text: "Connected to IRC channel #bar"}, mustNote(t, f.notifier))
}

func TestEngineSurvivesPanicsAndMalformedInput(t *testing.T) {
	f := startEngine(t, nil, nil)
	f.dialer.mu.Lock()
	f.dialer.panicky = true
	f.dialer.mu.Unlock()
	ctx := context.Background()

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	mustNote(t, f.notifier)
	require.NoError(t, f.sender.Message(ctx, "ops", "this panics in the transport"))
	f.commands <- []byte("no separator at all")

	f.dialer.mu.Lock()
	f.dialer.panicky = false
	f.dialer.mu.Unlock()
	require.NoError(t, f.sender.Connect(ctx, "dev", "irc://irc.example.com/bar"))
	assert.Equal(t, note{Room: "dev", Text: "Connected to IRC channel #bar"}, mustNote(t, f.notifier))
}

func TestEngineRelaysChannelMessages(t *testing.T) {
	relayed := make(chan note, 4)
	f := startEngine(t, nil, func(e *Engine) {
		e.Dispatcher().RegisterRelayHandler(func(conn *Connection, sender, text string) error {
			relayed <- note{Room: conn.Room, Text: sender + ": " + text}
			return nil
		})
	})
	ctx := context.Background()

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	mustNote(t, f.notifier)

	sink := f.dialer.Sink(0)
	sink(Event{Kind: EventWelcome})
	sink(Event{Kind: EventChannelMessage, Nick: "alice", Target: "#foo", Text: "hello chat"})

	select {
	case got := <-relayed:
		assert.Equal(t, note{Room: "ops", Text: "alice: hello chat"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("channel message not relayed")
	}
	assert.Equal(t, []string{"#foo"}, f.dialer.Session(0).Joined())
}

func TestEngineDropsLostConnection(t *testing.T) {
	f := startEngine(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	mustNote(t, f.notifier)

	f.dialer.Sink(0)(Event{Kind: EventDisconnected, Err: errors.New("read: connection reset")})
	assert.Equal(t, note{Room: "ops", Text: "Lost connection to IRC channel #foo"}, mustNote(t, f.notifier))

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	assert.Equal(t, note{Room: "ops", Text: "Connected to IRC channel #foo"}, mustNote(t, f.notifier))
	assert.Equal(t, 2, f.dialer.Dials())
}

func TestEngineClosesConnectionsOnShutdown(t *testing.T) {
	f := startEngine(t, staticMappings{"ops": "irc://irc.example.com/foo"}, nil)
	mustNote(t, f.notifier)

	require.NoError(t, f.stop())
	assert.Equal(t, 1, f.dialer.Session(0).Closed())
}

func TestEngineKeepsLifecycleEventsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	relayed := make(chan struct{}, 1)
	f := startEngineWithOptions(t, Options{Interval: 10 * time.Millisecond, EventBuffer: 2}, nil, func(e *Engine) {
		e.Dispatcher().RegisterRelayHandler(func(*Connection, string, string) error {
			select {
			case relayed <- struct{}{}:
			default:
			}
			<-release
			return nil
		})
	})
	ctx := context.Background()

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	mustNote(t, f.notifier)

	sink := f.dialer.Sink(0)
	sink(Event{Kind: EventWelcome})
	sink(Event{Kind: EventChannelMessage, Nick: "alice", Target: "#foo", Text: "first"})

	// The engine is now parked in the relay handler; flood the queue.
	select {
	case <-relayed:
	case <-time.After(2 * time.Second):
		t.Fatal("relay handler never ran")
	}
	for i := 0; i < 20; i++ {
		sink(Event{Kind: EventChannelMessage, Nick: "alice", Target: "#foo", Text: "flood"})
	}
	sink(Event{Kind: EventDisconnected, Err: errors.New("read: connection reset")})
	close(release)

	assert.Equal(t, note{Room: "ops", Text: "Lost connection to IRC channel #foo"}, mustNote(t, f.notifier))

	require.NoError(t, f.sender.Connect(ctx, "ops", "irc://irc.example.com/foo"))
	assert.Equal(t, note{Room: "ops", Text: "Connected to IRC channel #foo"}, mustNote(t, f.notifier))
	assert.Equal(t, 2, f.dialer.Dials())

	f.dialer.Sink(1)(Event{Kind: EventWelcome})
	eventually(t, func() bool {
		return len(f.dialer.Session(1).Joined()) == 1
	}, "new session joins its channel")
}
