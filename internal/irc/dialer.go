// Package irc implements bridge.Dialer on top of fluffle/goirc.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	goirc "github.com/fluffle/goirc/client"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircbridge/internal/bridge"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRealname = "IRC Bridge"
	defaultQuit     = "bridge closed"
	defaultQueue    = 64
	quitGrace       = 2 * time.Second
)

// Dialer opens goirc connections. The zero value is usable.
type Dialer struct {
	Timeout     time.Duration
	Realname    string
	QuitMessage string
	// TLSConfig is cloned for ircs:// targets. ServerName defaults to the target host.
	TLSConfig *tls.Config
	// QueueSize bounds the outbound lines buffered per session. Lines beyond
	// it are dropped.
	QueueSize int

	Log *zerolog.Logger
}

// NewDialer returns a Dialer with the given connect timeout.
func NewDialer(timeout time.Duration, logger *zerolog.Logger) *Dialer {
	return &Dialer{Timeout: timeout, Log: logger}
}

// Dial connects and starts registration. The welcome event arrives later
// through sink, once the server has accepted the nick.
func (d *Dialer) Dial(ctx context.Context, target bridge.Target, sink bridge.EventSink) (bridge.Session, error) {
	cfg := goirc.NewConfig(target.Nick, target.Nick, d.realname())
	cfg.Server = target.Addr()
	cfg.Timeout = d.timeout(ctx)
	cfg.QuitMessage = d.quitMessage()
	cfg.NewNick = func(nick string) string { return nick + "_" }
	if target.TLS {
		cfg.SSL = true
		cfg.SSLConfig = d.tlsConfig(target.Host)
	}

	conn := goirc.Client(cfg)
	s := newSession(conn, cfg.QuitMessage, d.queueSize(), d.logger().With().Str("addr", cfg.Server).Logger())

	conn.HandleFunc(goirc.CONNECTED, func(_ *goirc.Conn, _ *goirc.Line) {
		sink(bridge.Event{Kind: bridge.EventWelcome})
	})
	conn.HandleFunc(goirc.PRIVMSG, func(_ *goirc.Conn, line *goirc.Line) {
		sink(privmsgEvent(line))
	})
	conn.HandleFunc(goirc.DISCONNECTED, func(_ *goirc.Conn, _ *goirc.Line) {
		s.transportGone()
		sink(bridge.Event{Kind: bridge.EventDisconnected, Err: fmt.Errorf("disconnected from %s", target.Addr())})
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := conn.Connect(); err != nil {
		return nil, fmt.Errorf("irc connect: %w", err)
	}
	go s.writeLoop()

	d.logger().Debug().Str("addr", cfg.Server).Bool("tls", cfg.SSL).Msg("irc transport connected")
	return s, nil
}

func privmsgEvent(line *goirc.Line) bridge.Event {
	ev := bridge.Event{
		Kind: bridge.EventPrivateMessage,
		Nick: line.Nick,
		Text: line.Text(),
	}
	if len(line.Args) > 0 {
		ev.Target = line.Args[0]
	}
	if line.Public() {
		ev.Kind = bridge.EventChannelMessage
	}
	return ev
}

// timeout is the configured timeout, shortened to ctx's deadline.
func (d *Dialer) timeout(ctx context.Context) time.Duration {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	return timeout
}

func (d *Dialer) realname() string {
	if d.Realname != "" {
		return d.Realname
	}
	return defaultRealname
}

func (d *Dialer) quitMessage() string {
	if d.QuitMessage != "" {
		return d.QuitMessage
	}
	return defaultQuit
}

func (d *Dialer) queueSize() int {
	if d.QueueSize > 0 {
		return d.QueueSize
	}
	return defaultQueue
}

func (d *Dialer) logger() *zerolog.Logger {
	if d.Log != nil {
		return d.Log
	}
	nop := zerolog.Nop()
	return &nop
}

func (d *Dialer) tlsConfig(host string) *tls.Config {
	var cfg *tls.Config
	if d.TLSConfig != nil {
		cfg = d.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// session hands every write to its own goroutine. goirc blocks writers
// behind flood control and never drains its queue once the transport is
// gone, so none of the methods below may call into goirc directly.
type session struct {
	conn *goirc.Conn
	quit string
	out  chan func(*goirc.Conn)
	log  zerolog.Logger

	done     chan struct{}
	doneOnce sync.Once
	gone     chan struct{}
	goneOnce sync.Once
	exited   chan struct{}
}

func newSession(conn *goirc.Conn, quit string, queue int, logger zerolog.Logger) *session {
	return &session{
		conn:   conn,
		quit:   quit,
		out:    make(chan func(*goirc.Conn), queue),
		log:    logger,
		done:   make(chan struct{}),
		gone:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (s *session) Join(channel string) {
	s.enqueue("join", func(c *goirc.Conn) { c.Join(channel) })
}

func (s *session) Privmsg(target, text string) {
	s.enqueue("privmsg", func(c *goirc.Conn) { c.Privmsg(target, text) })
}

// Close asks the writer to quit and returns without waiting for it.
func (s *session) Close() error {
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}

func (s *session) enqueue(what string, send func(*goirc.Conn)) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.out <- send:
	default:
		s.log.Warn().Str("command", what).Msg("irc outbound queue full, dropping line")
	}
}

// transportGone runs from goirc's DISCONNECTED handler.
func (s *session) transportGone() {
	s.goneOnce.Do(func() { close(s.gone) })
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *session) writeLoop() {
	defer close(s.exited)

	for {
		select {
		case <-s.done:
			s.shutdown()
			return
		case send := <-s.out:
			// A closed goirc connection stops draining its queue.
			if !s.conn.Connected() {
				continue
			}
			send(s.conn)
		}
	}
}

func (s *session) shutdown() {
	if !s.conn.Connected() {
		return
	}
	s.conn.Quit(s.quit)

	// Give the server a moment to read QUIT and hang up before the socket goes.
	timer := time.NewTimer(quitGrace)
	defer timer.Stop()
	select {
	case <-s.gone:
	case <-timer.C:
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug().Err(err).Msg("close irc transport")
	}
}
