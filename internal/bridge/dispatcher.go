package bridge

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultCommandPrefix marks private messages addressed to the bot as commands.
const DefaultCommandPrefix = "!"

const helpFormat = "Available Commands - %[1]sstatus: show bot status information, %[1]shelp: show this message"

// RelayHandler is called for every channel message on an active connection.
type RelayHandler func(conn *Connection, sender, text string) error

type botCommand func(conn *Connection, ev Event) error

// Dispatcher is the single entry point for IRC events of every connection.
type Dispatcher struct {
	prefix   string
	handlers []RelayHandler
	commands map[string]botCommand
	log      *zerolog.Logger
}

// NewDispatcher builds a dispatcher with the fixed bot command table.
func NewDispatcher(prefix string, logger *zerolog.Logger) *Dispatcher {
	if prefix == "" {
		prefix = DefaultCommandPrefix
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	d := &Dispatcher{prefix: prefix, log: logger}
	d.commands = map[string]botCommand{
		"help":   d.commandHelp,
		"status": d.commandStatus,
	}
	return d
}

// RegisterRelayHandler appends h. Handlers run in registration order.
func (d *Dispatcher) RegisterRelayHandler(h RelayHandler) {
	d.handlers = append(d.handlers, h)
}

// Dispatch advances conn's state machine for ev.
func (d *Dispatcher) Dispatch(conn *Connection, ev Event) {
	if conn.state == StateClosed {
		return
	}

	switch ev.Kind {
	case EventWelcome:
		d.onWelcome(conn)
	case EventChannelMessage:
		if conn.state == StateActive {
			d.relay(conn, ev)
		}
	case EventPrivateMessage:
		if conn.state == StateActive {
			d.command(conn, ev)
		}
	case EventDisconnected:
		conn.state = StateClosed
		d.log.Warn().Err(ev.Err).Str("room", conn.Room).Str("channel", conn.Channel).Msg("irc connection lost")
	}
}

func (d *Dispatcher) onWelcome(conn *Connection) {
	if conn.state != StateConnecting {
		return
	}
	conn.state = StateJoined
	conn.join()
	conn.state = StateActive
	d.log.Info().Str("room", conn.Room).Str("channel", conn.Channel).Msg("joined irc channel")
}

func (d *Dispatcher) relay(conn *Connection, ev Event) {
	for i, h := range d.handlers {
		if err := d.callRelay(h, conn, ev); err != nil {
			d.log.Error().Err(err).
				Int("handler", i).
				Str("room", conn.Room).
				Str("nick", ev.Nick).
				Msg("relay handler failed")
		}
	}
}

func (d *Dispatcher) callRelay(h RelayHandler, conn *Connection, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("relay handler panic: %v", r)
		}
	}()
	return h(conn, ev.Nick, ev.Text)
}

func (d *Dispatcher) command(conn *Connection, ev Event) {
	if !strings.HasPrefix(ev.Text, d.prefix) {
		return
	}
	// The whole remainder is the command name: "!STATUS" and "!status now"
	// are not commands.
	name := strings.TrimPrefix(ev.Text, d.prefix)

	cmd, ok := d.commands[name]
	if !ok {
		d.log.Debug().Str("room", conn.Room).Str("nick", ev.Nick).Str("command", name).Msg("unknown bot command")
		return
	}
	if err := cmd(conn, ev); err != nil {
		d.log.Error().Err(err).Str("room", conn.Room).Str("command", name).Msg("bot command failed")
	}
}

func (d *Dispatcher) commandHelp(conn *Connection, ev Event) error {
	return conn.Reply(ev.Nick, fmt.Sprintf(helpFormat, d.prefix))
}

func (d *Dispatcher) commandStatus(conn *Connection, ev Event) error {
	return conn.Reply(ev.Nick, "Connected to "+conn.Room)
}
