package plugin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircbridge/internal/bridge"
	"github.com/vovakirdan/ircbridge/internal/format"
)

const (
	replyMultiline        = "Unable to send multiline messages to IRC"
	replyAlreadyConnected = "This room is already connected to the channel: %s"
)

// Message is a chat message as delivered by the chat platform.
type Message struct {
	Room   string
	Sender string
	Text   string
	// Direct is set when the message is addressed to the bot.
	Direct bool
}

// Commander sends instructions to the bridge engine without waiting for it.
type Commander interface {
	Connect(ctx context.Context, room, url string) error
	Disconnect(ctx context.Context, room string) error
	Message(ctx context.Context, room, text string) error
}

// MappingStore persists the room -> IRC URL mapping.
type MappingStore interface {
	bridge.MappingSource
	SaveMappings(ctx context.Context, mapping map[string]string) error
}

// Options tunes the plugin.
type Options struct {
	// OverwriteOnReconnect keeps the historical behaviour of replacing an
	// existing mapping (and re-sending CONNECT) after telling the user the room
	// is already connected. When false the command stops after the reply.
	OverwriteOnReconnect bool
}

// Plugin is the chat-facing side of the bridge.
type Plugin struct {
	commander Commander
	mappings  MappingStore
	chat      bridge.Notifier
	formatter *format.Formatter
	opts      Options
	router    *Router
	log       *zerolog.Logger

	// mu serialises mapping read-modify-write cycles.
	mu sync.Mutex
}

// New builds the plugin and its trigger table.
func New(commander Commander, mappings MappingStore, chat bridge.Notifier, formatter *format.Formatter, opts Options, logger *zerolog.Logger) *Plugin {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if formatter == nil {
		formatter = format.New("")
	}
	p := &Plugin{
		commander: commander,
		mappings:  mappings,
		chat:      chat,
		formatter: formatter,
		opts:      opts,
		log:       logger,
	}

	p.router = &Router{}
	p.router.Respond("connect", `^[cC]onnect to irc channel (?P<url>.+)`, func(ctx context.Context, msg Message, args map[string]string) error {
		return p.ConnectToChannel(ctx, msg, args["url"])
	})
	p.router.Respond("disconnect", `^[dD]isconnect from irc`, func(ctx context.Context, msg Message, _ map[string]string) error {
		return p.DisconnectFromChannel(ctx, msg)
	})
	p.router.Hear("relay", `(?s)^(?P<text>.+)$`, func(ctx context.Context, msg Message, args map[string]string) error {
		return p.RelayMessage(ctx, msg, args["text"])
	})
	return p
}

// Router exposes the trigger table.
func (p *Plugin) Router() *Router {
	return p.router
}

// Handle routes one chat message. It reports whether any route matched.
func (p *Plugin) Handle(ctx context.Context, msg Message) (bool, error) {
	route, args, ok := p.router.Match(msg)
	if !ok {
		return false, nil
	}
	p.log.Debug().Str("room", msg.Room).Str("route", route.Name).Msg("chat trigger")
	if err := route.Handler(ctx, msg, args); err != nil {
		return true, fmt.Errorf("%s: %w", route.Name, err)
	}
	return true, nil
}

// ConnectToChannel maps the message's room to url and asks the engine to
// connect. The mapping is saved before the command is sent, and concurrent
// connects and disconnects are applied one at a time.
func (p *Plugin) ConnectToChannel(ctx context.Context, msg Message, url string) error {
	url = strings.TrimSpace(url)

	p.mu.Lock()
	defer p.mu.Unlock()

	mapping, err := p.mappings.LoadMappings(ctx)
	if err != nil {
		return err
	}

	if existing, ok := mapping[msg.Room]; ok {
		if err := p.chat.Say(ctx, msg.Room, fmt.Sprintf(replyAlreadyConnected, existing)); err != nil {
			p.log.Warn().Err(err).Str("room", msg.Room).Msg("reply already connected")
		}
		if !p.opts.OverwriteOnReconnect {
			return nil
		}
	}

	mapping[msg.Room] = url
	if err := p.mappings.SaveMappings(ctx, mapping); err != nil {
		return err
	}

	p.log.Info().Str("room", msg.Room).Str("url", url).Str("by", msg.Sender).Msg("bridge requested")
	return p.commander.Connect(ctx, msg.Room, url)
}

// DisconnectFromChannel removes the room's mapping and asks the engine to
// disconnect. Unmapped rooms are left alone.
func (p *Plugin) DisconnectFromChannel(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	mapping, err := p.mappings.LoadMappings(ctx)
	if err != nil {
		return err
	}
	if _, ok := mapping[msg.Room]; !ok {
		return nil
	}

	delete(mapping, msg.Room)
	if err := p.mappings.SaveMappings(ctx, mapping); err != nil {
		return err
	}

	p.log.Info().Str("room", msg.Room).Str("by", msg.Sender).Msg("bridge removed")
	return p.commander.Disconnect(ctx, msg.Room)
}

// RelayMessage forwards text to the room's IRC channel, attributed to the
// sender. Multi-line text cannot be framed on the wire and is refused.
func (p *Plugin) RelayMessage(ctx context.Context, msg Message, text string) error {
	if strings.ContainsAny(text, "\r\n") {
		return p.chat.Say(ctx, msg.Room, replyMultiline)
	}
	return p.commander.Message(ctx, msg.Room, p.formatter.Format(msg.Sender, text))
}

// RelayHandler returns the bridge relay handler that posts IRC channel
// messages into the connection's chat room.
func (p *Plugin) RelayHandler(ctx context.Context) bridge.RelayHandler {
	return func(conn *bridge.Connection, sender, text string) error {
		return p.chat.Say(ctx, conn.Room, p.formatter.Format(sender, text))
	}
}

// Bridges returns the persisted mapping.
func (p *Plugin) Bridges(ctx context.Context) (map[string]string, error) {
	return p.mappings.LoadMappings(ctx)
}
