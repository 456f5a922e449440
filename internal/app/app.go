package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/ircbridge/internal/auth"
	"github.com/vovakirdan/ircbridge/internal/bridge"
	"github.com/vovakirdan/ircbridge/internal/chat"
	"github.com/vovakirdan/ircbridge/internal/config"
	"github.com/vovakirdan/ircbridge/internal/format"
	"github.com/vovakirdan/ircbridge/internal/irc"
	applog "github.com/vovakirdan/ircbridge/internal/log"
	"github.com/vovakirdan/ircbridge/internal/plugin"
	"github.com/vovakirdan/ircbridge/internal/store"
	"github.com/vovakirdan/ircbridge/internal/store/memory"
	"github.com/vovakirdan/ircbridge/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/ircbridge/internal/transport/http"
	"github.com/vovakirdan/ircbridge/internal/wire"
)

const wsRateLimit = 60

// App wires the chat side, the bridge engine and the HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *chat.Hub
	engine          *bridge.Engine
	plugin          *plugin.Plugin
	store           store.KV
	log             *zerolog.Logger
}

// New constructs the application with the goirc transport and the
// configured store.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	kv, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	irc.UseLogger(applog.Component(logger, "goirc"))
	dialer := irc.NewDialer(cfg.IRCTimeout, applog.Component(logger, "irc"))

	return NewWithDeps(cfg, dialer, kv, logger)
}

// NewWithDeps constructs the application on an explicit dialer and store.
// The App takes ownership of kv.
func NewWithDeps(cfg config.Config, dialer bridge.Dialer, kv store.KV, logger *zerolog.Logger) (*App, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if err := cfg.Validate(); err != nil {
		_ = kv.Close()
		return nil, err
	}

	mappings := store.NewMappings(kv, cfg.StorageKey)
	hub := chat.NewHub(applog.Component(logger, "chat"))

	commands := wire.NewChannel(cfg.CommandBuffer)
	formatter := format.New(cfg.MessageTemplate)

	p := plugin.New(wire.NewSender(commands), mappings, hub, formatter, plugin.Options{
		OverwriteOnReconnect: cfg.OverwriteOnReconnect,
	}, applog.Component(logger, "plugin"))

	engine := bridge.NewEngine(commands, dialer, hub, mappings, bridge.Options{
		Interval:      cfg.ReactorInterval,
		EventBuffer:   cfg.EventBuffer,
		CommandPrefix: cfg.CommandPrefix,
		URLDefaults:   bridge.URLDefaults{Nick: cfg.DefaultNick, Port: cfg.DefaultPort},
	}, applog.Component(logger, "bridge"))

	var jwtConfig *auth.JWTConfig
	if cfg.JWTSecret != "" {
		jwtConfig = &auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      auth.DefaultTTL,
		}
	}

	server := transporthttp.NewServer(transporthttp.Deps{
		Chat:        p,
		Feed:        hub,
		JWT:         jwtConfig,
		WSRateLimit: wsRateLimit,
	}, cfg, applog.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		engine:          engine,
		plugin:          p,
		store:           kv,
		log:             logger,
	}, nil
}

func openStore(cfg config.Config, logger *zerolog.Logger) (store.KV, error) {
	if cfg.DatabasePath == "" {
		logger.Warn().Msg("no database_path configured, bridges will not survive a restart")
		return memory.New(), nil
	}
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
	return st, nil
}

// Handler exposes the HTTP handler.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the chat hub, the bridge engine and the HTTP server, and blocks
// until ctx is cancelled or one of them fails. Resources are released on return.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	// Relayed IRC posts outlive individual requests.
	a.engine.Dispatcher().RegisterRelayHandler(a.plugin.RelayHandler(ctx))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return a.engine.Run(gctx)
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
