package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircbridge/internal/auth"
	"github.com/vovakirdan/ircbridge/internal/chat"
	"github.com/vovakirdan/ircbridge/internal/config"
	"github.com/vovakirdan/ircbridge/internal/plugin"
)

// Chat routes chat messages into the bridge and reports persisted bridges.
type Chat interface {
	Handle(ctx context.Context, msg plugin.Message) (bool, error)
	Bridges(ctx context.Context) (map[string]string, error)
}

// Feed fans out the posts of a room.
type Feed interface {
	Subscribe(ctx context.Context, room string) (*chat.Subscriber, error)
	Unsubscribe(s *chat.Subscriber)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Chat Chat
	Feed Feed
	// JWT guards /api and /ws when it carries a secret.
	JWT *auth.JWTConfig
	// WSRateLimit caps inbound feed messages per connection per minute.
	// Zero disables the limit.
	WSRateLimit int
}

// NewServer builds the HTTP server.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine with all routes.
func NewRouter(deps Deps, logger *zerolog.Logger) *gin.Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	guard := AuthMiddleware(deps.JWT, logger)

	handlers := NewBridgeHandlers(deps.Chat, logger)
	api := router.Group("/api", guard)
	api.POST("/rooms/:room/messages", handlers.PostMessage)
	api.GET("/bridges", handlers.ListBridges)

	ws := NewWSHandler(deps.Chat, deps.Feed, deps.WSRateLimit, logger)
	router.GET("/ws", guard, gin.WrapH(ws))

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
