package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BridgeHandlers serves the bridge REST endpoints.
type BridgeHandlers struct {
	chat Chat
	log  *zerolog.Logger
}

// NewBridgeHandlers creates a new handlers instance.
func NewBridgeHandlers(chat Chat, logger *zerolog.Logger) *BridgeHandlers {
	return &BridgeHandlers{chat: chat, log: logger}
}

// MessageRequest is a chat message delivered by the chat platform.
type MessageRequest struct {
	Sender string `json:"sender" binding:"required,max=128"`
	Text   string `json:"text" binding:"required,max=4096"`
	Direct bool   `json:"direct"`
}

// MessageResponse reports whether any trigger handled the message.
type MessageResponse struct {
	Matched bool `json:"matched"`
}

// BridgeResponse is one persisted room -> IRC URL mapping.
type BridgeResponse struct {
	Room string `json:"room"`
	URL  string `json:"url"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PostMessage routes a chat message through the bridge triggers.
// POST /api/rooms/:room/messages
func (h *BridgeHandlers) PostMessage(c *gin.Context) {
	room := strings.TrimSpace(c.Param("room"))
	if room == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room is required"})
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	matched, err := h.chat.Handle(c.Request.Context(), messageFromRequest(room, req))
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to handle chat message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Matched: matched})
}

// ListBridges returns the persisted mappings sorted by room.
// GET /api/bridges
func (h *BridgeHandlers) ListBridges(c *gin.Context) {
	mapping, err := h.chat.Bridges(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load bridges")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, bridgesFromMapping(mapping))
}
