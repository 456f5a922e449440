package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircbridge/internal/chat"
	"github.com/vovakirdan/ircbridge/internal/proto"
)

// WSHandler streams a room's posts to WebSocket clients and feeds their
// messages back through the bridge triggers.
type WSHandler struct {
	chat      Chat
	feed      Feed
	rateLimit int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(chat Chat, feed Feed, rateLimit int, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{chat: chat, feed: feed, rateLimit: rateLimit, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	room := strings.TrimSpace(r.URL.Query().Get("room"))
	if room == "" {
		stdhttp.Error(w, "room is required", stdhttp.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.feed.Subscribe(ctx, room)
	if err != nil {
		h.log.Warn().Err(err).Str("room", room).Msg("subscribe feed")
		conn.Close(websocket.StatusTryAgainLater, "feed unavailable")
		return
	}
	defer h.feed.Unsubscribe(sub)

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventReady,
		Data:  proto.EventReadyData{Room: room, Protocol: proto.ProtocolVersion},
	}); err != nil {
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sub)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sub)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("subscriber", sub.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sub *chat.Subscriber) error {
	limiter := newRateLimiter(h.rateLimit)
	var user string

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		msg, protoErr, err := inboundToMessage(sub.Room, &user, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("subscriber", sub.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr == nil && msg != nil && !limiter.allow(time.Now()) {
			protoErr = &proto.Error{Code: proto.ErrCodeRateLimited, Msg: "too many messages"}
		}
		if protoErr == nil && msg != nil {
			if _, err := h.chat.Handle(ctx, *msg); err != nil {
				h.log.Error().Err(err).Str("room", sub.Room).Msg("failed to handle feed message")
				protoErr = &proto.Error{Code: proto.ErrCodeInternal, Msg: "message not delivered"}
			}
		}
		if protoErr != nil {
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); err != nil {
				return err
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *chat.Subscriber) error {
	for {
		select {
		case post, ok := <-sub.Posts:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromPost(post)); err != nil {
				h.log.Error().Err(err).Str("subscriber", sub.ID).Msg("write ws post")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
