package http

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/ircbridge/internal/chat"
	"github.com/vovakirdan/ircbridge/internal/plugin"
	"github.com/vovakirdan/ircbridge/internal/proto"
)

func messageFromRequest(room string, req MessageRequest) plugin.Message {
	return plugin.Message{
		Room:   room,
		Sender: strings.TrimSpace(req.Sender),
		Text:   req.Text,
		Direct: req.Direct,
	}
}

func bridgesFromMapping(mapping map[string]string) []BridgeResponse {
	bridges := lo.MapToSlice(mapping, func(room, url string) BridgeResponse {
		return BridgeResponse{Room: room, URL: url}
	})
	slices.SortFunc(bridges, func(a, b BridgeResponse) int {
		return strings.Compare(a.Room, b.Room)
	})
	return bridges
}

// inboundToMessage maps a feed frame. A nil message with a nil error means
// the frame only updated the session.
func inboundToMessage(room string, user *string, inbound proto.Inbound) (*plugin.Message, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeHello:
		var hello proto.HelloData
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			return nil, nil, err
		}
		name := strings.TrimSpace(hello.User)
		if name == "" {
			return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "user is required"}, nil
		}
		*user = name
		return nil, nil, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if *user == "" {
			return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "hello required before msg"}, nil
		}
		if msg.Text == "" {
			return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "text is required"}, nil
		}
		return &plugin.Message{Room: room, Sender: *user, Text: msg.Text, Direct: msg.Direct}, nil, nil
	default:
		return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "unknown type"}, nil
	}
}

func outboundFromPost(p chat.Post) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventPost,
		Data: proto.EventPostData{
			Room: p.Room,
			Text: p.Text,
			TS:   p.CreatedAt.Unix(),
		},
	}
}
