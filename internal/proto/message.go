package proto

import "encoding/json"

// Inbound is the envelope for messages coming from a feed client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello = "hello"
	InboundTypeMsg   = "msg"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventPost  = "post"
	EventReady = "ready"
)

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeInternal    = "internal"
)

// HelloData is sent by the client to name itself. Later messages are
// attributed to User.
type HelloData struct {
	User     string `json:"user"`
	Protocol int    `json:"protocol,omitempty"`
}

// MsgData is a chat message typed by a feed client into its room.
type MsgData struct {
	Text   string `json:"text"`
	Direct bool   `json:"direct,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventPostData carries a post the bridge put into the room.
type EventPostData struct {
	Room string `json:"room"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// EventReadyData acknowledges the subscription.
type EventReadyData struct {
	Room     string `json:"room"`
	Protocol int    `json:"protocol"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
