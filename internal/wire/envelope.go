package wire

import (
	"bytes"
	"errors"
)

// Kind is the instruction carried by an envelope.
type Kind string

const (
	KindConnect    Kind = "CONNECT"
	KindDisconnect Kind = "DISCONNECT"
	KindMessage    Kind = "MESSAGE"
)

const (
	kindSeparator     = '|'
	argumentSeparator = ';'
)

// ErrMalformedEnvelope is returned by Decode when the kind separator is missing.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is one instruction crossing the boundary channel.
type Envelope struct {
	Kind Kind
	Room string
	// Argument is nil when absent. An empty URL or text is a pointer to "".
	Argument *string
}

// Valid reports whether the kind is one the engine understands.
func (k Kind) Valid() bool {
	switch k {
	case KindConnect, KindDisconnect, KindMessage:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// Arg returns a pointer suitable for Envelope.Argument.
func Arg(s string) *string {
	return &s
}

// Encode renders env as "<KIND>|<room>;<argument>".
// The argument part, including the separator, is omitted when Argument is nil.
func Encode(env Envelope) []byte {
	size := len(env.Kind) + 1 + len(env.Room)
	if env.Argument != nil {
		size += 1 + len(*env.Argument)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, env.Kind...)
	buf = append(buf, kindSeparator)
	buf = append(buf, env.Room...)
	if env.Argument != nil {
		buf = append(buf, argumentSeparator)
		buf = append(buf, *env.Argument...)
	}
	return buf
}

// Decode splits on the first '|' and then on the first ';'.
func Decode(data []byte) (Envelope, error) {
	kind, payload, ok := bytes.Cut(data, []byte{kindSeparator})
	if !ok {
		return Envelope{}, ErrMalformedEnvelope
	}

	env := Envelope{Kind: Kind(kind)}
	room, argument, hasArgument := bytes.Cut(payload, []byte{argumentSeparator})
	env.Room = string(room)
	if hasArgument {
		env.Argument = Arg(string(argument))
	}
	return env, nil
}
