package bridge

import "errors"

var (
	// ErrInvalidURL is returned when an IRC URL cannot be turned into a Target.
	ErrInvalidURL = errors.New("invalid irc url")
	// ErrConnectionClosed is returned when writing to a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
)
