package bridge

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultNick is used when the URL carries no user info.
	DefaultNick = "hipchat"
	// DefaultPort is used when an irc:// URL carries no port.
	DefaultPort = 6667
	// DefaultTLSPort is used when an ircs:// URL carries no port.
	DefaultTLSPort = 6697
)

// URLDefaults fills in the parts an IRC URL may leave out.
type URLDefaults struct {
	Nick string
	Port int
}

// Target is everything needed to open one IRC session.
type Target struct {
	Nick    string
	Host    string
	Port    int
	Channel string
	TLS     bool
}

// Addr returns host:port.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// ParseURL parses irc://[nick@]host[:port]/channel into a Target.
// The channel is the path without its leading slash, prefixed with '#'.
func ParseURL(raw string, defaults URLDefaults) (Target, error) {
	if defaults.Nick == "" {
		defaults.Nick = DefaultNick
	}
	if defaults.Port == 0 {
		defaults.Port = DefaultPort
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	target := Target{Nick: defaults.Nick, Port: defaults.Port}
	switch strings.ToLower(u.Scheme) {
	case "irc":
	case "ircs":
		target.TLS = true
		target.Port = DefaultTLSPort
	default:
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	target.Host = u.Hostname()
	if target.Host == "" {
		return Target{}, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	if u.User != nil && u.User.Username() != "" {
		target.Nick = u.User.Username()
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Target{}, fmt.Errorf("%w: bad port %q", ErrInvalidURL, p)
		}
		target.Port = port
	}

	name := strings.TrimLeft(u.Path, "/")
	if u.Fragment != "" && name == "" {
		// irc://host/#chan puts the channel in the fragment.
		name = u.Fragment
	}
	if name == "" {
		return Target{}, fmt.Errorf("%w: missing channel", ErrInvalidURL)
	}
	target.Channel = "#" + name

	return target, nil
}
