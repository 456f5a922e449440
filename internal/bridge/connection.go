package bridge

// State is the lifecycle position of a Connection.
type State int

const (
	StateConnecting State = iota
	StateJoined
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is a live IRC session bound to one room and one channel.
// It is owned by the Registry and only touched from the engine goroutine.
type Connection struct {
	ID      string
	Room    string
	URL     string
	Host    string
	Port    int
	Nick    string
	Channel string

	state   State
	session Session
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return c.state
}

// Say sends text to the connection's channel.
func (c *Connection) Say(text string) error {
	return c.privmsg(c.Channel, text)
}

// Reply sends text to a single nick.
func (c *Connection) Reply(nick, text string) error {
	return c.privmsg(nick, text)
}

func (c *Connection) privmsg(target, text string) error {
	if c.state == StateClosed {
		return ErrConnectionClosed
	}
	c.session.Privmsg(target, text)
	return nil
}

func (c *Connection) join() {
	c.session.Join(c.Channel)
}

func (c *Connection) close() error {
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	return c.session.Close()
}
