package chat

import "time"

// Post is one message the bridge puts into a chat room.
type Post struct {
	Room      string
	Text      string
	CreatedAt time.Time
}
