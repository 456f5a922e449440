package chat

import "github.com/google/uuid"

const subscriberBuffer = 32

// Subscriber receives the posts of one room.
type Subscriber struct {
	ID    string
	Room  string
	Posts chan Post
}

// NewSubscriber constructs a subscriber with a buffered posts channel.
func NewSubscriber(room string) *Subscriber {
	return &Subscriber{
		ID:    uuid.NewString(),
		Room:  room,
		Posts: make(chan Post, subscriberBuffer),
	}
}
