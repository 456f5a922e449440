package chat

// room groups subscribers listening to the same chat room.
type room struct {
	name        string
	subscribers map[*Subscriber]struct{}
}

func newRoom(name string) *room {
	return &room{
		name:        name,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

func (r *room) add(s *Subscriber) {
	r.subscribers[s] = struct{}{}
}

// remove deletes s and reports whether it was present.
func (r *room) remove(s *Subscriber) bool {
	if _, ok := r.subscribers[s]; !ok {
		return false
	}
	delete(r.subscribers, s)
	return true
}

// broadcast delivers p to every subscriber and returns how many got it.
func (r *room) broadcast(p Post) int {
	delivered := 0
	for s := range r.subscribers {
		select {
		case s.Posts <- p:
			delivered++
		default:
			// Drop if slow consumer.
		}
	}
	return delivered
}

func (r *room) empty() bool {
	return len(r.subscribers) == 0
}
