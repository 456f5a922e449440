package chat

import (
	"testing"
	"time"
)

func mustPost(t *testing.T, ch <-chan Post) Post {
	t.Helper()

	select {
	case p, ok := <-ch:
		if !ok {
			t.Fatalf("posts channel closed")
		}
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("expected post not received")
		return Post{}
	}
}

func noPost(t *testing.T, ch <-chan Post) {
	t.Helper()

	select {
	case p := <-ch:
		t.Fatalf("unexpected post: %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}
