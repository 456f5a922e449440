package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type sentMessage struct {
	Target string
	Text   string
}

type fakeSession struct {
	mu     sync.Mutex
	target Target
	joined []string
	sent   []sentMessage
	closed int
	panics bool
}

func (s *fakeSession) Join(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined = append(s.joined, channel)
}

func (s *fakeSession) Privmsg(target, text string) {
	if s.panics {
		panic("transport exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{Target: target, Text: text})
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSession) Joined() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.joined...)
}

func (s *fakeSession) Sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

func (s *fakeSession) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var errDialRefused = errors.New("connection refused")

type fakeDialer struct {
	mu       sync.Mutex
	refuse   map[string]bool
	panicky  bool
	sessions []*fakeSession
	sinks    []EventSink
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{refuse: make(map[string]bool)}
}

func (d *fakeDialer) Dial(_ context.Context, target Target, sink EventSink) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refuse[target.Host] {
		return nil, errDialRefused
	}
	s := &fakeSession{target: target, panics: d.panicky}
	d.sessions = append(d.sessions, s)
	d.sinks = append(d.sinks, sink)
	return s, nil
}

func (d *fakeDialer) Refuse(host string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refuse[host] = true
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func (d *fakeDialer) Session(i int) *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[i]
}

func (d *fakeDialer) Sink(i int) EventSink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sinks[i]
}

type note struct {
	Room string
	Text string
}

type recordingNotifier struct {
	notes chan note
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{notes: make(chan note, 32)}
}

func (n *recordingNotifier) Say(_ context.Context, room, text string) error {
	n.notes <- note{Room: room, Text: text}
	return nil
}

func mustNote(t *testing.T, n *recordingNotifier) note {
	t.Helper()

	select {
	case got := <-n.notes:
		return got
	case <-time.After(2 * time.Second):
		t.Fatalf("expected chat notification not received")
		return note{}
	}
}

type staticMappings map[string]string

func (m staticMappings) LoadMappings(context.Context) (map[string]string, error) {
	return m, nil
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
