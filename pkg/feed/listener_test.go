package feed

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// mockSubSocket delivers pre-queued messages and times out once drained.
type mockSubSocket struct {
	msgs    chan []byte
	timeout time.Duration
	mu      sync.Mutex
	dialed  string
	topics  [][]byte
}

func newMockSubSocket() *mockSubSocket {
	return &mockSubSocket{msgs: make(chan []byte, 64), timeout: 10 * time.Millisecond}
}

func (m *mockSubSocket) Send([]byte) error { return errors.New("sub sockets do not send") }

func (m *mockSubSocket) Recv() ([]byte, error) {
	select {
	case msg := <-m.msgs:
		return msg, nil
	case <-time.After(m.timeout):
		return nil, errors.New("recv timeout")
	}
}

func (m *mockSubSocket) Close() error { return nil }

func (m *mockSubSocket) SetRecvDeadline(d time.Duration) error {
	m.timeout = d
	return nil
}

func (m *mockSubSocket) SetSendDeadline(time.Duration) error { return nil }

func (m *mockSubSocket) Dial(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialed = addr
	return nil
}

func (m *mockSubSocket) Subscribe(topic []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	return nil
}

type mockFactory struct {
	sub *mockSubSocket
}

func (f *mockFactory) NewPubSocket() (ListenSocket, error) { return nil, errors.New("not used") }
func (f *mockFactory) NewSubSocket() (SubscribeSocket, error) {
	return f.sub, nil
}

type recordingHandler struct {
	mu     sync.Mutex
	events []Event
}

func (h *recordingHandler) HandleEvent(ev *Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *ev)
}

func (h *recordingHandler) snapshot() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

func encodeForTest(t *testing.T, ev Event) []byte {
	t.Helper()
	c := &Codec{}
	msg, err := c.Encode(&ev)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestListenerDeliversValidEventsInOrder(t *testing.T) {
	sock := newMockSubSocket()
	handler := &recordingHandler{}

	l, err := NewListener(&mockFactory{sub: sock}, ListenerConfig{
		UpstreamAddr: "tcp://feed:5555",
		RecvTimeout:  10 * time.Millisecond,
	}, handler, nil)
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}

	up := NewEvent(EventRouterUp)
	up.Router = "r1"
	route := NewEvent(EventRouteUp)
	route.Router = "r1"
	route.Peer = "198.51.100.7"
	route.Prefix = "10.0.0.0/24"

	sock.msgs <- encodeForTest(t, up)
	sock.msgs <- encodeForTest(t, route)

	if err := l.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer l.Stop()

	waitFor(t, func() bool { return len(handler.snapshot()) == 2 }, "Timeout waiting for events")

	events := handler.snapshot()
	if events[0].Type != EventRouterUp || events[1].Type != EventRouteUp {
		t.Errorf("Events delivered out of order: %v, %v", events[0].Type, events[1].Type)
	}

	sock.mu.Lock()
	defer sock.mu.Unlock()
	if sock.dialed != "tcp://feed:5555" {
		t.Errorf("Listener dialed %q", sock.dialed)
	}
	if len(sock.topics) != 1 || string(sock.topics[0]) != TopicPrefix {
		t.Errorf("Listener should subscribe to the feed topic, got %v", sock.topics)
	}
}

func TestListenerDropsMalformedAndContinues(t *testing.T) {
	sock := newMockSubSocket()
	handler := &recordingHandler{}

	l, err := NewListener(&mockFactory{sub: sock}, ListenerConfig{
		UpstreamAddr: "tcp://feed:5555",
		RecvTimeout:  10 * time.Millisecond,
	}, handler, nil)
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}

	// Garbage, then an invalid event, then a good one
	sock.msgs <- []byte("not even close")
	bad := NewEvent(EventRouteUp) // missing router/peer/prefix
	sock.msgs <- encodeForTest(t, bad)
	good := NewEvent(EventRouterUp)
	good.Router = "r1"
	sock.msgs <- encodeForTest(t, good)

	if err := l.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer l.Stop()

	waitFor(t, func() bool { return len(handler.snapshot()) == 1 }, "Timeout waiting for the valid event")

	events := handler.snapshot()
	if events[0].Type != EventRouterUp {
		t.Errorf("Expected only the valid event, got %v", events[0].Type)
	}
}

func TestListenerMarksRoutersDownOnSilentFeed(t *testing.T) {
	sock := newMockSubSocket()
	handler := &recordingHandler{}

	l, err := NewListener(&mockFactory{sub: sock}, ListenerConfig{
		UpstreamAddr: "tcp://feed:5555",
		RecvTimeout:  5 * time.Millisecond,
		StaleAfter:   30 * time.Millisecond,
	}, handler, nil)
	if err != nil {
		t.Fatalf("NewListener failed: %v", err)
	}

	up := NewEvent(EventRouterUp)
	up.Router = "r1"
	sock.msgs <- encodeForTest(t, up)

	if err := l.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer l.Stop()

	// Feed goes silent; expect a synthetic router_down for r1
	waitFor(t, func() bool {
		events := handler.snapshot()
		return len(events) >= 2 && events[len(events)-1].Type == EventRouterDown
	}, "Timeout waiting for synthetic router_down")

	events := handler.snapshot()
	last := events[len(events)-1]
	if last.Router != "r1" {
		t.Errorf("Synthetic router_down for wrong router: %q", last.Router)
	}
}
