package ws

import (
	"errors"
	"testing"
	"time"
)

type fakeSubscriber struct {
	received chan []byte
	fail     bool
	closed   chan struct{}
}

func newFakeSubscriber(fail bool) *fakeSubscriber {
	return &fakeSubscriber{
		received: make(chan []byte, 8),
		fail:     fail,
		closed:   make(chan struct{}, 1),
	}
}

func (s *fakeSubscriber) Send(payload []byte) error {
	if s.fail {
		return errors.New("send failed")
	}
	s.received <- payload
	return nil
}

func (s *fakeSubscriber) Close() {
	select {
	case s.closed <- struct{}{}:
	default:
	}
}

func waitFor(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for payload")
		return nil
	}
}

func TestBroadcastReachesParticipantAndWildcard(t *testing.T) {
	hub := NewHub()
	direct := newFakeSubscriber(false)
	wildcard := newFakeSubscriber(false)
	other := newFakeSubscriber(false)

	hub.Register("sub002", direct)
	hub.Register(AllParticipants, wildcard)
	hub.Register("sub003", other)

	hub.Broadcast("sub002", []byte("event"))

	if got := waitFor(t, direct.received); string(got) != "event" {
		t.Fatalf("unexpected payload %q", got)
	}
	if got := waitFor(t, wildcard.received); string(got) != "event" {
		t.Fatalf("wildcard expected event, got %q", got)
	}
	select {
	case got := <-other.received:
		t.Fatalf("unrelated participant received %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFailingSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	failing := newFakeSubscriber(true)
	hub.Register("sub002", failing)

	hub.Broadcast("sub002", []byte("one"))

	select {
	case <-failing.closed:
	case <-time.After(time.Second):
		t.Fatalf("expected failing subscriber to be closed")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := newFakeSubscriber(false)
	hub.Register("sub002", sub)
	hub.Unregister("sub002", sub)

	hub.Broadcast("sub002", []byte("event"))

	select {
	case got := <-sub.received:
		t.Fatalf("unregistered subscriber received %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}
