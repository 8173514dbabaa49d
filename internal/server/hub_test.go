package server

import "testing"

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	h := newHub()
	a, _ := h.subscribe()
	b, _ := h.subscribe()

	if dropped := h.broadcast([]byte("x")); dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	for i, ch := range []chan []byte{a, b} {
		if got := string(<-ch); got != "x" {
			t.Errorf("subscriber %d got %q, want %q", i, got, "x")
		}
	}
}

func TestHub_DropsForLaggingSubscriber(t *testing.T) {
	h := newHub()
	ch, _ := h.subscribe()

	for range subscriberBuffer {
		h.broadcast([]byte("fill"))
	}
	if dropped := h.broadcast([]byte("overflow")); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newHub()
	ch, _ := h.subscribe()
	h.unsubscribe(ch)
	h.unsubscribe(ch) // second call is a no-op

	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}
	if h.count() != 0 {
		t.Errorf("count = %d, want 0", h.count())
	}
}

func TestHub_CloseRejectsNewSubscribers(t *testing.T) {
	h := newHub()
	ch, _ := h.subscribe()
	h.close()

	if _, open := <-ch; open {
		t.Error("existing subscriber should be closed")
	}
	if _, ok := h.subscribe(); ok {
		t.Error("subscribe after close should fail")
	}
	h.unsubscribe(ch)
}
