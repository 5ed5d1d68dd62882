package eventbus

import (
	"testing"

	"github.com/voltgrid/sessiond/core/events"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish(events.SessionStartRequest{Uid: 7, Account: "alice"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		ev, ok := (<-ch).(events.SessionStartRequest)
		if !ok {
			t.Fatalf("subscriber %d: unexpected event type", i)
		}
		if ev.Uid != 7 || ev.Account != "alice" {
			t.Fatalf("subscriber %d: got %+v", i, ev)
		}
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := New()
	defer bus.Close()
	ch := bus.Subscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(events.SessionUpdate{SessionId: uint64(i)})
	}
	if got := len(ch); got != subscriberBuffer {
		t.Fatalf("expected %d buffered events, got %d", subscriberBuffer, got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	defer bus.Close()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after Unsubscribe")
	}
	bus.Publish(events.SessionEnd{SessionId: 1})
}

func TestCloseClosesAllChannels(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatal("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatal("expected ch2 closed")
	}
	bus.Publish(events.SessionEnd{SessionId: 1})
	if ch := bus.Subscribe(); ch == nil {
		t.Fatal("Subscribe after Close returned nil channel")
	} else if _, ok := <-ch; ok {
		t.Fatal("expected closed channel from Subscribe after Close")
	}
	bus.Unsubscribe(ch1)
}
