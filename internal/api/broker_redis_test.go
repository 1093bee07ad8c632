package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisBrokerRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + srv.Addr())
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}

	ch := b.Subscribe("grp_1")
	b.Publish("grp_1", ProgressEvent{Stage: "optimize", Percent: 45, Message: "searching routes"})

	select {
	case evt := <-ch:
		if evt.Stage != "optimize" || evt.Percent != 45 {
			t.Fatalf("event = %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the event")
	}

	b.Unsubscribe("grp_1", ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected the channel to close after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestRedisBrokerGroupIsolation(t *testing.T) {
	srv := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + srv.Addr())
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}
	ch := b.Subscribe("grp_a")
	defer b.Unsubscribe("grp_a", ch)

	b.Publish("grp_b", ProgressEvent{Stage: "done", Percent: 100})
	select {
	case evt := <-ch:
		t.Fatalf("cross-group leak: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisBrokerRejectsBadURL(t *testing.T) {
	if _, err := NewRedisBroker("not-a-url"); err == nil {
		t.Fatal("expected a parse error")
	}
}
