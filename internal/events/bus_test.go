package events

import (
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("expected non-nil bus")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusSubscribe(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}

	ch2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	if ch1 == nil || ch2 == nil {
		t.Error("expected non-nil channels")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}

	// Unknown channel is a no-op
	bus.Unsubscribe(make(chan Event))
}

func TestBusPublish(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Publish(NewWorkerEvent(EventWorkerOnline, "pool-1", 3))

	select {
	case received := <-ch:
		if received.Type != EventWorkerOnline {
			t.Errorf("expected type %s, got %s", EventWorkerOnline, received.Type)
		}
		if received.WorkerID != 3 {
			t.Errorf("expected worker 3, got %d", received.WorkerID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestBusPublishMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish(NewPoolRunEvent("pool-1", 4))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Type != EventPoolRun {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventPoolRun, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBusSubscribeTypes(t *testing.T) {
	bus := NewBus()

	jobs := bus.SubscribeTypes(EventJobDone)

	bus.Publish(NewWorkerEvent(EventWorkerOnline, "pool-1", 0))
	bus.Publish(NewJobDoneEvent("pool-1", 0, 7, 0, false, time.Millisecond))

	select {
	case received := <-jobs:
		if received.Type != EventJobDone {
			t.Errorf("expected only job_done events, got %s", received.Type)
		}
		if received.Data.JobID != 7 {
			t.Errorf("expected job 7, got %d", received.Data.JobID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for job event")
	}

	select {
	case extra := <-jobs:
		t.Errorf("unexpected extra event %s", extra.Type)
	default:
	}
}

func TestBusPublishNonBlocking(t *testing.T) {
	bus := NewBus()
	bus.bufferSize = 1 // Small buffer for testing

	ch := bus.Subscribe()

	bus.Publish(NewPoolEvent(EventPoolIdle, "pool-1"))
	bus.Publish(NewPoolEvent(EventPoolIdle, "pool-1"))
	bus.Publish(NewPoolEvent(EventPoolIdle, "pool-1"))

	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for first event")
	}

	if bus.Dropped() != 2 {
		t.Errorf("expected 2 dropped deliveries, got %d", bus.Dropped())
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", bus.SubscriberCount())
	}

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}

	// Subscribing after close yields a closed channel
	late := bus.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected late subscription to be closed")
	}

	// Publishing after close must not panic
	bus.Publish(NewPoolEvent(EventPoolStop, "pool-1"))
}

func TestEventCreation(t *testing.T) {
	t.Run("PoolEvent", func(t *testing.T) {
		event := NewPoolEvent(EventPoolPause, "pool-1")
		if event.WorkerID != -1 {
			t.Errorf("expected worker -1 for pool events, got %d", event.WorkerID)
		}
		if event.PoolID != "pool-1" {
			t.Errorf("expected pool-1, got %s", event.PoolID)
		}
	})

	t.Run("PoolRunAndStop", func(t *testing.T) {
		run := NewPoolRunEvent("pool-1", 4)
		if run.Data.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", run.Data.Workers)
		}
		stop := NewPoolStopEvent("pool-1", 2)
		if stop.Type != EventPoolStop || stop.Data.Abandoned != 2 {
			t.Errorf("unexpected stop event: %+v", stop)
		}
	})

	t.Run("JobDoneEvent", func(t *testing.T) {
		event := NewJobDoneEvent("pool-1", 2, 11, -1, true, 100*time.Millisecond)
		if !event.Data.Panicked {
			t.Error("expected panicked flag")
		}
		if event.Data.Status != -1 {
			t.Errorf("expected status -1, got %d", event.Data.Status)
		}
		if event.Data.Latency != "100ms" {
			t.Errorf("expected 100ms, got %s", event.Data.Latency)
		}
	})
}
