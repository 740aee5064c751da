package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/callflow-systems/callflow-stack/common/messaging"
)

func newEnvelope(t *testing.T) *messaging.Envelope {
	t.Helper()
	env, err := messaging.NewEnvelope(messaging.TopicLeadProcessed, messaging.LeadProcessedData{
		LeadID: "lead-1",
		Status: messaging.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("NewEnvelope returned error: %v", err)
	}
	return env
}

func TestPublishBeforeConnect(t *testing.T) {
	bus := New(nil)
	err := bus.Publish(context.Background(), messaging.TopicLeadProcessed, newEnvelope(t))
	if !errors.Is(err, messaging.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := bus.Subscribe(messaging.TopicLeadProcessed, func(context.Context, *messaging.Envelope) error { return nil }); !errors.Is(err, messaging.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected from Subscribe, got %v", err)
	}
}

func TestFanOutInRegistrationOrder(t *testing.T) {
	bus := New(nil)
	if err := bus.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		err := bus.Subscribe(messaging.TopicLeadProcessed, func(context.Context, *messaging.Envelope) error {
			order = append(order, i)
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe returned error: %v", err)
		}
	}

	if err := bus.Publish(context.Background(), messaging.TopicLeadProcessed, newEnvelope(t)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("delivery %d went to handler %d, want registration order", i, got)
		}
	}
}

func TestHandlerErrorDoesNotStopFanOut(t *testing.T) {
	bus := New(nil)
	if err := bus.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	delivered := false
	_ = bus.Subscribe(messaging.TopicLeadProcessed, func(context.Context, *messaging.Envelope) error {
		return errors.New("handler exploded")
	})
	_ = bus.Subscribe(messaging.TopicLeadProcessed, func(context.Context, *messaging.Envelope) error {
		delivered = true
		return nil
	})

	if err := bus.Publish(context.Background(), messaging.TopicLeadProcessed, newEnvelope(t)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if !delivered {
		t.Error("second handler was not invoked after first handler failed")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := New(nil)
	if err := bus.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	var calls int
	_ = bus.Subscribe(messaging.TopicCallLogged, func(context.Context, *messaging.Envelope) error {
		calls++
		return nil
	})

	if err := bus.Publish(context.Background(), messaging.TopicLeadProcessed, newEnvelope(t)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if calls != 0 {
		t.Errorf("handler on unrelated topic received %d deliveries", calls)
	}
}

func TestCloseDisconnects(t *testing.T) {
	bus := New(nil)
	_ = bus.Connect(context.Background())
	if !bus.IsConnected() {
		t.Fatal("expected connected bus")
	}

	if err := bus.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if bus.IsConnected() {
		t.Error("expected disconnected bus after Close")
	}
	if err := bus.Publish(context.Background(), messaging.TopicLeadProcessed, newEnvelope(t)); !errors.Is(err, messaging.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after Close, got %v", err)
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := New(nil)
	_ = bus.Connect(context.Background())

	env := newEnvelope(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = bus.Subscribe(messaging.TopicCallLogged, func(context.Context, *messaging.Envelope) error { return nil })
		}()
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), messaging.TopicCallLogged, env)
		}()
	}
	wg.Wait()
}
