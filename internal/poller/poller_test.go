package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerRunsUntilStopped(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller("test", 5*time.Millisecond, func(ctx context.Context) error {
		if calls.Add(1) == 2 {
			return errors.New("transient")
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("poller ran %d times", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	p.Stop()
	p.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("poller did not stop")
	}
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller("test", time.Hour, func(ctx context.Context) error { return nil })

	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("poller ignored cancellation")
	}
}
