package rate

import (
	"context"
	"testing"
	"time"
)

func TestWaitFirstTokenImmediate(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait should not block: %v", err)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	tb := NewTokenBucket(1)
	defer tb.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	// drain the initial token so the next wait must block
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("drain initial token: %v", err)
	}
	cancel()
	if err := tb.Wait(ctx); err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestStopReturns(t *testing.T) {
	tb := NewTokenBucket(10)
	done := make(chan struct{})
	go func() {
		tb.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
