package service

import (
	"context"
	"testing"
	"time"
)

func startLoop(t *testing.T) (*EventLoop, context.CancelFunc) {
	t.Helper()
	l := NewEventLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)
	return l, cancel
}

func drainLoop(t *testing.T, l *EventLoop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func TestEventLoopRunsHandlersInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		l.Post(func() { order = append(order, i) })
	}
	drainLoop(t, l)

	if len(order) != 10 {
		t.Fatalf("ran %d handlers, want 10", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("position %d ran handler %d", i, got)
		}
	}
}

func TestEventLoopPostFromHandler(t *testing.T) {
	l, _ := startLoop(t)

	var steps []string
	l.Post(func() {
		steps = append(steps, "outer")
		l.Post(func() { steps = append(steps, "inner") })
	})
	drainLoop(t, l)

	if len(steps) != 2 || steps[0] != "outer" || steps[1] != "inner" {
		t.Fatalf("steps = %v", steps)
	}
}

func TestEventLoopDrainWaitsForPending(t *testing.T) {
	l, _ := startLoop(t)

	done := false
	l.AddPending()
	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Post(func() { done = true })
		l.DonePending()
	}()
	drainLoop(t, l)

	if !done {
		t.Fatal("drain returned before the pending operation posted back")
	}
}

func TestEventLoopDrainTimesOut(t *testing.T) {
	l, _ := startLoop(t)

	l.AddPending()
	defer l.DonePending()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Drain(ctx); err == nil {
		t.Fatal("drain returned while an operation was still pending")
	}
}

func TestEventLoopPostAfterStop(t *testing.T) {
	l, cancel := startLoop(t)
	drainLoop(t, l)
	cancel()

	deadline := time.Now().Add(time.Second)
	for l.Post(func() {}) {
		if time.Now().After(deadline) {
			t.Fatal("loop still accepts handlers after cancellation")
		}
		time.Sleep(time.Millisecond)
	}
}
