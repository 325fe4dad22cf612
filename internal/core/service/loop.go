package service

import (
	"context"
	"sync"
)

// EventLoop serializes all scheduler state mutation onto one goroutine.
// Handlers posted here run to completion in FIFO order; asynchronous table
// calls are accounted with AddPending/DonePending so Drain can report true
// quiescence (no queued handler and no in-flight table RPC).
type EventLoop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	pending int
	waiters []chan struct{}
	stopped bool
	started bool
}

func NewEventLoop() *EventLoop {
	l := &EventLoop{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Post enqueues fn for execution on the loop goroutine. Safe to call from
// any goroutine, including from handlers already running on the loop.
// Reports false when the loop has stopped and fn was discarded.
func (l *EventLoop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Signal()
	return true
}

// AddPending records an in-flight asynchronous operation whose completion
// callback will eventually be posted back to the loop.
func (l *EventLoop) AddPending() {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()
}

// DonePending balances a prior AddPending.
func (l *EventLoop) DonePending() {
	l.mu.Lock()
	l.pending--
	l.cond.Signal()
	l.mu.Unlock()
}

// Run processes posted handlers until ctx is cancelled. It must be called
// exactly once; callers normally run it on its own goroutine.
func (l *EventLoop) Run(ctx context.Context) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		panic("event loop started twice")
	}
	l.started = true
	l.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.stopped = true
		l.releaseWaiters()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	l.mu.Lock()
	for {
		for len(l.queue) == 0 && !l.stopped {
			if l.pending == 0 {
				l.releaseWaiters()
			}
			l.cond.Wait()
		}
		if l.stopped {
			l.releaseWaiters()
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
		l.mu.Lock()
	}
}

// Drain blocks until the loop is quiescent: the run queue is empty and no
// asynchronous operation is outstanding. Returns ctx.Err on timeout and nil
// once quiescent or after the loop stops.
func (l *EventLoop) Drain(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped || (len(l.queue) == 0 && l.pending == 0 && l.started) {
		l.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	l.waiters = append(l.waiters, w)
	l.cond.Signal()
	l.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// releaseWaiters must be called with mu held.
func (l *EventLoop) releaseWaiters() {
	for _, w := range l.waiters {
		close(w)
	}
	l.waiters = nil
}
