package service

import (
	"testing"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

func TestWorkerPoolIdleOrderIsFIFO(t *testing.T) {
	p := newWorkerPool()
	c1, c2 := &fakeConn{}, &fakeConn{}
	w1 := p.Register(c1, 1, "")
	w2 := p.Register(c2, 2, "")
	p.MarkIdle(w1)
	p.MarkIdle(w2)

	spec := plainSpec("any")
	if got := p.TakeIdle(spec); got != w1 {
		t.Fatalf("TakeIdle returned pid %d, want the first idled (1)", got.pid)
	}
	if got := p.TakeIdle(spec); got != w2 {
		t.Fatalf("TakeIdle returned pid %d, want 2", got.pid)
	}
	if p.TakeIdle(spec) != nil {
		t.Fatal("TakeIdle returned a worker from an empty idle list")
	}
}

func TestWorkerPoolMarkIdleIsIdempotent(t *testing.T) {
	p := newWorkerPool()
	w := p.Register(&fakeConn{}, 1, "")
	p.MarkIdle(w)
	p.MarkIdle(w)
	if n := p.NumIdle(); n != 1 {
		t.Fatalf("idle count %d after double MarkIdle, want 1", n)
	}
}

func TestWorkerPoolActorMatching(t *testing.T) {
	p := newWorkerPool()
	plain := p.Register(&fakeConn{}, 1, "")
	bound := p.Register(&fakeConn{}, 2, "actor-a")
	p.MarkIdle(plain)
	p.MarkIdle(bound)

	actorSpec := domain.NewTaskSpec("actor-a", nil, 1, []byte("actor work"))
	plainTask := plainSpec("plain work")

	if !p.hasIdleFor(actorSpec) || !p.hasIdleFor(plainTask) {
		t.Fatal("hasIdleFor denied a matchable spec")
	}
	if got := p.TakeIdle(actorSpec); got != bound {
		t.Fatal("actor task did not match its bound worker")
	}
	if p.hasIdleFor(actorSpec) {
		t.Fatal("hasIdleFor matched an actor task with no bound worker idle")
	}
	if got := p.TakeIdle(plainTask); got != plain {
		t.Fatal("plain task did not match the unbound worker")
	}
}

func TestWorkerPoolPopIdleIsLIFO(t *testing.T) {
	p := newWorkerPool()
	w1 := p.Register(&fakeConn{}, 1, "")
	w2 := p.Register(&fakeConn{}, 2, "")
	p.MarkIdle(w1)
	p.MarkIdle(w2)

	if got := p.PopIdle(); got != w2 {
		t.Fatalf("PopIdle returned pid %d, want the most recently idled (2)", got.pid)
	}
	if n := p.NumWorkers(); n != 1 {
		t.Fatalf("popped worker still registered, count %d", n)
	}
	if got := p.PopIdle(); got != w1 {
		t.Fatal("second PopIdle did not return the remaining worker")
	}
	if p.PopIdle() != nil {
		t.Fatal("PopIdle returned a worker from an empty pool")
	}
}

func TestWorkerPoolRemoveKeepsAssignment(t *testing.T) {
	p := newWorkerPool()
	c := &fakeConn{}
	w := p.Register(c, 1, "")
	spec := plainSpec("in-flight")
	w.assigned = spec

	removed := p.Remove(c)
	if removed == nil || removed.assigned != spec {
		t.Fatal("Remove lost the in-flight assignment")
	}
	if p.Lookup(c) != nil {
		t.Fatal("removed worker still resolvable")
	}
	if p.Remove(c) != nil {
		t.Fatal("Remove of an unknown connection returned a worker")
	}
}

func TestWorkerPoolRegisterConsumesChild(t *testing.T) {
	p := newWorkerPool()
	p.AddChild(42)
	if n := p.NumChildren(); n != 1 {
		t.Fatalf("child count %d, want 1", n)
	}
	p.Register(&fakeConn{}, 42, "")
	if n := p.NumChildren(); n != 0 {
		t.Fatalf("child count %d after registration, want 0", n)
	}
	// Hand-started workers register with pids the pool never spawned.
	p.Register(&fakeConn{}, 7777, "")
	if n := p.NumWorkers(); n != 2 {
		t.Fatalf("worker count %d, want 2", n)
	}
}
