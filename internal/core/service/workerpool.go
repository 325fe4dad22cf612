package service

import "github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"

// TaskSender is the scheduler's handle on a connected worker process. The
// IPC adapter implements it; tests substitute in-memory fakes.
type TaskSender interface {
	// SendTask pushes an assignment to the worker. An error means the
	// connection is dead and the worker must be treated as lost.
	SendTask(spec *domain.TaskSpec) error

	// Close tears down the connection.
	Close() error
}

// worker is one registered worker process.
type worker struct {
	conn    TaskSender
	pid     int
	actorID string
	// assigned is the task currently running on this worker, nil when idle.
	assigned *domain.TaskSpec
}

// workerPool tracks worker processes across their lifecycle: spawned but
// not yet registered (childPIDs), registered (workers), and registered
// with no assignment (idle, FIFO). Only touched from the event loop
// goroutine.
type workerPool struct {
	childPIDs map[int]struct{}
	workers   map[TaskSender]*worker
	idle      []*worker
}

func newWorkerPool() *workerPool {
	return &workerPool{
		childPIDs: make(map[int]struct{}),
		workers:   make(map[TaskSender]*worker),
	}
}

// AddChild records a spawned process that has not yet registered.
func (p *workerPool) AddChild(pid int) {
	p.childPIDs[pid] = struct{}{}
}

// Register promotes a connection to a registered worker. If the pid is a
// known child it is consumed from the child set; workers started by hand
// register with pids the pool has never seen, which is fine.
func (p *workerPool) Register(conn TaskSender, pid int, actorID string) *worker {
	delete(p.childPIDs, pid)
	w := &worker{conn: conn, pid: pid, actorID: actorID}
	p.workers[conn] = w
	return w
}

// Lookup returns the registered worker for conn, or nil.
func (p *workerPool) Lookup(conn TaskSender) *worker {
	return p.workers[conn]
}

// MarkIdle appends w to the idle FIFO unless it is already there.
func (p *workerPool) MarkIdle(w *worker) {
	for _, queued := range p.idle {
		if queued == w {
			return
		}
	}
	w.assigned = nil
	p.idle = append(p.idle, w)
}

// TakeIdle removes and returns the first idle worker that can run spec:
// actor tasks only match the worker bound to that actor, and plain tasks
// only match unbound workers. Returns nil when no idle worker fits.
func (p *workerPool) TakeIdle(spec *domain.TaskSpec) *worker {
	for i, w := range p.idle {
		if w.actorID != spec.ActorID {
			continue
		}
		p.idle = append(p.idle[:i], p.idle[i+1:]...)
		return w
	}
	return nil
}

// hasIdleFor reports whether an idle worker could run spec, without
// consuming it.
func (p *workerPool) hasIdleFor(spec *domain.TaskSpec) bool {
	if spec == nil {
		return false
	}
	for _, w := range p.idle {
		if w.actorID == spec.ActorID {
			return true
		}
	}
	return false
}

// Remove forgets a worker entirely and returns it, with its assignment
// still attached so the caller can recover the task. Returns nil when
// conn was never registered.
func (p *workerPool) Remove(conn TaskSender) *worker {
	w, ok := p.workers[conn]
	if !ok {
		return nil
	}
	delete(p.workers, conn)
	for i, queued := range p.idle {
		if queued == w {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			break
		}
	}
	return w
}

// PopIdle removes and returns the most recently idled worker, for
// shrinking the pool. Returns nil when no worker is idle.
func (p *workerPool) PopIdle() *worker {
	if len(p.idle) == 0 {
		return nil
	}
	w := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	delete(p.workers, w.conn)
	return w
}

func (p *workerPool) NumChildren() int { return len(p.childPIDs) }
func (p *workerPool) NumWorkers() int  { return len(p.workers) }
func (p *workerPool) NumIdle() int     { return len(p.idle) }
