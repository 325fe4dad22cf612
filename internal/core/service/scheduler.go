package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/port"
)

// Params wires a Scheduler to its adapters. Tasks and Objects are
// required; Events, Archive, Runtime and Metrics may be nil, in which
// case the corresponding side effects are skipped.
type Params struct {
	NodeID        string
	WorkerCommand []string
	Tasks         port.TaskTable
	Objects       port.ObjectTable
	Events        port.EventPublisher
	Archive       port.TaskArchive
	Runtime       port.WorkerRuntime
	Metrics       *Metrics
	Log           *zap.Logger
}

// Scheduler is the per-node task scheduler. All state transitions run on
// a single event loop goroutine; the exported methods post handlers onto
// that loop and return immediately. Drain gives shutdown and tests a
// quiescence point.
type Scheduler struct {
	loop    *EventLoop
	log     *zap.Logger
	nodeID  string
	workCmd []string

	tasks   port.TaskTable
	objects port.ObjectTable
	events  port.EventPublisher
	archive port.TaskArchive
	runtime port.WorkerRuntime
	metrics *Metrics

	// Loop-owned state. Never touched off the loop goroutine.
	index    *objectIndex
	graph    *depGraph
	waiting  *taskQueue
	dispatch *taskQueue
	pool     *workerPool
	recon    map[domain.ObjectID]*reconstruction

	ctx context.Context
}

func NewScheduler(p Params) *Scheduler {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		loop:     NewEventLoop(),
		log:      log,
		nodeID:   p.NodeID,
		workCmd:  p.WorkerCommand,
		tasks:    p.Tasks,
		objects:  p.Objects,
		events:   p.Events,
		archive:  p.Archive,
		runtime:  p.Runtime,
		metrics:  p.Metrics,
		index:    newObjectIndex(),
		graph:    newDepGraph(),
		waiting:  newTaskQueue(),
		dispatch: newTaskQueue(),
		pool:     newWorkerPool(),
		recon:    make(map[domain.ObjectID]*reconstruction),
		ctx:      context.Background(),
	}
}

// Run processes events until ctx is cancelled. Call it on its own
// goroutine, exactly once.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.loop.Run(ctx)
}

// Drain blocks until every posted handler and in-flight table call has
// completed. Counts read afterwards are consistent.
func (s *Scheduler) Drain(ctx context.Context) error {
	return s.loop.Drain(ctx)
}

// SubmitTask accepts a task for local scheduling.
func (s *Scheduler) SubmitTask(spec *domain.TaskSpec) {
	s.loop.Post(func() { s.handleTaskSubmitted(spec) })
}

// NotifyObjectAvailable records that oid is now present in the local
// object store.
func (s *Scheduler) NotifyObjectAvailable(oid domain.ObjectID) {
	s.loop.Post(func() { s.handleObjectAvailable(oid) })
}

// NotifyObjectRemoved records that oid was evicted from the local
// object store.
func (s *Scheduler) NotifyObjectRemoved(oid domain.ObjectID) {
	s.loop.Post(func() { s.handleObjectRemoved(oid) })
}

// RegisterWorker binds a connection to a worker process. actorID is
// empty for plain workers.
func (s *Scheduler) RegisterWorker(conn TaskSender, pid int, actorID string) {
	s.loop.Post(func() { s.handleWorkerRegistered(conn, pid, actorID) })
}

// WorkerGetTask marks the worker behind conn as ready for work. A worker
// that still holds an assignment is implicitly reporting it finished.
func (s *Scheduler) WorkerGetTask(conn TaskSender) {
	s.loop.Post(func() { s.handleGetTask(conn) })
}

// TaskDone records that conn's current assignment finished successfully.
func (s *Scheduler) TaskDone(conn TaskSender) {
	s.loop.Post(func() { s.handleTaskFinished(conn, false) })
}

// TaskFailed records that conn's current assignment failed. The task's
// replicated status moves to LOST so reconstruction can retry it.
func (s *Scheduler) TaskFailed(conn TaskSender) {
	s.loop.Post(func() { s.handleTaskFinished(conn, true) })
}

// WorkerDisconnected tears down all state for conn. Any running
// assignment is dropped locally; its replicated status is left for
// reconstruction to recover.
func (s *Scheduler) WorkerDisconnected(conn TaskSender) {
	s.loop.Post(func() { s.handleWorkerDisconnected(conn) })
}

// ReconstructObject asks the scheduler to make oid exist again by
// re-executing its producer task, unless another copy or a live
// execution already covers it.
func (s *Scheduler) ReconstructObject(oid domain.ObjectID) {
	s.loop.Post(func() { s.handleReconstruct(oid) })
}

// StartWorker spawns one worker subprocess. The pid joins the child set
// until the process connects and registers.
func (s *Scheduler) StartWorker(actorID string) {
	s.loop.Post(func() { s.handleStartWorker(actorID) })
}

// KillWorker forcefully terminates one idle worker, most recently idled
// first. A no-op when every worker is busy.
func (s *Scheduler) KillWorker() {
	s.loop.Post(func() { s.handleKillWorker() })
}

// inspect runs fn on the loop goroutine and waits for it, so count reads
// never race handler execution.
func (s *Scheduler) inspect(fn func()) {
	done := make(chan struct{})
	if !s.loop.Post(func() { fn(); close(done) }) {
		return
	}
	<-done
}

func (s *Scheduler) NumWaitingTasks() int {
	var n int
	s.inspect(func() { n = s.waiting.Len() })
	return n
}

func (s *Scheduler) NumDispatchTasks() int {
	var n int
	s.inspect(func() { n = s.dispatch.Len() })
	return n
}

func (s *Scheduler) NumWorkers() int {
	var n int
	s.inspect(func() { n = s.pool.NumWorkers() })
	return n
}

func (s *Scheduler) NumIdleWorkers() int {
	var n int
	s.inspect(func() { n = s.pool.NumIdle() })
	return n
}

func (s *Scheduler) NumChildProcesses() int {
	var n int
	s.inspect(func() { n = s.pool.NumChildren() })
	return n
}

func (s *Scheduler) NumAvailableObjects() int {
	var n int
	s.inspect(func() { n = s.index.Len() })
	return n
}

func (s *Scheduler) handleTaskSubmitted(spec *domain.TaskSpec) {
	if s.graph.Tracked(spec.ID) {
		s.log.Debug("duplicate submission ignored", zap.Stringer("task_id", spec.ID))
		return
	}
	unmet := s.graph.Track(spec, s.index.Available)

	status := domain.TaskStatusScheduled
	if unmet > 0 {
		status = domain.TaskStatusWaiting
	}
	s.writeTask(spec, status)
	s.publishEvent(domain.TaskEventSubmitted, spec.ID, status)

	if unmet > 0 {
		s.waiting.Push(spec.ID)
		s.log.Debug("task parked on missing objects",
			zap.Stringer("task_id", spec.ID), zap.Int("missing", unmet))
		// Chase every missing argument. Producers that are queued or
		// running anywhere suppress the attempt through the task table.
		for _, arg := range spec.Args {
			if !s.index.Available(arg) {
				s.handleReconstruct(arg)
			}
		}
	} else {
		s.dispatch.Push(spec.ID)
	}
	s.syncGauges()
	s.tryDispatch()
}

func (s *Scheduler) handleObjectAvailable(oid domain.ObjectID) {
	if !s.index.MarkAvailable(oid) {
		return
	}
	if r, ok := s.recon[oid]; ok {
		r.aborted = true
		delete(s.recon, oid)
	}
	s.graph.Satisfy(oid)
	// Promote in waiting-queue order so dispatch stays FIFO with respect
	// to submission.
	for {
		id, ok := s.waiting.PopWhere(func(id domain.TaskID) bool {
			return s.graph.Missing(id) == 0
		})
		if !ok {
			break
		}
		s.dispatch.Push(id)
		s.writeTask(s.graph.Spec(id), domain.TaskStatusScheduled)
	}
	s.syncGauges()
	s.tryDispatch()
}

func (s *Scheduler) handleObjectRemoved(oid domain.ObjectID) {
	if !s.index.MarkRemoved(oid) {
		return
	}
	for _, id := range s.graph.MarkUnmet(oid) {
		if s.dispatch.Remove(id) {
			s.waiting.Push(id)
			s.writeTask(s.graph.Spec(id), domain.TaskStatusWaiting)
		}
	}
	s.syncGauges()
}

func (s *Scheduler) handleWorkerRegistered(conn TaskSender, pid int, actorID string) {
	w := s.pool.Register(conn, pid, actorID)
	s.pool.MarkIdle(w)
	s.log.Info("worker registered",
		zap.Int("pid", pid), zap.String("actor_id", actorID))
	s.syncGauges()
	s.tryDispatch()
}

func (s *Scheduler) handleGetTask(conn TaskSender) {
	w := s.pool.Lookup(conn)
	if w == nil {
		s.log.Warn("get_task from unregistered connection")
		return
	}
	if w.assigned != nil {
		s.finishAssignment(w, false)
	}
	s.pool.MarkIdle(w)
	s.syncGauges()
	s.tryDispatch()
}

func (s *Scheduler) handleTaskFinished(conn TaskSender, failed bool) {
	w := s.pool.Lookup(conn)
	if w == nil || w.assigned == nil {
		s.log.Warn("completion report without assignment", zap.Bool("failed", failed))
		return
	}
	s.finishAssignment(w, failed)
	s.pool.MarkIdle(w)
	s.syncGauges()
	s.tryDispatch()
}

func (s *Scheduler) handleWorkerDisconnected(conn TaskSender) {
	w := s.pool.Remove(conn)
	if w == nil {
		return
	}
	if w.assigned != nil {
		// The replicated status stays RUNNING; reconstruction of the
		// task's returns is what eventually re-executes it.
		s.log.Warn("worker died with assignment",
			zap.Int("pid", w.pid), zap.Stringer("task_id", w.assigned.ID))
		s.graph.Remove(w.assigned.ID)
	} else {
		s.log.Info("worker disconnected", zap.Int("pid", w.pid))
	}
	s.syncGauges()
}

func (s *Scheduler) handleStartWorker(actorID string) {
	if s.runtime == nil {
		s.log.Warn("no worker runtime configured")
		return
	}
	argv := append([]string{}, s.workCmd...)
	if actorID != "" {
		argv = append(argv, "--actor-id", actorID)
	}
	s.loop.AddPending()
	go func() {
		pid, err := s.runtime.Spawn(s.ctx, argv)
		s.loop.Post(func() {
			if err != nil {
				s.log.Error("spawn worker", zap.Error(err))
				return
			}
			s.pool.AddChild(pid)
			s.log.Info("worker spawned", zap.Int("pid", pid))
		})
		s.loop.DonePending()
	}()
}

func (s *Scheduler) handleKillWorker() {
	w := s.pool.PopIdle()
	if w == nil {
		s.log.Info("kill requested but no worker is idle")
		return
	}
	if s.runtime != nil {
		if err := s.runtime.Signal(w.pid, true); err != nil {
			s.log.Error("kill worker", zap.Int("pid", w.pid), zap.Error(err))
		}
	}
	_ = w.conn.Close()
	s.log.Info("worker killed", zap.Int("pid", w.pid))
	s.syncGauges()
}

// tryDispatch matches dispatchable tasks to idle workers until no pair
// fits. Tasks are considered in FIFO order; actor tasks only match the
// worker bound to their actor.
func (s *Scheduler) tryDispatch() {
	for {
		id, ok := s.dispatch.PopWhere(func(id domain.TaskID) bool {
			return s.pool.hasIdleFor(s.graph.Spec(id))
		})
		if !ok {
			return
		}
		spec := s.graph.Spec(id)
		w := s.pool.TakeIdle(spec)
		if w == nil {
			s.dispatch.Push(id)
			return
		}
		s.assign(w, spec)
		s.syncGauges()
	}
}

func (s *Scheduler) assign(w *worker, spec *domain.TaskSpec) {
	w.assigned = spec
	s.writeTask(spec, domain.TaskStatusRunning)
	if err := w.conn.SendTask(spec); err != nil {
		s.log.Error("send task to worker",
			zap.Int("pid", w.pid), zap.Stringer("task_id", spec.ID), zap.Error(err))
		s.pool.Remove(w.conn)
		s.graph.Remove(spec.ID)
		return
	}
	s.metricInc(func(m *Metrics) { m.TasksAssigned.Inc() })
	s.publishEvent(domain.TaskEventAssigned, spec.ID, domain.TaskStatusRunning)
	s.log.Debug("task assigned",
		zap.Stringer("task_id", spec.ID), zap.Int("pid", w.pid))
}

func (s *Scheduler) finishAssignment(w *worker, failed bool) {
	spec := w.assigned
	w.assigned = nil
	status := domain.TaskStatusDone
	event := domain.TaskEventDone
	if failed {
		status = domain.TaskStatusLost
		event = domain.TaskEventFailed
	}
	s.writeTask(spec, status)
	s.publishEvent(event, spec.ID, status)
	s.appendArchive(spec.ID, status, w.pid)
	s.graph.Remove(spec.ID)
	if failed {
		s.metricInc(func(m *Metrics) { m.TasksFailed.Inc() })
		s.log.Warn("task failed",
			zap.Stringer("task_id", spec.ID), zap.Int("pid", w.pid))
	} else {
		s.metricInc(func(m *Metrics) { m.TasksDone.Inc() })
		s.log.Debug("task done", zap.Stringer("task_id", spec.ID))
	}
}

// writeTask upserts the replicated task record. Errors are logged; the
// local queues remain authoritative for this node either way.
func (s *Scheduler) writeTask(spec *domain.TaskSpec, status domain.TaskStatus) {
	if spec == nil {
		return
	}
	task := &domain.Task{Spec: spec, Status: status, OwnerID: s.nodeID}
	s.loop.AddPending()
	s.tasks.Add(s.ctx, task, func(err error) {
		s.loop.Post(func() {
			if err != nil {
				s.log.Error("task table add",
					zap.Stringer("task_id", spec.ID), zap.Error(err))
			}
		})
		s.loop.DonePending()
	})
}

func (s *Scheduler) publishEvent(t domain.TaskEventType, id domain.TaskID, status domain.TaskStatus) {
	if s.events == nil {
		return
	}
	ev := &domain.TaskEvent{
		Type:   t,
		TaskID: id,
		NodeID: s.nodeID,
		Status: status,
		At:     time.Now().UTC(),
	}
	s.loop.AddPending()
	go func() {
		if err := s.events.PublishTaskEvent(s.ctx, ev); err != nil {
			s.loop.Post(func() {
				s.log.Warn("publish task event",
					zap.String("type", string(t)), zap.Error(err))
			})
		}
		s.loop.DonePending()
	}()
}

func (s *Scheduler) appendArchive(id domain.TaskID, status domain.TaskStatus, pid int) {
	if s.archive == nil {
		return
	}
	rec := &domain.TaskRecord{
		TaskID:    id,
		Status:    status,
		NodeID:    s.nodeID,
		WorkerPID: pid,
		At:        time.Now().UTC(),
	}
	s.loop.AddPending()
	go func() {
		if err := s.archive.Append(s.ctx, rec); err != nil {
			s.loop.Post(func() {
				s.log.Warn("archive append",
					zap.Stringer("task_id", id), zap.Error(err))
			})
		}
		s.loop.DonePending()
	}()
}

func (s *Scheduler) metricInc(fn func(*Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func (s *Scheduler) syncGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.WaitingTasks.Set(float64(s.waiting.Len()))
	s.metrics.DispatchTasks.Set(float64(s.dispatch.Len()))
	s.metrics.Workers.Set(float64(s.pool.NumWorkers()))
	s.metrics.IdleWorkers.Set(float64(s.pool.NumIdle()))
}
