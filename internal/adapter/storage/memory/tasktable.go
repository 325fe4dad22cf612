// Package memory provides in-process table and feed adapters. The
// simulation binary and the test suites run against these instead of
// Redis, Postgres and RabbitMQ.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

// TaskTable is a map-backed task record store. Callbacks run on their
// own goroutine, like the Redis adapter's do.
type TaskTable struct {
	mu      sync.Mutex
	records map[domain.TaskID]domain.Task
}

func NewTaskTable() *TaskTable {
	return &TaskTable{records: make(map[domain.TaskID]domain.Task)}
}

func (t *TaskTable) Add(ctx context.Context, task *domain.Task, done func(err error)) {
	t.mu.Lock()
	t.records[task.Spec.ID] = domain.Task{
		Spec:    task.Spec,
		Status:  task.Status,
		OwnerID: task.OwnerID,
	}
	t.mu.Unlock()
	go done(nil)
}

func (t *TaskTable) Get(ctx context.Context, id domain.TaskID, done func(task *domain.Task, err error)) {
	t.mu.Lock()
	rec, ok := t.records[id]
	t.mu.Unlock()
	go func() {
		if !ok {
			done(nil, fmt.Errorf("task %s: %w", id, domain.ErrTaskNotFound))
			return
		}
		copied := rec
		done(&copied, nil)
	}()
}

func (t *TaskTable) TestAndUpdateStatus(ctx context.Context, id domain.TaskID,
	from []domain.TaskStatus, to domain.TaskStatus,
	done func(swapped bool, current domain.TaskStatus, err error)) {
	t.mu.Lock()
	rec, ok := t.records[id]
	var swapped bool
	var current domain.TaskStatus
	if ok {
		current = rec.Status
		if domain.StatusIn(rec.Status, from...) {
			rec.Status = to
			t.records[id] = rec
			swapped = true
		}
	}
	t.mu.Unlock()
	go func() {
		if !ok {
			done(false, "", fmt.Errorf("task %s: %w", id, domain.ErrTaskNotFound))
			return
		}
		done(swapped, current, nil)
	}()
}

// Status reads a record's current status synchronously. Test helper.
func (t *TaskTable) Status(id domain.TaskID) (domain.TaskStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	return rec.Status, ok
}

// SetStatus overwrites a record's status synchronously. Test helper.
func (t *TaskTable) SetStatus(id domain.TaskID, status domain.TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return
	}
	rec.Status = status
	t.records[id] = rec
}
