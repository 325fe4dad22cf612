// Package port provides behavior interfaces that connect the scheduler core
// to its storage, queue and monitoring adapters.
package port

import (
	"context"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

// TaskTable is the replicated, cluster-wide task record store. All calls are
// asynchronous: the adapter performs the I/O off the caller's goroutine and
// invokes done exactly once, on an adapter-owned goroutine. Callers that need
// loop affinity re-post the callback themselves.
type TaskTable interface {
	// Add upserts the task record (spec, status, owner).
	Add(ctx context.Context, task *domain.Task, done func(err error))

	// Get reads a task record. Misses surface domain.ErrTaskNotFound.
	Get(ctx context.Context, id domain.TaskID, done func(task *domain.Task, err error))

	// TestAndUpdateStatus atomically moves the task's status to "to" iff the
	// current status is one of "from". swapped reports whether the update won.
	TestAndUpdateStatus(ctx context.Context, id domain.TaskID, from []domain.TaskStatus,
		to domain.TaskStatus, done func(swapped bool, current domain.TaskStatus, err error))
}

// ObjectTable tracks which nodes hold which objects, and fans out
// add/remove notifications.
type ObjectTable interface {
	// Lookup reads the current location set for an object.
	Lookup(ctx context.Context, oid domain.ObjectID, done func(locations []string, err error))

	// Add records that nodeID now holds oid. Written by object managers;
	// the scheduler only writes it in simulations and tests.
	Add(ctx context.Context, oid domain.ObjectID, size int64, digest []byte, nodeID string) error

	// Remove records that nodeID evicted oid.
	Remove(ctx context.Context, oid domain.ObjectID, nodeID string) error

	// Subscribe delivers every add/remove until ctx is cancelled. Callbacks
	// run on an adapter-owned goroutine.
	Subscribe(ctx context.Context, onAdd, onRemove func(oid domain.ObjectID, nodeID string)) error
}

// NodeCoordinator tracks cluster membership through TTL heartbeats.
type NodeCoordinator interface {
	RegisterNode(ctx context.Context, node *domain.Node) error
	GetActiveNodes(ctx context.Context) ([]*domain.Node, error)
}

// EventPublisher pushes task lifecycle events to the external feed.
type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, event *domain.TaskEvent) error
}

// TaskArchive appends terminal transitions to durable storage for audit.
type TaskArchive interface {
	Append(ctx context.Context, record *domain.TaskRecord) error
}

// MonitoringService fetches live node resource usage for heartbeats.
type MonitoringService interface {
	// GetNodeMetrics returns CPU usage (percent) and memory usage (MB).
	GetNodeMetrics(ctx context.Context, nodeID string) (float64, float64, error)
}

// WorkerRuntime owns worker OS processes.
type WorkerRuntime interface {
	// Spawn starts argv as a detached subprocess and returns its PID.
	Spawn(ctx context.Context, argv []string) (pid int, err error)

	// Signal delivers a termination signal; forceful selects SIGKILL.
	Signal(pid int, forceful bool) error
}
