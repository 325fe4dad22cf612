package memory

import (
	"context"
	"sync"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

// EventFeed collects published lifecycle events in order.
type EventFeed struct {
	mu     sync.Mutex
	events []domain.TaskEvent
}

func NewEventFeed() *EventFeed {
	return &EventFeed{}
}

func (f *EventFeed) PublishTaskEvent(ctx context.Context, event *domain.TaskEvent) error {
	f.mu.Lock()
	f.events = append(f.events, *event)
	f.mu.Unlock()
	return nil
}

// Events returns a copy of everything published so far.
func (f *EventFeed) Events() []domain.TaskEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TaskEvent(nil), f.events...)
}

// Archive collects terminal task records in order.
type Archive struct {
	mu      sync.Mutex
	records []domain.TaskRecord
}

func NewArchive() *Archive {
	return &Archive{}
}

func (a *Archive) Append(ctx context.Context, record *domain.TaskRecord) error {
	a.mu.Lock()
	a.records = append(a.records, *record)
	a.mu.Unlock()
	return nil
}

// Records returns a copy of everything archived so far.
func (a *Archive) Records() []domain.TaskRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.TaskRecord(nil), a.records...)
}
