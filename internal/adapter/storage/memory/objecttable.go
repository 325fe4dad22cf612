package memory

import (
	"context"
	"sync"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

type objectEntry struct {
	locations map[string]struct{}
	size      int64
	digest    []byte
}

type subscriber struct {
	onAdd    func(oid domain.ObjectID, nodeID string)
	onRemove func(oid domain.ObjectID, nodeID string)
	ctx      context.Context
}

// ObjectTable is a map-backed object directory with synchronous state and
// goroutine-delivered notifications.
type ObjectTable struct {
	mu      sync.Mutex
	objects map[domain.ObjectID]*objectEntry
	subs    []*subscriber
}

func NewObjectTable() *ObjectTable {
	return &ObjectTable{objects: make(map[domain.ObjectID]*objectEntry)}
}

func (t *ObjectTable) Lookup(ctx context.Context, oid domain.ObjectID, done func(locations []string, err error)) {
	t.mu.Lock()
	var locations []string
	if entry, ok := t.objects[oid]; ok {
		for node := range entry.locations {
			locations = append(locations, node)
		}
	}
	t.mu.Unlock()
	go done(locations, nil)
}

func (t *ObjectTable) Add(ctx context.Context, oid domain.ObjectID, size int64, digest []byte, nodeID string) error {
	t.mu.Lock()
	entry, ok := t.objects[oid]
	if !ok {
		entry = &objectEntry{locations: make(map[string]struct{})}
		t.objects[oid] = entry
	}
	entry.locations[nodeID] = struct{}{}
	entry.size = size
	entry.digest = append([]byte(nil), digest...)
	subs := append([]*subscriber(nil), t.subs...)
	t.mu.Unlock()

	for _, sub := range subs {
		if sub.ctx.Err() != nil {
			continue
		}
		go sub.onAdd(oid, nodeID)
	}
	return nil
}

func (t *ObjectTable) Remove(ctx context.Context, oid domain.ObjectID, nodeID string) error {
	t.mu.Lock()
	if entry, ok := t.objects[oid]; ok {
		delete(entry.locations, nodeID)
		if len(entry.locations) == 0 {
			delete(t.objects, oid)
		}
	}
	subs := append([]*subscriber(nil), t.subs...)
	t.mu.Unlock()

	for _, sub := range subs {
		if sub.ctx.Err() != nil {
			continue
		}
		go sub.onRemove(oid, nodeID)
	}
	return nil
}

func (t *ObjectTable) Subscribe(ctx context.Context, onAdd, onRemove func(oid domain.ObjectID, nodeID string)) error {
	t.mu.Lock()
	t.subs = append(t.subs, &subscriber{onAdd: onAdd, onRemove: onRemove, ctx: ctx})
	t.mu.Unlock()
	return nil
}

// Locations reads an object's location set synchronously. Test helper.
func (t *ObjectTable) Locations(oid domain.ObjectID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.objects[oid]
	if !ok {
		return nil
	}
	locations := make([]string, 0, len(entry.locations))
	for node := range entry.locations {
		locations = append(locations, node)
	}
	return locations
}
