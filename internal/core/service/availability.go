package service

import "github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"

// objectIndex is the local view of which objects are present in this node's
// object store. It is only touched from the event loop goroutine.
type objectIndex struct {
	present map[domain.ObjectID]struct{}
}

func newObjectIndex() *objectIndex {
	return &objectIndex{present: make(map[domain.ObjectID]struct{})}
}

// MarkAvailable records oid as locally present. Reports false when the
// object was already indexed, so duplicate notifications can be dropped.
func (x *objectIndex) MarkAvailable(oid domain.ObjectID) bool {
	if _, ok := x.present[oid]; ok {
		return false
	}
	x.present[oid] = struct{}{}
	return true
}

// MarkRemoved records oid as evicted. Reports false when the object was
// not indexed.
func (x *objectIndex) MarkRemoved(oid domain.ObjectID) bool {
	if _, ok := x.present[oid]; !ok {
		return false
	}
	delete(x.present, oid)
	return true
}

// Available reports whether oid is locally present.
func (x *objectIndex) Available(oid domain.ObjectID) bool {
	_, ok := x.present[oid]
	return ok
}

// Len returns the number of locally present objects.
func (x *objectIndex) Len() int {
	return len(x.present)
}
