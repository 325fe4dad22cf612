package service

import "github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"

// taskQueue is a FIFO of task IDs with O(1) membership checks. Only
// touched from the event loop goroutine.
type taskQueue struct {
	order  []domain.TaskID
	member map[domain.TaskID]struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{member: make(map[domain.TaskID]struct{})}
}

// Push appends id unless it is already queued.
func (q *taskQueue) Push(id domain.TaskID) bool {
	if _, ok := q.member[id]; ok {
		return false
	}
	q.order = append(q.order, id)
	q.member[id] = struct{}{}
	return true
}

// Contains reports whether id is queued.
func (q *taskQueue) Contains(id domain.TaskID) bool {
	_, ok := q.member[id]
	return ok
}

// Remove deletes id from the queue, preserving the order of the rest.
func (q *taskQueue) Remove(id domain.TaskID) bool {
	if _, ok := q.member[id]; !ok {
		return false
	}
	delete(q.member, id)
	for i, queued := range q.order {
		if queued == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

// PopWhere removes and returns the first queued id for which keep returns
// true. The zero TaskID and false mean no queued task matched.
func (q *taskQueue) PopWhere(keep func(domain.TaskID) bool) (domain.TaskID, bool) {
	for i, id := range q.order {
		if !keep(id) {
			continue
		}
		q.order = append(q.order[:i], q.order[i+1:]...)
		delete(q.member, id)
		return id, true
	}
	return domain.NilTaskID, false
}

// Each calls fn for every queued id in FIFO order.
func (q *taskQueue) Each(fn func(domain.TaskID)) {
	for _, id := range q.order {
		fn(id)
	}
}

// Len returns the queue depth.
func (q *taskQueue) Len() int {
	return len(q.order)
}
