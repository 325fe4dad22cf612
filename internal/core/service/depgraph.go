package service

import "github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"

// depGraph tracks, per tracked task, which argument objects are still
// missing (forward map) and, per object, which tasks wait on it (reverse
// map). Entries live from submission until the task reaches a terminal
// state locally, so a dependency evicted while the task sits in the
// dispatch queue can still be re-marked as unmet. Only touched from the
// event loop goroutine.
type depGraph struct {
	specs   map[domain.TaskID]*domain.TaskSpec
	missing map[domain.TaskID]map[domain.ObjectID]struct{}
	waiters map[domain.ObjectID]map[domain.TaskID]struct{}
}

func newDepGraph() *depGraph {
	return &depGraph{
		specs:   make(map[domain.TaskID]*domain.TaskSpec),
		missing: make(map[domain.TaskID]map[domain.ObjectID]struct{}),
		waiters: make(map[domain.ObjectID]map[domain.TaskID]struct{}),
	}
}

// Track registers spec and computes its unmet dependencies using the
// available predicate. It returns the number of missing arguments; zero
// means the task is immediately dispatchable.
func (g *depGraph) Track(spec *domain.TaskSpec, available func(domain.ObjectID) bool) int {
	g.specs[spec.ID] = spec
	unmet := make(map[domain.ObjectID]struct{})
	for _, arg := range spec.Args {
		if available(arg) {
			continue
		}
		unmet[arg] = struct{}{}
		g.addWaiter(arg, spec.ID)
	}
	g.missing[spec.ID] = unmet
	return len(unmet)
}

// Tracked reports whether id is currently registered.
func (g *depGraph) Tracked(id domain.TaskID) bool {
	_, ok := g.specs[id]
	return ok
}

// Spec returns the registered spec for id, or nil.
func (g *depGraph) Spec(id domain.TaskID) *domain.TaskSpec {
	return g.specs[id]
}

// Missing returns the number of unmet dependencies for id.
func (g *depGraph) Missing(id domain.TaskID) int {
	return len(g.missing[id])
}

// Satisfy clears oid from the unmet set of every task waiting on it and
// returns the tasks that became fully satisfied by this object.
func (g *depGraph) Satisfy(oid domain.ObjectID) []domain.TaskID {
	var ready []domain.TaskID
	for id := range g.waiters[oid] {
		unmet := g.missing[id]
		delete(unmet, oid)
		if len(unmet) == 0 {
			ready = append(ready, id)
		}
	}
	delete(g.waiters, oid)
	return ready
}

// MarkUnmet re-registers oid as a missing dependency for every tracked
// task whose spec names it as an argument, and returns the tasks newly
// affected. Tasks that already counted oid as missing are skipped.
func (g *depGraph) MarkUnmet(oid domain.ObjectID) []domain.TaskID {
	var affected []domain.TaskID
	for id, spec := range g.specs {
		if !spec.HasArg(oid) {
			continue
		}
		unmet := g.missing[id]
		if _, dup := unmet[oid]; dup {
			continue
		}
		unmet[oid] = struct{}{}
		g.addWaiter(oid, id)
		affected = append(affected, id)
	}
	return affected
}

// Remove forgets the task entirely, including its reverse-map entries.
func (g *depGraph) Remove(id domain.TaskID) {
	for oid := range g.missing[id] {
		if set, ok := g.waiters[oid]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(g.waiters, oid)
			}
		}
	}
	delete(g.missing, id)
	delete(g.specs, id)
}

func (g *depGraph) addWaiter(oid domain.ObjectID, id domain.TaskID) {
	set, ok := g.waiters[oid]
	if !ok {
		set = make(map[domain.TaskID]struct{})
		g.waiters[oid] = set
	}
	set[id] = struct{}{}
}
