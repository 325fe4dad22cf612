package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

func TestTaskTableAddGet(t *testing.T) {
	table := NewTaskTable()
	spec := domain.NewTaskSpec("", nil, 1, []byte("record"))

	added := make(chan error, 1)
	table.Add(context.Background(),
		&domain.Task{Spec: spec, Status: domain.TaskStatusScheduled, OwnerID: "node-1"},
		func(err error) { added <- err })
	if err := <-added; err != nil {
		t.Fatalf("add: %v", err)
	}

	got := make(chan *domain.Task, 1)
	table.Get(context.Background(), spec.ID, func(task *domain.Task, err error) {
		if err != nil {
			t.Errorf("get: %v", err)
		}
		got <- task
	})
	task := <-got
	if task.Spec.ID != spec.ID || task.Status != domain.TaskStatusScheduled || task.OwnerID != "node-1" {
		t.Fatalf("fetched %+v", task)
	}
}

func TestTaskTableGetMiss(t *testing.T) {
	table := NewTaskTable()
	unknown := domain.NewTaskSpec("", nil, 1, []byte("never added"))

	done := make(chan error, 1)
	table.Get(context.Background(), unknown.ID, func(task *domain.Task, err error) { done <- err })
	if err := <-done; !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskTableStatusSwap(t *testing.T) {
	table := NewTaskTable()
	spec := domain.NewTaskSpec("", nil, 1, []byte("swap target"))

	added := make(chan error, 1)
	table.Add(context.Background(),
		&domain.Task{Spec: spec, Status: domain.TaskStatusDone, OwnerID: "node-1"},
		func(err error) { added <- err })
	<-added

	type result struct {
		swapped bool
		current domain.TaskStatus
	}
	swap := func(from []domain.TaskStatus, to domain.TaskStatus) result {
		done := make(chan result, 1)
		table.TestAndUpdateStatus(context.Background(), spec.ID, from, to,
			func(swapped bool, current domain.TaskStatus, err error) {
				if err != nil {
					t.Errorf("swap: %v", err)
				}
				done <- result{swapped, current}
			})
		return <-done
	}

	// DONE matches the terminal set, so the swap wins.
	r := swap([]domain.TaskStatus{domain.TaskStatusDone, domain.TaskStatusLost}, domain.TaskStatusScheduled)
	if !r.swapped || r.current != domain.TaskStatusDone {
		t.Fatalf("first swap = %+v", r)
	}
	if status, _ := table.Status(spec.ID); status != domain.TaskStatusScheduled {
		t.Fatalf("status after swap = %s", status)
	}

	// A second identical swap loses against the new SCHEDULED status.
	r = swap([]domain.TaskStatus{domain.TaskStatusDone, domain.TaskStatusLost}, domain.TaskStatusScheduled)
	if r.swapped || r.current != domain.TaskStatusScheduled {
		t.Fatalf("second swap = %+v", r)
	}
}

func TestObjectTableLocationsAndLookup(t *testing.T) {
	table := NewObjectTable()
	spec := domain.NewTaskSpec("", nil, 1, []byte("shared object"))
	oid := spec.Returns[0]

	if err := table.Add(context.Background(), oid, 128, []byte{0xaa}, "node-a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := table.Add(context.Background(), oid, 128, []byte{0xaa}, "node-b"); err != nil {
		t.Fatalf("add: %v", err)
	}

	locations := make(chan []string, 1)
	table.Lookup(context.Background(), oid, func(got []string, err error) {
		if err != nil {
			t.Errorf("lookup: %v", err)
		}
		locations <- got
	})
	if got := <-locations; len(got) != 2 {
		t.Fatalf("locations = %v, want two nodes", got)
	}

	if err := table.Remove(context.Background(), oid, "node-a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := table.Locations(oid); len(got) != 1 || got[0] != "node-b" {
		t.Fatalf("locations after removal = %v", got)
	}
}

func TestObjectTableSubscribeDeliversNotifications(t *testing.T) {
	table := NewObjectTable()
	spec := domain.NewTaskSpec("", nil, 1, []byte("watched object"))
	oid := spec.Returns[0]

	type notice struct {
		oid  domain.ObjectID
		node string
	}
	adds := make(chan notice, 1)
	removes := make(chan notice, 1)
	err := table.Subscribe(context.Background(),
		func(oid domain.ObjectID, nodeID string) { adds <- notice{oid, nodeID} },
		func(oid domain.ObjectID, nodeID string) { removes <- notice{oid, nodeID} })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := table.Add(context.Background(), oid, 64, nil, "node-a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	select {
	case n := <-adds:
		if n.oid != oid || n.node != "node-a" {
			t.Fatalf("add notice = %+v", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no add notification")
	}

	if err := table.Remove(context.Background(), oid, "node-a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	select {
	case n := <-removes:
		if n.oid != oid || n.node != "node-a" {
			t.Fatalf("remove notice = %+v", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no remove notification")
	}
}

func TestObjectTableCancelledSubscriberIsSkipped(t *testing.T) {
	table := NewObjectTable()
	spec := domain.NewTaskSpec("", nil, 1, []byte("unwatched object"))

	ctx, cancel := context.WithCancel(context.Background())
	notified := make(chan struct{}, 1)
	if err := table.Subscribe(ctx,
		func(domain.ObjectID, string) { notified <- struct{}{} },
		func(domain.ObjectID, string) { notified <- struct{}{} }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	if err := table.Add(context.Background(), spec.Returns[0], 64, nil, "node-a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	select {
	case <-notified:
		t.Fatal("cancelled subscriber still notified")
	case <-time.After(50 * time.Millisecond):
	}
}
