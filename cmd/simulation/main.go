package main

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/adapter/storage/memory"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/service"
)

const (
	simulationDuration = 1 * time.Minute
	injectionInterval  = 2 * time.Second
	nodeID             = "sim-node-1"
	workerCount        = 3
)

// simWorker executes assignments in-process: it sleeps a little, writes
// the task's return objects to the object table and reports done.
type simWorker struct {
	pid       int
	scheduler *service.Scheduler
	objects   *memory.ObjectTable
}

func (w *simWorker) SendTask(spec *domain.TaskSpec) error {
	go func() {
		time.Sleep(time.Duration(50+rand.Intn(200)) * time.Millisecond)
		for _, ret := range spec.Returns {
			digest := sha1.Sum(ret[:])
			w.objects.Add(context.Background(), ret, 64, digest[:], nodeID)
		}
		w.scheduler.TaskDone(w)
	}()
	return nil
}

func (w *simWorker) Close() error { return nil }

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), simulationDuration+10*time.Second)
	defer cancel()

	taskTable := memory.NewTaskTable()
	objectTable := memory.NewObjectTable()
	feed := memory.NewEventFeed()
	archive := memory.NewArchive()

	scheduler := service.NewScheduler(service.Params{
		NodeID:  nodeID,
		Tasks:   taskTable,
		Objects: objectTable,
		Events:  feed,
		Archive: archive,
		Log:     zap.NewNop(),
	})
	go scheduler.Run(ctx)

	// The object table doubles as the local store: everything this node
	// writes becomes locally available.
	err := objectTable.Subscribe(ctx,
		func(oid domain.ObjectID, owner string) {
			if owner == nodeID {
				scheduler.NotifyObjectAvailable(oid)
			}
		},
		func(oid domain.ObjectID, owner string) {
			if owner == nodeID {
				scheduler.NotifyObjectRemoved(oid)
			}
		})
	if err != nil {
		log.Fatal("subscribe failed:", err)
	}

	for i := 0; i < workerCount; i++ {
		w := &simWorker{pid: 1000 + i, scheduler: scheduler, objects: objectTable}
		scheduler.RegisterWorker(w, w.pid, "")
	}

	fmt.Println("Starting task chain simulation...")
	fmt.Printf("  node=%s workers=%d duration=%s\n", nodeID, workerCount, simulationDuration)

	endTime := time.Now().Add(simulationDuration)
	ticker := time.NewTicker(injectionInterval)
	defer ticker.Stop()

	chains, tasks := 0, 0
	for time.Now().Before(endTime) {
		<-ticker.C
		chains++

		// Build a dependency chain: each task consumes the previous
		// task's return.
		depth := rand.Intn(4) + 2
		payload := []byte(fmt.Sprintf("chain-%d", chains))
		var prev []domain.ObjectID
		for i := 0; i < depth; i++ {
			spec := domain.NewTaskSpec("", prev, 1, append(payload, byte(i)))
			scheduler.SubmitTask(spec)
			prev = spec.Returns
			tasks++
		}
		fmt.Printf("[Generator] Injected chain %d (%d tasks deep)\n", chains, depth)
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := scheduler.Drain(drainCtx); err != nil {
		fmt.Println("Drain timed out:", err)
	}

	fmt.Println("\nSimulation Complete.")
	fmt.Printf("  chains=%d tasks=%d\n", chains, tasks)
	fmt.Printf("  waiting=%d dispatch=%d idle_workers=%d\n",
		scheduler.NumWaitingTasks(), scheduler.NumDispatchTasks(), scheduler.NumIdleWorkers())
	fmt.Printf("  events=%d archive_rows=%d\n", len(feed.Events()), len(archive.Records()))
}
