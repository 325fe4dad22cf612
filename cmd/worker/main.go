package main

import (
	"context"
	"crypto/sha1"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	redigo "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/config/logger"
	config "github.com/crabzie/Fog-Local-Scheduler/config/utils"
	"github.com/crabzie/Fog-Local-Scheduler/internal/adapter/ipc"
	redisAdapter "github.com/crabzie/Fog-Local-Scheduler/internal/adapter/storage/redis"
)

func main() {
	socketPath := flag.String("socket", "/tmp/fog-scheduler.sock", "scheduler IPC socket")
	actorID := flag.String("actor-id", "", "actor binding, empty for a plain worker")
	nodeID := flag.String("node-id", "", "node this worker runs on")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	appConfig := config.New()
	log := logger.Build(appConfig.Logger)
	log = log.With(zap.String("service", "worker"), zap.Int("pid", os.Getpid()))
	log.Info("Starting worker", zap.String("socket", *socketPath), zap.String("actor_id", *actorID))

	owner := *nodeID
	if owner == "" {
		owner = appConfig.Scheduler.NodeID
	}
	if owner == "" {
		owner = fmt.Sprintf("fog-node-%s", uuid.NewString()[:8])
	}

	redisClient := redigo.NewClient(&redigo.Options{
		Addr:     appConfig.Redis.Addr,
		Password: appConfig.Redis.Password,
		DB:       0,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	objects := redisAdapter.NewObjectTable(redisClient, log)

	client, err := ipc.Dial(*socketPath)
	if err != nil {
		log.Fatal("Failed to dial scheduler", zap.Error(err))
	}
	if err := client.Register(*actorID); err != nil {
		log.Fatal("Failed to register", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		client.Disconnect()
	}()

	for {
		spec, err := client.GetTask()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				log.Info("Worker shutting down")
				return
			}
			log.Fatal("Failed to fetch assignment", zap.Error(err))
		}
		log.Info("Executing task", zap.Stringer("task_id", spec.ID))

		// Execution placeholder: a deployment wires the real function
		// runtime here. The contract is only that every return object
		// ends up in the store before the next get_task.
		failed := false
		for _, ret := range spec.Returns {
			digest := sha1.Sum(spec.Payload)
			if err := objects.Add(ctx, ret, int64(len(spec.Payload)), digest[:], owner); err != nil {
				log.Error("Failed to store return object", zap.Error(err))
				failed = true
				break
			}
		}
		if failed {
			client.TaskFailed()
		}
		// The next get_task round trip doubles as the done report.
	}
}
