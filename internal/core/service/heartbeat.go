package service

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/port"
)

// HeartbeatService periodically publishes this node's membership record
// so other schedulers can see it. Live usage comes from the monitoring
// backend; registered and idle worker counts come from the scheduler
// itself.
type HeartbeatService struct {
	nodeID      string
	totalCPU    float64
	totalGPU    float64
	scheduler   *Scheduler
	coordinator port.NodeCoordinator
	monitor     port.MonitoringService
	log         *zap.Logger
}

func NewHeartbeatService(
	nodeID string,
	totalCPU, totalGPU float64,
	scheduler *Scheduler,
	coordinator port.NodeCoordinator,
	monitor port.MonitoringService,
	log *zap.Logger,
) *HeartbeatService {
	return &HeartbeatService{
		nodeID:      nodeID,
		totalCPU:    totalCPU,
		totalGPU:    totalGPU,
		scheduler:   scheduler,
		coordinator: coordinator,
		monitor:     monitor,
		log:         log,
	}
}

// Run sends one heartbeat per interval until ctx is cancelled.
func (h *HeartbeatService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Stopping heartbeat loop")
			return
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *HeartbeatService) beat(ctx context.Context) {
	var usedCPU, usedMemory float64
	if h.monitor != nil {
		var err error
		usedCPU, usedMemory, err = h.monitor.GetNodeMetrics(ctx, h.nodeID)
		if err != nil {
			h.log.Warn("Failed to fetch node metrics", zap.Error(err))
		}
	}

	hostname, _ := os.Hostname()
	node := &domain.Node{
		ID:            h.nodeID,
		Hostname:      hostname,
		TotalCPU:      h.totalCPU,
		TotalGPU:      h.totalGPU,
		UsedCPU:       usedCPU,
		UsedMemory:    usedMemory,
		Workers:       h.scheduler.NumWorkers(),
		IdleWorkers:   h.scheduler.NumIdleWorkers(),
		Status:        domain.NodeStatusActive,
		LastHeartbeat: time.Now(),
	}

	if err := h.coordinator.RegisterNode(ctx, node); err != nil {
		h.log.Error("Heartbeat failed", zap.Error(err))
	} else {
		h.log.Debug("Heartbeat sent")
	}
}
