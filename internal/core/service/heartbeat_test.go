package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

type recordingCoordinator struct {
	mu    sync.Mutex
	nodes []*domain.Node
}

func (c *recordingCoordinator) RegisterNode(ctx context.Context, node *domain.Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append(c.nodes, node)
	return nil
}

func (c *recordingCoordinator) GetActiveNodes(ctx context.Context) ([]*domain.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.Node(nil), c.nodes...), nil
}

func (c *recordingCoordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

type staticMonitor struct{}

func (staticMonitor) GetNodeMetrics(ctx context.Context, nodeID string) (float64, float64, error) {
	return 37.5, 1024, nil
}

func TestHeartbeatPublishesNodeRecord(t *testing.T) {
	h := newHarness(t)
	c := &fakeConn{}
	h.s.RegisterWorker(c, 401, "")
	h.drain()

	coordinator := &recordingCoordinator{}
	hb := NewHeartbeatService(testNode, 8, 1, h.s, coordinator, staticMonitor{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go hb.Run(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(3 * time.Second)
	for coordinator.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no heartbeat arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	nodes, _ := coordinator.GetActiveNodes(context.Background())
	node := nodes[0]
	if node.ID != testNode || node.Status != domain.NodeStatusActive {
		t.Fatalf("heartbeat record %+v", node)
	}
	if node.TotalCPU != 8 || node.TotalGPU != 1 {
		t.Fatalf("capacity %v/%v, want 8/1", node.TotalCPU, node.TotalGPU)
	}
	if node.UsedCPU != 37.5 || node.UsedMemory != 1024 {
		t.Fatalf("usage %v/%v, want the monitor's numbers", node.UsedCPU, node.UsedMemory)
	}
	if node.Workers != 1 || node.IdleWorkers != 1 {
		t.Fatalf("pool depths %d/%d, want 1/1", node.Workers, node.IdleWorkers)
	}
	if node.LastHeartbeat.IsZero() {
		t.Fatal("heartbeat timestamp not set")
	}
}
