package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/port"
)

// heartbeatTTL is how long a node record survives without a refresh.
const heartbeatTTL = 30 * time.Second

type nodeCoordinator struct {
	client *redis.Client
	log    *zap.Logger
}

// NewNodeCoordinator creates the Redis-backed cluster membership adapter.
func NewNodeCoordinator(client *redis.Client, log *zap.Logger) port.NodeCoordinator {
	return &nodeCoordinator{
		client: client,
		log:    log,
	}
}

// RegisterNode saves the node state with a TTL; each heartbeat extends it.
func (c *nodeCoordinator) RegisterNode(ctx context.Context, node *domain.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", node.ID, err)
	}

	key := fmt.Sprintf("node:%s", node.ID)
	return c.client.Set(ctx, key, data, heartbeatTTL).Err()
}

func (c *nodeCoordinator) GetActiveNodes(ctx context.Context) ([]*domain.Node, error) {
	keys, err := c.client.Keys(ctx, "node:*").Result()
	if err != nil {
		return nil, err
	}

	var nodes []*domain.Node
	for _, key := range keys {
		val, err := c.client.Get(ctx, key).Result()
		if err != nil {
			continue // Skip expired/deleted keys race condition
		}

		var node domain.Node
		if err := json.Unmarshal([]byte(val), &node); err == nil {
			nodes = append(nodes, &node)
		}
	}
	return nodes, nil
}
