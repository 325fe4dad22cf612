package redis

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/port"
)

const (
	objectAddedChannel   = "objects:added"
	objectRemovedChannel = "objects:removed"
)

// objectNotice is the pub/sub payload for location changes.
type objectNotice struct {
	ObjectID domain.ObjectID `json:"object_id"`
	NodeID   string          `json:"node_id"`
}

// objectTable is the Redis-backed object directory. Locations live in a
// set per object; add and remove fan out through pub/sub so every
// scheduler sees eviction and creation cluster-wide.
type objectTable struct {
	client *redis.Client
	log    *zap.Logger
}

func NewObjectTable(client *redis.Client, log *zap.Logger) port.ObjectTable {
	return &objectTable{client: client, log: log}
}

func locationsKey(oid domain.ObjectID) string {
	return fmt.Sprintf("object:%s:locations", oid)
}

func infoKey(oid domain.ObjectID) string {
	return fmt.Sprintf("object:%s:info", oid)
}

func (t *objectTable) Lookup(ctx context.Context, oid domain.ObjectID, done func(locations []string, err error)) {
	go func() {
		locations, err := t.client.SMembers(ctx, locationsKey(oid)).Result()
		if err != nil {
			done(nil, fmt.Errorf("object table lookup %s: %w", oid, err))
			return
		}
		done(locations, nil)
	}()
}

func (t *objectTable) Add(ctx context.Context, oid domain.ObjectID, size int64, digest []byte, nodeID string) error {
	pipe := t.client.TxPipeline()
	pipe.SAdd(ctx, locationsKey(oid), nodeID)
	pipe.HSet(ctx, infoKey(oid), "size", size, "digest", hex.EncodeToString(digest))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("object table add %s: %w", oid, err)
	}
	return t.publish(ctx, objectAddedChannel, oid, nodeID)
}

func (t *objectTable) Remove(ctx context.Context, oid domain.ObjectID, nodeID string) error {
	if err := t.client.SRem(ctx, locationsKey(oid), nodeID).Err(); err != nil {
		return fmt.Errorf("object table remove %s: %w", oid, err)
	}
	return t.publish(ctx, objectRemovedChannel, oid, nodeID)
}

func (t *objectTable) publish(ctx context.Context, channel string, oid domain.ObjectID, nodeID string) error {
	payload, err := json.Marshal(objectNotice{ObjectID: oid, NodeID: nodeID})
	if err != nil {
		return fmt.Errorf("marshal object notice: %w", err)
	}
	if err := t.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (t *objectTable) Subscribe(ctx context.Context, onAdd, onRemove func(oid domain.ObjectID, nodeID string)) error {
	sub := t.client.Subscribe(ctx, objectAddedChannel, objectRemovedChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe object channels: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var notice objectNotice
				if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
					t.log.Warn("bad object notice", zap.Error(err))
					continue
				}
				switch msg.Channel {
				case objectAddedChannel:
					onAdd(notice.ObjectID, notice.NodeID)
				case objectRemovedChannel:
					onRemove(notice.ObjectID, notice.NodeID)
				}
			}
		}
	}()
	return nil
}
