package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/port"
)

// casStatusScript atomically swaps the status field iff the current value
// is one of the allowed source statuses. Returns {1, previous} on a win
// and {0, current} otherwise; a missing record returns {0, ""}.
var casStatusScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then
  return {0, ''}
end
for i = 2, #ARGV do
  if cur == ARGV[i] then
    redis.call('HSET', KEYS[1], 'status', ARGV[1])
    return {1, cur}
  end
end
return {0, cur}
`)

// taskTable is the Redis-backed replicated task record store. Every call
// runs its round trip on a fresh goroutine and reports through the done
// callback, so the scheduler's event loop never blocks on Redis.
type taskTable struct {
	client *redis.Client
	log    *zap.Logger
}

func NewTaskTable(client *redis.Client, log *zap.Logger) port.TaskTable {
	return &taskTable{client: client, log: log}
}

func taskKey(id domain.TaskID) string {
	return fmt.Sprintf("task:%s", id)
}

func (t *taskTable) Add(ctx context.Context, task *domain.Task, done func(err error)) {
	go func() {
		spec, err := task.Spec.Encode()
		if err != nil {
			done(err)
			return
		}
		err = t.client.HSet(ctx, taskKey(task.Spec.ID),
			"spec", spec,
			"status", string(task.Status),
			"owner", task.OwnerID,
		).Err()
		if err != nil {
			err = fmt.Errorf("task table add %s: %w", task.Spec.ID, err)
		}
		done(err)
	}()
}

func (t *taskTable) Get(ctx context.Context, id domain.TaskID, done func(task *domain.Task, err error)) {
	go func() {
		fields, err := t.client.HGetAll(ctx, taskKey(id)).Result()
		if err != nil {
			done(nil, fmt.Errorf("task table get %s: %w", id, err))
			return
		}
		if len(fields) == 0 {
			done(nil, fmt.Errorf("task %s: %w", id, domain.ErrTaskNotFound))
			return
		}
		spec, err := domain.DecodeTaskSpec([]byte(fields["spec"]))
		if err != nil {
			done(nil, fmt.Errorf("task table get %s: %w", id, err))
			return
		}
		done(&domain.Task{
			Spec:    spec,
			Status:  domain.TaskStatus(fields["status"]),
			OwnerID: fields["owner"],
		}, nil)
	}()
}

func (t *taskTable) TestAndUpdateStatus(ctx context.Context, id domain.TaskID,
	from []domain.TaskStatus, to domain.TaskStatus,
	done func(swapped bool, current domain.TaskStatus, err error)) {
	go func() {
		argv := make([]interface{}, 0, len(from)+1)
		argv = append(argv, string(to))
		for _, status := range from {
			argv = append(argv, string(status))
		}
		res, err := casStatusScript.Run(ctx, t.client, []string{taskKey(id)}, argv...).Slice()
		if err != nil {
			done(false, "", fmt.Errorf("task table swap %s: %w", id, err))
			return
		}
		if len(res) != 2 {
			done(false, "", fmt.Errorf("task table swap %s: unexpected reply %v", id, res))
			return
		}
		won, _ := res[0].(int64)
		current, _ := res[1].(string)
		done(won == 1, domain.TaskStatus(current), nil)
	}()
}
