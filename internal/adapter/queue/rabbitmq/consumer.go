package rabbitmq

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

// ConsumeTaskEvents binds an exclusive queue to the lifecycle exchange
// and feeds every event to handler. Used by the monitor binary.
func (q *EventFeed) ConsumeTaskEvents(ctx context.Context, handler func(event *domain.TaskEvent) error) error {
	declared, err := q.ch.QueueDeclare(
		"",    // name, broker picks one
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	if err := q.ch.QueueBind(
		declared.Name,  // queue
		"task.event.#", // routing key
		eventExchange,  // exchange
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return err
	}

	msgs, err := q.ch.Consume(
		declared.Name, // queue
		"",            // consumer
		false,         // auto-ack (ack manually after the handler ran)
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return err
	}

	q.log.Info("Started consuming task events", zap.String("queue", declared.Name))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.TaskEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					q.log.Error("Failed to unmarshal task event", zap.Error(err))
					d.Nack(false, false) // discard invalid message
					continue
				}

				if err := handler(&event); err != nil {
					q.log.Error("Event handling failed", zap.Error(err))
					d.Nack(false, true)
				} else {
					d.Ack(false)
				}
			}
		}
	}()

	return nil
}
