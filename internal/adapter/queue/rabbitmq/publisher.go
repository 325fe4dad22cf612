package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

const eventExchange = "task.events"

type EventFeed struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

// NewEventFeed connects to RabbitMQ and declares the lifecycle event
// exchange. The broker usually comes up after the scheduler in
// docker-compose, so connection attempts retry with backoff.
func NewEventFeed(url string, log *zap.Logger) (*EventFeed, error) {
	var conn *amqp.Connection
	var err error

	maxRetries := 10
	for i := 1; i <= maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr == nil {
				if declErr := ch.ExchangeDeclare(
					eventExchange, // name
					"topic",       // kind
					true,          // durable
					false,         // auto-delete
					false,         // internal
					false,         // no-wait
					nil,           // arguments
				); declErr != nil {
					conn.Close()
					return nil, fmt.Errorf("declare exchange %s: %w", eventExchange, declErr)
				}
				return &EventFeed{
					conn: conn,
					ch:   ch,
					log:  log,
				}, nil
			}
			err = chErr
			conn.Close()
		}

		log.Warn("Failed to connect to RabbitMQ, retrying...",
			zap.Int("attempt", i),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		// Simple incremental backoff
		time.Sleep(time.Duration(i*2) * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

func (q *EventFeed) PublishTaskEvent(ctx context.Context, event *domain.TaskEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal task event: %w", err)
	}

	routingKey := fmt.Sprintf("task.event.%s", event.Type)

	err = q.ch.PublishWithContext(ctx,
		eventExchange, // Exchange
		routingKey,    // Routing key
		false,         // Mandatory
		false,         // Immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})

	if err != nil {
		q.log.Error("Failed to publish task event", zap.Error(err))
		return err
	}

	q.log.Debug("Published task event",
		zap.Stringer("task_id", event.TaskID), zap.String("key", routingKey))
	return nil
}

func (q *EventFeed) Close() {
	q.ch.Close()
	q.conn.Close()
}
