package rabbitmq

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/YashKapri/whisper-flow/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
)

// TaskProcessor handles one dispatched transcription task. Any per-job
// failure is absorbed into the job's stored status; a returned error means
// only that the outcome could not be recorded.
type TaskProcessor interface {
	Process(ctx context.Context, msg entity.TaskMessage) error
}

type TaskConsumer struct {
	channel     *amqp.Channel
	exchange    string
	routingKey  string
	queue       string
	processor   TaskProcessor
	logger      *slog.Logger
	prefetchCnt int
}

func NewTaskConsumer(conn *amqp.Connection, exchange, routingKey, queue string, processor TaskProcessor, logger *slog.Logger) (*TaskConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	consumer := &TaskConsumer{
		channel:     ch,
		exchange:    exchange,
		routingKey:  routingKey,
		queue:       queue,
		processor:   processor,
		logger:      logger,
		prefetchCnt: 1,
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}

	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return nil, err
	}

	if err := ch.Qos(consumer.prefetchCnt, 0, false); err != nil {
		return nil, err
	}

	return consumer, nil
}

// acknowledger is the slice of amqp.Delivery the consumer settles messages
// through.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Start consumes until the context is cancelled or the channel closes.
// Deliveries are acked only after the job's outcome is recorded, so a worker
// that dies mid-job leaves the message eligible for broker redelivery.
func (c *TaskConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("task consumer shutting down")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("rabbitmq channel closed")
				return nil
			}

			c.handleDelivery(ctx, msg.Body, msg)
		}
	}
}

// handleDelivery settles one message. A malformed payload is dropped; a
// processing error means the outcome never reached the job store, so the
// message is requeued for redelivery (the store's forward-only status guard
// keeps reprocessing idempotent).
func (c *TaskConsumer) handleDelivery(ctx context.Context, body []byte, ack acknowledger) {
	var task entity.TaskMessage
	if err := json.Unmarshal(body, &task); err != nil {
		c.logger.Error("failed to unmarshal task", "error", err)
		_ = ack.Nack(false, false)
		return
	}

	if err := c.processor.Process(ctx, task); err != nil {
		c.logger.Error("task outcome not recorded, requeueing", "job_id", task.JobID, "error", err)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}
