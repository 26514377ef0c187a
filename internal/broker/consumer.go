package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно задание. Возврат ошибки помечает сообщение
// как неуспешное (requeue); успешный возврат — подтверждает обработку.
type Handler func(ctx context.Context, env *Delivery) error

// Delivery — полученное задание вместе с методами подтверждения.
type Delivery struct {
	Envelope Envelope
	Raw      amqp.Delivery
}

// Ack подтверждает успешную обработку.
func (d *Delivery) Ack() error {
	return d.Raw.Ack(false)
}

// Nack отклоняет задание. requeue=true возвращает его в очередь,
// false — отправляет в DLQ (если очередь её настроена).
func (d *Delivery) Nack(requeue bool) error {
	return d.Raw.Nack(false, requeue)
}

// RetryConfig controls the broker-level, per-job retry-with-backoff
// applied when a handler returns an error: the job is republished to
// its own queue with Attempt+1 after a delay, until MaxAttempts is
// reached, at which point it is dead-lettered instead.
type RetryConfig struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig — значения по умолчанию, согласованные с
// middleware.DefaultRetryConfig.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BaseDelay:         1000 * time.Millisecond,
		MaxDelay:          30000 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func (c RetryConfig) delayFor(attempt int) time.Duration {
	delay := float64(c.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= c.BackoffMultiplier
	}
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	return time.Duration(delay)
}

// Consumer потребляет задания из одной очереди.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int

	publisher   *Publisher
	retryConfig RetryConfig

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue    Queue
	Handler  Handler
	Prefetch int

	// Publisher, if set, enables the retry-with-backoff path on
	// handler failure: without it every handler failure dead-letters
	// immediately (no re-enqueue is possible).
	Publisher *Publisher
	// RetryConfig — zero value selects DefaultRetryConfig.
	RetryConfig RetryConfig
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxAttempts <= 0 {
		retryConfig = DefaultRetryConfig()
	}

	return &Consumer{
		conn:        conn,
		logger:      logger,
		queue:       cfg.Queue,
		handler:     cfg.Handler,
		prefetch:    prefetch,
		publisher:   cfg.Publisher,
		retryConfig: retryConfig,
	}
}

// Start запускает основной цикл потребления; блокирует вызывающего до
// отмены ctx или фатальной ошибки канала.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	return c.consume(ctx)
}

func (c *Consumer) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(string(c.queue), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var env Envelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		c.logger.Error("failed to unmarshal envelope",
			"queue", c.queue, "error", err, "body", string(raw.Body))
		raw.Nack(false, false)
		return
	}

	d := &Delivery{Envelope: env, Raw: raw}

	c.logger.Debug("received job", "queue", c.queue, "job_id", env.ID, "note_id", env.NoteID)

	if err := c.handler(ctx, d); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue, "job_id", env.ID, "note_id", env.NoteID,
			"attempt", env.Attempt, "error", err)
		c.retryOrDeadLetter(ctx, raw, env)
		return
	}

	raw.Ack(false)
}

// retryOrDeadLetter is called after a handler failure. If attempts
// remain and a publisher is wired, it sleeps the backoff delay,
// republishes the job with Attempt+1, and acks the original delivery
// so it doesn't also loop back through the queue. Otherwise it
// dead-letters the delivery via the queue's own DLQ arguments.
func (c *Consumer) retryOrDeadLetter(ctx context.Context, raw amqp.Delivery, env Envelope) {
	if c.publisher == nil || env.Attempt >= c.retryConfig.MaxAttempts {
		c.logger.Warn("attempts exhausted, dead-lettering",
			"queue", c.queue, "job_id", env.ID, "attempt", env.Attempt)
		raw.Nack(false, false)
		return
	}

	delay := c.retryConfig.delayFor(env.Attempt)
	c.logger.Warn("retrying job after backoff",
		"queue", c.queue, "job_id", env.ID, "attempt", env.Attempt, "delay", delay)

	select {
	case <-ctx.Done():
		raw.Nack(false, false)
		return
	case <-time.After(delay):
	}

	if err := c.publisher.Republish(ctx, c.queue, env, env.Attempt+1); err != nil {
		c.logger.Error("failed to republish for retry, dead-lettering",
			"queue", c.queue, "job_id", env.ID, "error", err)
		raw.Nack(false, false)
		return
	}

	raw.Ack(false)
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// DecodePayload декодирует Payload задания в указанный тип.
func DecodePayload[T any](env *Envelope) (T, error) {
	var result T
	if err := json.Unmarshal(env.Payload, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
