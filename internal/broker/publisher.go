package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Envelope — сообщение очереди: задание с метаданными попытки.
//
// Payload хранится как json.RawMessage, поскольку брокеру безразлично
// содержимое — оно типизировано только в рамках конкретной очереди и
// декодируется действиями пайплайна, а не брокером.
type Envelope struct {
	// ID — стабильный идентификатор задания.
	ID string `json:"id"`

	// NoteID — корреляционный идентификатор note, может быть пустым
	// для самого первого enqueue, который его ещё не породил.
	NoteID string `json:"note_id,omitempty"`

	// ImportID — корреляционный идентификатор, присвоенный на входе.
	ImportID string `json:"import_id,omitempty"`

	// Payload — полезная нагрузка, специфичная для очереди.
	Payload json.RawMessage `json:"payload"`

	// Attempt — номер попытки, начиная с 0. Мутируется только брокером.
	Attempt int `json:"attempt"`

	// CreatedAt — время постановки в очередь.
	CreatedAt time.Time `json:"created_at"`
}

// Publisher публикует задания в очереди RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// PublishOptions — параметры постановки задания в очередь.
type PublishOptions struct {
	NoteID   string
	ImportID string
	Attempt  int
}

// Enqueue сериализует payload и публикует его в указанную очередь.
func (p *Publisher) Enqueue(ctx context.Context, queue Queue, payload any, opts PublishOptions) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	env := Envelope{
		ID:        uuid.New().String(),
		NoteID:    opts.NoteID,
		ImportID:  opts.ImportID,
		Payload:   body,
		Attempt:   opts.Attempt,
		CreatedAt: time.Now(),
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			exchangeJobs,
			string(queue),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    env.ID,
				Timestamp:    env.CreatedAt,
				Body:         raw,
			},
		)
	})
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", queue, err)
	}

	p.logger.Debug("enqueued job",
		"queue", queue,
		"job_id", env.ID,
		"note_id", env.NoteID,
	)

	return env.ID, nil
}

// Republish re-enqueues an already-decoded envelope onto queue with an
// updated attempt count, preserving its id and payload. Used by
// Consumer's retry-with-backoff path: a handler failure re-enqueues
// the same job rather than requeueing it immediately.
func (p *Publisher) Republish(ctx context.Context, queue Queue, env Envelope, attempt int) error {
	env.Attempt = attempt
	env.CreatedAt = time.Now()

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			exchangeJobs,
			string(queue),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    env.ID,
				Timestamp:    env.CreatedAt,
				Body:         raw,
			},
		)
	})
	if err != nil {
		return fmt.Errorf("republish to %s: %w", queue, err)
	}

	p.logger.Debug("republished job for retry",
		"queue", queue,
		"job_id", env.ID,
		"attempt", env.Attempt,
	)

	return nil
}
