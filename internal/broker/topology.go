package broker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue — имя очереди, соответствующей одному типу стадии пайплайна.
type Queue string

// Очереди, по одной на каждый тип стадии обработки note.
const (
	QueueNote            Queue = "notepipe.note"
	QueueIngredient      Queue = "notepipe.ingredient"
	QueueInstruction     Queue = "notepipe.instruction"
	QueueImage           Queue = "notepipe.image"
	QueueCategorization  Queue = "notepipe.categorization"
	QueueSource          Queue = "notepipe.source"
	QueuePatternTracking Queue = "notepipe.pattern-tracking"
	QueueDLQ             Queue = "notepipe.dlq"
)

// AllQueues — список всех рабочих очередей (без DLQ).
func AllQueues() []Queue {
	return []Queue{
		QueueNote,
		QueueIngredient,
		QueueInstruction,
		QueueImage,
		QueueCategorization,
		QueueSource,
		QueuePatternTracking,
	}
}

const (
	exchangeJobs = "notepipe.jobs"
	exchangeDLQ  = "notepipe.dlq"
	routingDLQ   = "dead"
)

// SetupTopology объявляет обменники и очереди для всех стадий пайплайна.
//
// Каждая рабочая очередь привязана к exchangeJobs ключом, равным
// собственному имени, и настроена на пересылку отклонённых сообщений
// в общую DLQ очередь с сохранением исходного имени очереди в заголовке.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(exchangeJobs, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", exchangeJobs, err)
		}
		if err := ch.ExchangeDeclare(exchangeDLQ, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", exchangeDLQ, err)
		}

		if _, err := ch.QueueDeclare(string(QueueDLQ), true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueDLQ, err)
		}
		if err := ch.QueueBind(string(QueueDLQ), routingDLQ, exchangeDLQ, false, nil); err != nil {
			return fmt.Errorf("bind dlq: %w", err)
		}

		dlqArgs := amqp.Table{
			"x-dead-letter-exchange":    exchangeDLQ,
			"x-dead-letter-routing-key": routingDLQ,
		}

		for _, q := range AllQueues() {
			if _, err := ch.QueueDeclare(string(q), true, false, false, false, dlqArgs); err != nil {
				return fmt.Errorf("declare queue %s: %w", q, err)
			}
			if err := ch.QueueBind(string(q), string(q), exchangeJobs, false, nil); err != nil {
				return fmt.Errorf("bind queue %s: %w", q, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования при старте.
func TopologyInfo() string {
	return `
  notepipe RabbitMQ topology:

    notepipe.jobs (direct)
    ├── notepipe.note            [routing: notepipe.note]
    ├── notepipe.ingredient      [routing: notepipe.ingredient]
    ├── notepipe.instruction     [routing: notepipe.instruction]
    ├── notepipe.image           [routing: notepipe.image]
    ├── notepipe.categorization  [routing: notepipe.categorization]
    ├── notepipe.source          [routing: notepipe.source]
    └── notepipe.pattern-tracking [routing: notepipe.pattern-tracking]
            all dead-letter into notepipe.dlq

    notepipe.dlq (direct)
    └── notepipe.dlq [routing: dead]
            manual inspection / replay
  `
}
