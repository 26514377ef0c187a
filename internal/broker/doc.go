// Package broker предоставляет брокер очередей на базе RabbitMQ:
// соединение с автоматическим переподключением (connection.go),
// декларацию топологии очередей пайплайна (topology.go), публикацию
// заданий (publisher.go) и их потребление с ack/nack семантикой
// (consumer.go).
//
// Одна очередь соответствует одной стадии обработки note: note,
// ingredient, instruction, image, categorization, source,
// pattern-tracking. Все очереди настроены с dead-letter пересылкой в
// общую notepipe.dlq при исчерпании попыток доставки.
package broker
