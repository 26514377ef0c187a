// Package pipeline реализует действие (Action) как наименьшую единицу
// работы пайплайна и исполнитель, прогоняющий упорядоченный список
// действий для одного задания.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/notepipe/internal/broker"
)

// Job — задание, полученное воркером из очереди.
//
// Payload непрозрачен для рантайма: его форма специфична для очереди
// и декодируется самими действиями.
type Job struct {
	ID        string
	Queue     string
	Payload   []byte
	Attempt   int
	CreatedAt time.Time
}

// NewJobFromEnvelope строит Job из конверта, полученного брокером.
func NewJobFromEnvelope(queue string, env broker.Envelope) Job {
	return Job{
		ID:        env.ID,
		Queue:     queue,
		Payload:   env.Payload,
		Attempt:   env.Attempt,
		CreatedAt: env.CreatedAt,
	}
}

// ActionContext — доступный только для чтения контекст исполнения
// одного действия внутри одного задания.
type ActionContext struct {
	JobID         string
	QueueName     string
	Operation     string
	WorkerName    string
	StartTime     time.Time
	AttemptNumber int
	RetryCount    int
}

// PipelineData — данные, передаваемые по цепочке действий.
//
// NoteID и ImportID вынесены как поля верхнего уровня, поскольку они
// пронизывают практически каждое действие; всё прочее (содержимое,
// идентификаторы строк, флаги бизнес-исхода) живёт в Fields.
type PipelineData struct {
	NoteID   string
	ImportID string
	Fields   map[string]any
}

// NewPipelineData создаёт пустой PipelineData для данного задания.
func NewPipelineData(noteID, importID string) PipelineData {
	return PipelineData{NoteID: noteID, ImportID: importID, Fields: map[string]any{}}
}

// Get возвращает значение поля и признак присутствия.
func (d PipelineData) Get(key string) (any, bool) {
	if d.Fields == nil {
		return nil, false
	}
	v, ok := d.Fields[key]
	return v, ok
}

// GetInt returns a field as an int regardless of whether it arrived as
// a Go int (set directly by a prior action) or a float64 (the shape
// encoding/json produces when the field came off the wire).
func (d PipelineData) GetInt(key string) (int, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// With возвращает копию с добавленным/перезаписанным полем.
//
// Действия обязаны рассматривать возвращаемое значение как новые
// данные, но исполнитель не гарантирует и не требует глубокого
// копирования — действия могут вернуть ту же карту.
func (d PipelineData) With(key string, value any) PipelineData {
	out := d
	fields := make(map[string]any, len(d.Fields)+1)
	for k, v := range d.Fields {
		fields[k] = v
	}
	fields[key] = value
	out.Fields = fields
	return out
}

// Dependencies — зависимости, общие для всех заданий одного воркера.
type Dependencies struct {
	Logger       *slog.Logger
	Broadcaster  StatusBroadcaster
	Services     any
	ErrorHandler ErrorHandler
	DB           any
}

// StatusBroadcaster — минимальный интерфейс, которого достаточно
// пайплайну; реализуется internal/status.Broadcaster. Объявлен здесь,
// а не импортирован как конкретный тип, чтобы completion-трекер и
// действия могли подставлять no-op реализацию в тестах без цикла
// зависимостей.
type StatusBroadcaster interface {
	Broadcast(ctx context.Context, event any) error
}

// ErrorHandler классифицирует и логирует ошибку, всплывающую из
// действия. Actions сами не обязаны его вызывать — это делает
// ErrorHandlingWrapper.
type ErrorHandler interface {
	Handle(ctx context.Context, err error, data PipelineData, actx ActionContext)
}

// Action — наименьшая составная единица работы пайплайна.
type Action interface {
	// Name — стабильный идентификатор, используемый в логах и при
	// композиции обёрток.
	Name() string

	// Execute выполняет действие и возвращает новые данные.
	Execute(ctx context.Context, data PipelineData, deps *Dependencies, actx ActionContext) (PipelineData, error)

	// Retryable — подсказка для middleware; логирующие действия явно
	// помечаются как неретраибельные.
	Retryable() bool
}

// Validator — опциональный интерфейс быстрой предварительной
// проверки, выполняемой до любых побочных эффектов.
type Validator interface {
	ValidateInput(data PipelineData) error
}

// ErrorObserver — опциональный хук, вызываемый ErrorHandlingWrapper
// перед повторным возбуждением ошибки.
type ErrorObserver interface {
	OnError(ctx context.Context, err error, data PipelineData, deps *Dependencies)
}

// Unwrappable раскрывает обёрнутое действие; реализуется middleware
// -обёртками для человекочитаемого логирования имени пайплайна.
type Unwrappable interface {
	Inner() Action
}

// DisplayName возвращает имя самого внутреннего действия обёртки,
// используемое только для логирования списка действий.
func DisplayName(a Action) string {
	for {
		u, ok := a.(Unwrappable)
		if !ok {
			return a.Name()
		}
		a = u.Inner()
	}
}
