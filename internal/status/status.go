// Package status реализует вещатель событий статуса: единственную
// точку, которую наблюдают внешние подписчики (вне ядра пайплайна).
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventStatus — статус события.
type EventStatus string

const (
	StatusPending    EventStatus = "PENDING"
	StatusProcessing EventStatus = "PROCESSING"
	StatusCompleted  EventStatus = "COMPLETED"
	StatusFailed     EventStatus = "FAILED"
	StatusCancelled  EventStatus = "CANCELLED"
)

// IsTerminal reports whether the status ends the note's lifecycle.
func (s EventStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Event — форма события на проводе, потребляемая транспортами вне
// ядра (HTTP/WebSocket — явно вне области применения этого модуля).
type Event struct {
	ImportID     string         `json:"importId,omitempty"`
	NoteID       string         `json:"noteId,omitempty"`
	Status       EventStatus    `json:"status"`
	Message      string         `json:"message"`
	Context      string         `json:"context"`
	IndentLevel  int            `json:"indentLevel,omitempty"`
	CurrentCount int            `json:"currentCount,omitempty"`
	TotalCount   int            `json:"totalCount,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	StoredAt     time.Time      `json:"storedAt"`
}

// Subscriber receives a copy of every stored event.
type Subscriber func(Event)

// Broadcaster — fan-out событий подписчикам. Сами события не
// сохраняются: после рассылки Broadcaster их не хранит.
//
// Реализован как внутрипроцессный канал рассылки, а не сетевой
// транспорт: фактическая доставка наружу (HTTP/WebSocket) — забота
// вызывающего кода, а не этого пакета.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	logger      *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{logger: logger}
}

// Subscribe registers a fan-out target and returns an unsubscribe func.
func (b *Broadcaster) Subscribe(sub Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers = append(b.subscribers, sub)
	idx := len(b.subscribers) - 1

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subscribers[idx] = nil
	}
}

// AddStatusEventAndBroadcast stamps StoredAt and fans the event out to
// all subscribers, returning the stamped copy; the event is not kept
// by the broadcaster. An event without an ImportID is dropped silently — per
// spec, callers must be tolerant of that, and the broadcaster itself
// enforces it.
func (b *Broadcaster) AddStatusEventAndBroadcast(ctx context.Context, event Event) (Event, error) {
	if event.ImportID == "" {
		return event, nil
	}

	event.StoredAt = time.Now()

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub == nil {
			continue
		}
		sub(event)
	}

	return event, nil
}

// Broadcast adapts a generic payload to AddStatusEventAndBroadcast;
// satisfies pipeline.StatusBroadcaster so actions can depend on the
// narrow interface without importing this package directly.
func (b *Broadcaster) Broadcast(ctx context.Context, event any) error {
	e, ok := event.(Event)
	if !ok {
		if b.logger != nil {
			b.logger.Warn("broadcast called with unexpected event type")
		}
		return nil
	}
	_, err := b.AddStatusEventAndBroadcast(ctx, e)
	return err
}
