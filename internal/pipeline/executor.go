package pipeline

import (
	"context"
	"fmt"
	"time"
)

// ActionMetrics is the narrow metrics sink the executor records
// per-action timings into; satisfied by internal/telemetry.Collector.
type ActionMetrics interface {
	ObserveActionDuration(action string, seconds float64)
}

// Executor прогоняет упорядоченный список действий для одного задания.
type Executor struct {
	Actions []Action
	Metrics ActionMetrics
}

// NewExecutor строит исполнитель из уже собранного (и, как правило,
// обёрнутого middleware) списка действий.
func NewExecutor(actions ...Action) *Executor {
	return &Executor{Actions: actions}
}

// WithMetrics attaches an ActionMetrics sink and returns the executor
// for chaining at construction time.
func (e *Executor) WithMetrics(m ActionMetrics) *Executor {
	e.Metrics = m
	return e
}

// Run выполняет действия по порядку, заменяя текущие данные
// результатом каждого действия.
//
// Если какое-либо действие падает с ошибкой, она пробрасывается
// вызывающему (воркеру), который эмитит событие статуса FAILED и
// оставляет повтор на усмотрение брокера. Исполнитель не копирует
// данные глубоко — действия вправе вернуть ту же ссылку.
func (e *Executor) Run(ctx context.Context, data PipelineData, deps *Dependencies, actx ActionContext) (PipelineData, error) {
	names := make([]string, len(e.Actions))
	for i, a := range e.Actions {
		names[i] = DisplayName(a)
	}
	if deps != nil && deps.Logger != nil {
		deps.Logger.Debug("running action pipeline",
			"job_id", actx.JobID,
			"queue", actx.QueueName,
			"actions", names,
		)
	}

	current := data
	for _, action := range e.Actions {
		if v, ok := action.(Validator); ok {
			if err := v.ValidateInput(current); err != nil {
				return current, fmt.Errorf("validate %s: %w", DisplayName(action), err)
			}
		}

		start := time.Now()
		if deps != nil && deps.Logger != nil {
			deps.Logger.Debug("action started",
				"job_id", actx.JobID,
				"action", DisplayName(action),
			)
		}

		result, err := action.Execute(ctx, current, deps, actx)
		elapsed := time.Since(start)

		if e.Metrics != nil {
			e.Metrics.ObserveActionDuration(DisplayName(action), elapsed.Seconds())
		}

		if err != nil {
			if deps != nil && deps.Logger != nil {
				deps.Logger.Error("action failed",
					"job_id", actx.JobID,
					"action", DisplayName(action),
					"elapsed_ms", elapsed.Milliseconds(),
					"error", err,
				)
			}
			return current, err
		}

		if deps != nil && deps.Logger != nil {
			deps.Logger.Debug("action completed",
				"job_id", actx.JobID,
				"action", DisplayName(action),
				"elapsed_ms", elapsed.Milliseconds(),
			)
		}

		current = result
	}

	return current, nil
}
