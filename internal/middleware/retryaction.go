package middleware

import (
	"context"

	"github.com/shaiso/notepipe/internal/pipeline"
)

// retryCountField — ключ в PipelineData.Fields, под которым живёт
// счётчик попыток, управляемый RetryAction.
const retryCountField = "retryCount"

// RetryAction — отдельное от RetryWrapper действие: вместо
// внутрипроцессного цикла оно продвигает счётчик попыток внутри
// данных задания, для воркеров, моделирующих повтор через
// самостоятельный re-enqueue, а не внутрипроцессный цикл.
type RetryAction struct {
	maxAttempts int
}

// NewRetryAction создаёт действие, допускающее до maxAttempts
// повторных постановок задания в очередь.
func NewRetryAction(maxAttempts int) *RetryAction {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetryConfig().MaxAttempts
	}
	return &RetryAction{maxAttempts: maxAttempts}
}

func (a *RetryAction) Name() string { return "retry_action" }

func (a *RetryAction) Retryable() bool { return false }

func (a *RetryAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	count, _ := data.GetInt(retryCountField)

	count++
	out := data.With(retryCountField, count)
	out = out.With("retryExhausted", count > a.maxAttempts)

	return out, nil
}
