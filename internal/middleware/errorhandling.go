package middleware

import (
	"context"
	"fmt"

	"github.com/shaiso/notepipe/internal/pipeline"
)

// ErrorHandlingWrapper выполняет внутреннее действие под учётом
// контекста ошибки: при сбое вызывает ErrorObserver внутреннего
// действия (если реализован) и пробрасывает ошибку, обогащённую
// названием операции и noteId.
type ErrorHandlingWrapper struct {
	inner pipeline.Action
}

// NewErrorHandlingWrapper оборачивает action обработкой ошибок.
func NewErrorHandlingWrapper(action pipeline.Action) *ErrorHandlingWrapper {
	return &ErrorHandlingWrapper{inner: action}
}

func (w *ErrorHandlingWrapper) Name() string {
	return "error_handling_wrapper(" + w.inner.Name() + ")"
}

func (w *ErrorHandlingWrapper) Inner() pipeline.Action { return w.inner }

func (w *ErrorHandlingWrapper) Retryable() bool { return w.inner.Retryable() }

func (w *ErrorHandlingWrapper) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	result, err := w.inner.Execute(ctx, data, deps, actx)
	if err == nil {
		return result, nil
	}

	op := fmt.Sprintf("%s (%s)", actx.Operation, w.inner.Name())

	if observer, ok := w.inner.(pipeline.ErrorObserver); ok {
		observer.OnError(ctx, err, data, deps)
	}

	if deps != nil && deps.ErrorHandler != nil {
		stampedCtx := actx
		stampedCtx.Operation = op
		deps.ErrorHandler.Handle(ctx, err, data, stampedCtx)
	}

	return result, fmt.Errorf("%s: %w", op, err)
}
