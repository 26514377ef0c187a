// Package middleware реализует обёртки над pipeline.Action:
// ErrorHandlingWrapper, RetryWrapper, CircuitBreaker и отдельное
// RetryAction. Каждая обёртка сама является pipeline.Action и
// сохраняет контракт внутреннего действия.
package middleware

import (
	"context"
	"math/rand"
	"time"

	"github.com/shaiso/notepipe/internal/pipeline"
)

// RetryConfig — параметры экспоненциального backoff с джиттером.
type RetryConfig struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryConfig — значения по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BaseDelay:         1000 * time.Millisecond,
		MaxDelay:          30000 * time.Millisecond,
		BackoffMultiplier: 2,
		Jitter:            true,
	}
}

// RetryWrapper повторяет вызов внутреннего действия до
// MaxAttempts+1 раз с экспоненциальной задержкой между попытками.
type RetryWrapper struct {
	inner  pipeline.Action
	config RetryConfig
	sleep  func(time.Duration)
}

// NewRetryWrapper оборачивает action конфигурацией повторов.
func NewRetryWrapper(action pipeline.Action, cfg RetryConfig) *RetryWrapper {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = DefaultRetryConfig().BackoffMultiplier
	}
	return &RetryWrapper{inner: action, config: cfg, sleep: time.Sleep}
}

func (w *RetryWrapper) Name() string {
	return "retry_wrapper(" + w.inner.Name() + ")"
}

func (w *RetryWrapper) Inner() pipeline.Action { return w.inner }

func (w *RetryWrapper) Retryable() bool { return w.inner.Retryable() }

// Execute вызывает внутреннее действие; первая попытка — attempt 0,
// задержка применяется перед попытками с номером ≥ 1.
func (w *RetryWrapper) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	var lastErr error
	var lastData pipeline.PipelineData

	for attempt := 0; attempt <= w.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			w.sleep(w.delayFor(attempt - 1))
		}

		attemptCtx := actx
		attemptCtx.AttemptNumber = attempt
		attemptCtx.RetryCount = attempt

		result, err := w.inner.Execute(ctx, data, deps, attemptCtx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		lastData = result

		if !w.inner.Retryable() {
			return lastData, lastErr
		}
	}

	return lastData, lastErr
}

// delayFor returns the backoff delay to apply before the given
// zero-indexed attempt (0 meaning the delay before attempt 1).
func (w *RetryWrapper) delayFor(attempt int) time.Duration {
	delay := float64(w.config.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= w.config.BackoffMultiplier
	}

	capped := delay
	if capped > float64(w.config.MaxDelay) {
		capped = float64(w.config.MaxDelay)
	}

	if w.config.Jitter {
		capped += capped * 0.1 * rand.Float64()
	}

	return time.Duration(capped)
}
