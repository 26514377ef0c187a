package middleware

import "github.com/shaiso/notepipe/internal/pipeline"

// Wrap composes the standard middleware stack around action:
// ErrorHandlingWrapper(CircuitBreaker(RetryWrapper(action))). Only
// retryable actions get the retry layer; every action gets a breaker
// and error observation.
func Wrap(action pipeline.Action, breakers *Registry) pipeline.Action {
	wrapped := action
	if action.Retryable() {
		wrapped = NewRetryWrapper(wrapped, DefaultRetryConfig())
	}
	wrapped = NewCircuitBreaker(wrapped, DefaultCircuitBreakerConfig(), breakers)
	wrapped = NewErrorHandlingWrapper(wrapped)
	return wrapped
}
