package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/shaiso/notepipe/internal/pipeline"
	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig — параметры предохранителя.
type CircuitBreakerConfig struct {
	FailureThreshold uint32
	ResetTimeout     time.Duration
	// BreakerKey переопределяет ключ состояния; по умолчанию — имя
	// внутреннего действия.
	BreakerKey string
}

// DefaultCircuitBreakerConfig — значения по умолчанию.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     60000 * time.Millisecond,
	}
}

// Registry — общепроцессное, ключевое состояние предохранителей.
// Записи создаются лениво и никогда не удаляются, поскольку их число
// ограничено числом имён операций.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewRegistry создаёт пустой реестр предохранителей.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (r *Registry) get(key string, cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[key]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    key,
		Timeout: cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	})
	r.breakers[key] = cb
	return cb
}

// Reset clears all breaker state; used by tests that need a fresh
// runtime without reconstructing the whole process wiring.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*gobreaker.CircuitBreaker)
}

// CircuitBreaker — обёртка, отклоняющая вызовы внутреннего действия,
// пока предохранитель разомкнут.
type CircuitBreaker struct {
	inner    pipeline.Action
	config   CircuitBreakerConfig
	registry *Registry
}

// NewCircuitBreaker оборачивает action предохранителем, хранящим своё
// состояние в registry под ключом BreakerKey (или именем action, если
// ключ не задан).
func NewCircuitBreaker(action pipeline.Action, cfg CircuitBreakerConfig, registry *Registry) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultCircuitBreakerConfig().FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultCircuitBreakerConfig().ResetTimeout
	}
	if cfg.BreakerKey == "" {
		cfg.BreakerKey = action.Name()
	}
	return &CircuitBreaker{inner: action, config: cfg, registry: registry}
}

func (c *CircuitBreaker) Name() string {
	return "circuit_breaker(" + c.inner.Name() + ")"
}

func (c *CircuitBreaker) Inner() pipeline.Action { return c.inner }

func (c *CircuitBreaker) Retryable() bool { return c.inner.Retryable() }

func (c *CircuitBreaker) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	cb := c.registry.get(c.config.BreakerKey, c.config)

	result, err := cb.Execute(func() (any, error) {
		return c.inner.Execute(ctx, data, deps, actx)
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return data, &pipeline.CircuitOpenError{Key: c.config.BreakerKey}
		}
		if out, ok := result.(pipeline.PipelineData); ok {
			return out, err
		}
		return data, err
	}

	out, _ := result.(pipeline.PipelineData)
	return out, nil
}
