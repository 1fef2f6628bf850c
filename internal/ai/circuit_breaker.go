package ai

import (
	"fmt"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// Breaker guards one kind of upstream call. A nil Breaker runs calls directly.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewBreaker returns nil when the breaker is disabled
func NewBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	return newBreaker[T](name, cfg, func(c gobreaker.Counts) bool {
		return c.Requests >= cfg.MinRequests &&
			float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureThreshold
	}, logger)
}

// newModelBreaker trips later than the generation breaker; model lookups
// only feed health checks.
func newModelBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	return newBreaker[T](name, cfg, func(c gobreaker.Counts) bool {
		return c.Requests >= 5 && float64(c.TotalFailures)/float64(c.Requests) >= 0.8
	}, logger)
}

func newBreaker[T any](name string, cfg config.CircuitBreakerConfig, trip func(gobreaker.Counts) bool, logger *errors.Logger) *Breaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: trip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String())
			}
		},
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn under the breaker
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats reports the breaker state for health and stats endpoints
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	counts := b.cb.Counts()
	return map[string]any{
		"enabled":  true,
		"name":     b.cb.Name(),
		"state":    b.cb.State().String(),
		"requests": counts.Requests,
		"failures": counts.TotalFailures,
	}
}

// Healthy reports whether the breaker is closed
func (b *Breaker[T]) Healthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}

func breakerName(kind, operation string) string {
	return fmt.Sprintf("AI-%s-%s", kind, operation)
}
