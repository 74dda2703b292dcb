package storage

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
)

// CodeStorageUnavailable is returned while the breaker is open
const CodeStorageUnavailable = "STORAGE_UNAVAILABLE"

// BreakerConfig tunes the circuit breaker around object storage calls
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32        // trial requests allowed while half-open
	Interval            time.Duration // closed-state counter reset, 0 never resets
	Timeout             time.Duration // open to half-open delay
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns the settings used for the document bucket
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "object-storage",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// breaker fails fast once storage keeps erroring
type breaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func newBreaker(cfg BreakerConfig, logger *zap.Logger) *breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &breaker{cb: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

func (b *breaker) run(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		e := shared.NewDomainError(CodeStorageUnavailable, "Document storage is temporarily unavailable")
		e.Retryable = true
		return nil, e
	}
	return result, err
}

func (b *breaker) state() gobreaker.State {
	return b.cb.State()
}
