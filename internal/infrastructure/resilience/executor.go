// Package resilience wraps calls to external sinks (result database, event
// broker) with bounded retries and a per-operation circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Execute runs fn under the retry policy and, when enabled, the breaker
// registered for operation. A nil classifier treats every error as permanent.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify ErrorClassifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil callback for %q", operation)
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	if classify == nil {
		classify = Permanent
	}

	if !e.cfg.BreakerEnabled {
		return e.retry(ctx, operation, fn, classify)
	}
	_, err := e.breaker(operation, classify).Execute(func() (struct{}, error) {
		return struct{}{}, e.retry(ctx, operation, fn, classify)
	})
	return err
}

func (e *Executor) retry(ctx context.Context, operation string, fn func(context.Context) error, classify ErrorClassifier) error {
	wait := e.cfg.RetryInitialBackoff
	var err error
	for attempt := 1; attempt <= e.cfg.RetryMaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !classify(err).Retryable || attempt == e.cfg.RetryMaxAttempts {
			return err
		}

		slog.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		wait = min(time.Duration(float64(wait)*e.cfg.RetryMultiplier), e.cfg.RetryMaxBackoff)
	}
	return err
}

func (e *Executor) breaker(operation string, classify ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = cb
	return cb
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Permanent never retries and always counts against the breaker.
func Permanent(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

// Transient retries network timeouts and open circuits. Context errors are
// neither retried nor recorded.
func Transient(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return Permanent(err)
}
