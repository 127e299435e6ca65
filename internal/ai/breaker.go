package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// breakerAnswerer fails fast once the wrapped Answerer has failed too many
// times in a row.
type breakerAnswerer struct {
	next Answerer
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a circuit breaker that opens after failures
// consecutive errors and lets a request through again after cooldown. A
// non-positive failures value returns next unchanged.
func WithBreaker(next Answerer, failures int, cooldown time.Duration, logger *slog.Logger) Answerer {
	if failures <= 0 {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "answering-service",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			// Cancellation by the caller says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &breakerAnswerer{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerAnswerer) Ask(ctx context.Context, prompt string) (string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Ask(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &ProviderError{
			Provider: "breaker",
			Err:      fmt.Errorf("answering service unavailable: %w", err),
		}
	}
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
