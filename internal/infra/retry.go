package infra

import (
	"context"
	"errors"
	"time"
)

// RetryConfig holds configuration for retry and backoff logic
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the configuration used for platform calls that
// are safe to repeat, such as registering a webhook or polling for updates.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// WithRetry executes a function with exponential backoff retry logic
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	backoff := NewBackoff(cfg)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if err := Sleep(ctx, backoff.Next()); err != nil {
			return err
		}
	}

	return lastErr
}

// Backoff yields exponentially growing delays for a loop that keeps running
// after failures. Reset it after a success.
type Backoff struct {
	cfg  RetryConfig
	next time.Duration
}

func NewBackoff(cfg RetryConfig) *Backoff {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &Backoff{cfg: cfg, next: cfg.InitialDelay}
}

func (b *Backoff) Next() time.Duration {
	delay := b.next
	b.next = time.Duration(float64(b.next) * b.cfg.Multiplier)
	if b.cfg.MaxDelay > 0 && b.next > b.cfg.MaxDelay {
		b.next = b.cfg.MaxDelay
	}
	return delay
}

func (b *Backoff) Reset() {
	b.next = b.cfg.InitialDelay
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
