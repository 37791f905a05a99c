package remote

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy bounds every outbound call with a per-attempt timeout and retries
// transient failures with exponential backoff.
type Policy struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultPolicy allows 60s per attempt and three retries starting at 500ms.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
	}
}

// Do runs fn until it succeeds, fails permanently, or the retry budget is spent.
// Each attempt gets its own deadline derived from ctx.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithMaxRetries(uint64(maxRetries), b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		callCtx, cancel := p.attemptContext(ctx)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && Retryable(err) {
			slog.Debug("remote call failed, retrying", "op", op, "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (p Policy) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.Timeout)
}

// Retryable reports whether err is transient: rate limiting, server errors,
// per-attempt timeouts and network failures. Other 4xx responses are permanent.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
