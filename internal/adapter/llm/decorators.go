package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"medrag/internal/domain"
	"medrag/internal/port"
)

// Timeout bounds every Generate call. Expiry of its own deadline is reported
// as domain.ErrOracleTimeout; cancellation of the caller's context is passed
// through unchanged.
type Timeout struct {
	next    port.LLM
	timeout time.Duration
}

func WithTimeout(next port.LLM, timeout time.Duration) port.LLM {
	if timeout <= 0 {
		return next
	}
	return &Timeout{next: next, timeout: timeout}
}

func (t *Timeout) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.next.Generate(callCtx, prompt)
	if err == nil {
		return out, nil
	}
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s: %v", domain.ErrOracleTimeout, t.timeout, err)
	}
	return "", err
}

func (t *Timeout) ModelName() string {
	return t.next.ModelName()
}

// RateLimited waits on a token bucket before every call.
type RateLimited struct {
	next    port.LLM
	limiter *rate.Limiter
}

// WithRateLimit allows rps calls per second with the given burst. rps <= 0
// disables limiting.
func WithRateLimit(next port.LLM, rps float64, burst int) port.LLM {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Generate(ctx, prompt)
}

func (r *RateLimited) ModelName() string {
	return r.next.ModelName()
}
