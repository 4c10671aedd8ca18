package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider retries transport failures (rate limits, outages, network
// errors) with exponential backoff and jitter. Invalid output is returned
// at once: the orchestrator re-prompts with a corrective hint and charges
// the attempt to the topic, which a blind resend here would hide.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	attempts := max(1, r.config.MaxAttempts)

	var err error
	for attempt := range attempts {
		var resp *Response
		resp, err = r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !transient(err) || attempt == attempts-1 {
			break
		}

		wait := r.backoff(attempt, err)
		retriesTotal.WithLabelValues(r.inner.ModelID(), errorClass(err)).Inc()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, err
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// transient reports whether resending the same request may succeed.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var inv *ErrInvalidResponse
	return !Fatal(err) && !errors.As(err, &inv)
}

func errorClass(err error) string {
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return "rate_limit"
	}
	return "unavailable"
}

// backoff computes the wait before the next attempt. A provider-supplied
// RetryAfter wins over the schedule.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	wait = min(wait, float64(r.config.MaxWait))
	wait += wait * 0.2 * (2*rand.Float64() - 1) // ±20%
	return time.Duration(max(wait, 0))
}
