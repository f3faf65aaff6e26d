package geo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/ratelimit"
)

// RateLimited wraps a Reverser so that requests are spaced at least
// MinDelay apart and timeouts are retried a bounded number of times.
type RateLimited struct {
	next      Reverser
	limiter   ratelimit.Limiter
	retries   int
	errorWait time.Duration
	log       *slog.Logger
}

// LimitOption configures a RateLimited reverser.
type LimitOption func(*limitOptions)

type limitOptions struct {
	clock     ratelimit.Clock
	retries   int
	errorWait time.Duration
	logger    *slog.Logger
}

// WithClock replaces the limiter clock.
func WithClock(c ratelimit.Clock) LimitOption {
	return func(o *limitOptions) { o.clock = c }
}

// WithRetries sets how many times a timed out request is repeated and how
// long to wait before each repeat.
func WithRetries(n int, wait time.Duration) LimitOption {
	return func(o *limitOptions) {
		o.retries = n
		o.errorWait = wait
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LimitOption {
	return func(o *limitOptions) { o.logger = l }
}

// NewRateLimited wraps next. A minDelay of zero disables spacing.
func NewRateLimited(next Reverser, minDelay time.Duration, opts ...LimitOption) *RateLimited {
	o := limitOptions{retries: 1, errorWait: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var limiter ratelimit.Limiter
	if minDelay <= 0 {
		limiter = ratelimit.NewUnlimited()
	} else {
		lopts := []ratelimit.Option{ratelimit.Per(minDelay), ratelimit.WithoutSlack}
		if o.clock != nil {
			lopts = append(lopts, ratelimit.WithClock(o.clock))
		}
		limiter = ratelimit.New(1, lopts...)
	}

	return &RateLimited{
		next:      next,
		limiter:   limiter,
		retries:   o.retries,
		errorWait: o.errorWait,
		log:       o.logger,
	}
}

// Reverse waits for the limiter before every attempt. Only ErrTimeout is
// retried; once retries are exhausted the last timeout is returned.
func (r *RateLimited) Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	op := func() (json.RawMessage, error) {
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}
		r.limiter.Take()
		payload, err := r.next.Reverse(ctx, lat, lon)
		if err != nil && !errors.Is(err, ErrTimeout) {
			return nil, backoff.Permanent(err)
		}
		return payload, err
	}

	var policy backoff.BackOff = backoff.NewConstantBackOff(r.errorWait)
	policy = backoff.WithMaxRetries(policy, uint64(max(r.retries, 0)))
	policy = backoff.WithContext(policy, ctx)

	notify := func(err error, wait time.Duration) {
		r.log.Warn("reverse geocode timed out, retrying", "lat", lat, "lon", lon, "wait", wait, "error", err)
	}
	return backoff.RetryNotifyWithData(op, policy, notify)
}
