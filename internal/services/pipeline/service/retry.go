package service

import (
	"context"
	"math"
	"math/rand"
	"time"

	"sibyl/internal/core/sqlgen"
	perr "sibyl/internal/platform/errors"
	"sibyl/internal/platform/logger"
)

// RetryPolicy controls the retry executor around the LLM branch
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	ExpBase     float64
	Jitter      bool
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 60 * time.Second
	}
	if p.ExpBase <= 1 {
		p.ExpBase = 2
	}
	return p
}

// retryer reruns fallible generation work. Retriability is decided by
// perr.Retryable; a non-retriable failure aborts immediately
type retryer struct {
	policy RetryPolicy
	log    *logger.Logger

	// seams for tests
	after func(d time.Duration) <-chan time.Time
	rng   func() float64
}

func newRetryer(p RetryPolicy) *retryer {
	return &retryer{
		policy: p.withDefaults(),
		log:    logger.Named("retry"),
		after:  time.After,
		rng:    rand.Float64,
	}
}

// Do runs fn until it succeeds, fails non-retriably, exhausts attempts,
// or the deadline ends. Deadline expiry during a wait maps to timeout
func (r *retryer) Do(ctx context.Context, op string, fn func(ctx context.Context) (sqlgen.Artifact, error)) (sqlgen.Artifact, error) {
	var last error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return sqlgen.Artifact{}, mapCtxErr(ctx, op)
		}

		art, err := fn(ctx)
		if err == nil {
			return art, nil
		}
		last = err

		if !perr.Retryable(err) {
			return sqlgen.Artifact{}, err
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		r.log.Debug().
			Str("op", op).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("retrying after failure")

		select {
		case <-ctx.Done():
			return sqlgen.Artifact{}, mapCtxErr(ctx, op)
		case <-r.after(delay):
		}
	}
	return sqlgen.Artifact{}, last
}

// delay computes the wait before the next attempt: exponential backoff
// capped at MaxDelay, then jittered by a uniform factor in [0.5, 1.5)
func (r *retryer) delay(attempt int) time.Duration {
	d := float64(r.policy.BaseDelay) * math.Pow(r.policy.ExpBase, float64(attempt-1))
	if lim := float64(r.policy.MaxDelay); d > lim {
		d = lim
	}
	if r.policy.Jitter {
		d *= 0.5 + r.rng()
	}
	return time.Duration(d)
}

// mapCtxErr turns a finished context into the pipeline taxonomy
func mapCtxErr(ctx context.Context, op string) error {
	if ctx.Err() == context.Canceled {
		return perr.Canceledf("%s canceled", op)
	}
	return perr.Timeoutf("%s aborted by request deadline", op)
}
