package service

import (
	"context"
	"testing"
	"time"

	"sibyl/internal/core/sqlgen"
	perr "sibyl/internal/platform/errors"
)

// instantRetryer fires waits immediately and records requested delays
func instantRetryer(p RetryPolicy) (*retryer, *[]time.Duration) {
	r := newRetryer(p)
	delays := &[]time.Duration{}
	r.after = func(d time.Duration) <-chan time.Time {
		*delays = append(*delays, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	return r, delays
}

func TestRetry_SucceedsAfterRetriableFailures(t *testing.T) {
	t.Parallel()

	r, delays := instantRetryer(RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, ExpBase: 2})

	calls := 0
	art, err := r.Do(context.Background(), "llm generation", func(context.Context) (sqlgen.Artifact, error) {
		calls++
		if calls < 3 {
			return sqlgen.Artifact{}, perr.TransientNetworkf("connection reset")
		}
		return sqlgen.Artifact{SQL: "SELECT 1", Parameters: map[string]any{}}, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if art.SQL != "SELECT 1" {
		t.Fatalf("artifact SQL = %q", art.SQL)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Fatalf("delay[%d] = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestRetry_NonRetriableAbortsImmediately(t *testing.T) {
	t.Parallel()

	r, delays := instantRetryer(RetryPolicy{MaxAttempts: 5})

	calls := 0
	_, err := r.Do(context.Background(), "llm generation", func(context.Context) (sqlgen.Artifact, error) {
		calls++
		return sqlgen.Artifact{}, perr.Securityf("nope")
	})
	if !perr.IsCode(err, perr.ErrorCodeSecurity) {
		t.Fatalf("err = %v, want security", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if len(*delays) != 0 {
		t.Fatalf("unexpected waits: %v", *delays)
	}
}

func TestRetry_ExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()

	r, _ := instantRetryer(RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})

	calls := 0
	_, err := r.Do(context.Background(), "llm generation", func(context.Context) (sqlgen.Artifact, error) {
		calls++
		return sqlgen.Artifact{}, perr.LLMTimeoutf("attempt %d timed out", calls)
	})
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if !perr.IsCode(err, perr.ErrorCodeLLMTimeout) {
		t.Fatalf("err = %v, want llm_timeout", err)
	}
}

func TestRetry_DelayBackoffCapAndJitter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		policy  RetryPolicy
		rng     float64
		attempt int
		want    time.Duration
	}{
		{"first", RetryPolicy{BaseDelay: time.Second, ExpBase: 2, MaxDelay: time.Minute}, 0, 1, time.Second},
		{"second doubles", RetryPolicy{BaseDelay: time.Second, ExpBase: 2, MaxDelay: time.Minute}, 0, 2, 2 * time.Second},
		{"capped", RetryPolicy{BaseDelay: time.Second, ExpBase: 2, MaxDelay: 3 * time.Second}, 0, 3, 3 * time.Second},
		{"jitter low", RetryPolicy{BaseDelay: time.Second, ExpBase: 2, MaxDelay: time.Minute, Jitter: true}, 0, 1, 500 * time.Millisecond},
		{"jitter mid", RetryPolicy{BaseDelay: time.Second, ExpBase: 2, MaxDelay: time.Minute, Jitter: true}, 0.5, 1, time.Second},
		{"jitter applies after cap", RetryPolicy{BaseDelay: time.Second, ExpBase: 2, MaxDelay: 2 * time.Second, Jitter: true}, 0.5, 4, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRetryer(tt.policy)
			r.rng = func() float64 { return tt.rng }
			if got := r.delay(tt.attempt); got != tt.want {
				t.Fatalf("delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_CancelDuringWaitMapsToCanceled(t *testing.T) {
	t.Parallel()

	r := newRetryer(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour})
	r.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := r.Do(ctx, "llm generation", func(context.Context) (sqlgen.Artifact, error) {
		calls++
		cancel()
		return sqlgen.Artifact{}, perr.TransientNetworkf("flaky")
	})
	if !perr.IsCode(err, perr.ErrorCodeCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetry_ExpiredDeadlineSkipsAttempt(t *testing.T) {
	t.Parallel()

	r, _ := instantRetryer(RetryPolicy{MaxAttempts: 3})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	calls := 0
	_, err := r.Do(ctx, "llm generation", func(context.Context) (sqlgen.Artifact, error) {
		calls++
		return sqlgen.Artifact{}, nil
	})
	if !perr.IsCode(err, perr.ErrorCodeTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}
