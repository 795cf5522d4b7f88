package repokit

import (
	"context"
	"strings"
	"testing"
	"time"
)

// fakeGuard records the ctx it was invoked with and returns a preset error
type fakeGuard struct {
	lastCtx context.Context
	err     error
}

func (f *fakeGuard) Guard(ctx context.Context) error {
	f.lastCtx = ctx
	return f.err
}

// assertPanicContains runs fn and asserts it panics with a message containing wantSub
func assertPanicContains(t *testing.T, name, wantSub string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("%s: expected panic, got none", name)
			return
		}
		var msg string
		switch x := r.(type) {
		case string:
			msg = x
		case error:
			msg = x.Error()
		default:
			// best effort stringify
			msg = ""
		}
		if !strings.Contains(msg, wantSub) {
			t.Fatalf("%s: panic message mismatch, got %q want contains %q", name, msg, wantSub)
		}
	}()
	fn()
}

func TestMustGuard_PanicsOnNilStore(t *testing.T) {
	t.Parallel()
	assertPanicContains(t, "MustGuard(nil)", "nil store", func() {
		MustGuard(context.Background(), nil)
	})
}

func TestMustGuard_AddsDefaultTimeoutWhenNone(t *testing.T) {
	t.Parallel()

	fg := &fakeGuard{err: nil}
	start := time.Now()

	MustGuard(context.Background(), fg) // should not panic

	if fg.lastCtx == nil {
		t.Fatalf("expected fakeGuard to receive a context")
	}
	dl, ok := fg.lastCtx.Deadline()
	if !ok {
		t.Fatalf("expected a deadline to be set by MustGuard")
	}
	if time.Until(dl) <= 0 {
		t.Fatalf("deadline already expired")
	}
	// around 5s (tolerate jitter)
	if got := dl.Sub(start); got < 4*time.Second || got > 6*time.Second {
		t.Fatalf("default deadline not ~5s: got %v", got)
	}
}

func TestMustGuard_HonorsExistingDeadline(t *testing.T) {
	t.Parallel()

	fg := &fakeGuard{err: nil}

	parent, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	MustGuard(parent, fg) // should not panic

	dlWant, okWant := parent.Deadline()
	dlGot, okGot := fg.lastCtx.Deadline()
	if !okWant || !okGot {
		t.Fatalf("both contexts should have deadlines: parent=%v child=%v", okWant, okGot)
	}
	// Child should reflect the parent's deadline (not a fresh ~5s one)
	diff := dlGot.Sub(dlWant)
	if diff < -2*time.Millisecond || diff > 2*time.Millisecond {
		t.Fatalf("child deadline should match parent: got %v want %v (diff %v)", dlGot, dlWant, diff)
	}
}

func TestMustGuard_PanicsOnGuardError(t *testing.T) {
	t.Parallel()

	fg := &fakeGuard{err: errBoom("boom")}
	assertPanicContains(t, "MustGuard(error)", "dependency guard failed: boom", func() {
		MustGuard(context.Background(), fg)
	})
}

func TestMustGuard_NoPanicOnNilError(t *testing.T) {
	t.Parallel()

	MustGuard(context.Background(), &fakeGuard{err: nil})
}

// minimal error type to avoid importing errors
type errBoom string

func (e errBoom) Error() string { return string(e) }
