package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var fastPolicy = Policy{Attempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func TestIsTransient(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":              {nil, false},
		"deadline":         {context.DeadlineExceeded, true},
		"wrapped deadline": {fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		"timeout":          {timeoutError{}, true},
		"wrapped timeout":  {fmt.Errorf("dial: %w", timeoutError{}), true},
		"canceled":         {context.Canceled, false},
		"plain error":      {errors.New("constraint violation"), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	var notified []int
	calls, err := fastPolicy.Do(context.Background(), nil, func(err error, attempt int) {
		notified = append(notified, attempt)
	}, func() error {
		if len(notified) < 1 {
			return timeoutError{}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(notified) != 1 || notified[0] != 1 {
		t.Fatalf("unexpected notifications %v", notified)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad input")
	calls, err := fastPolicy.Do(context.Background(), nil, nil, func() error { return permanent })

	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestDoGivesUpAfterAttempts(t *testing.T) {
	calls, err := fastPolicy.Do(context.Background(), nil, nil, func() error { return timeoutError{} })

	if !errors.Is(err, timeoutError{}) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != fastPolicy.Attempts {
		t.Fatalf("expected %d calls, got %d", fastPolicy.Attempts, calls)
	}
}

func TestDoHonoursCustomRetryable(t *testing.T) {
	busy := errors.New("busy")
	calls, err := fastPolicy.Do(context.Background(), func(err error) bool { return errors.Is(err, busy) }, nil,
		func() error { return busy })

	if !errors.Is(err, busy) || calls != fastPolicy.Attempts {
		t.Fatalf("expected %d calls ending in busy, got %d (%v)", fastPolicy.Attempts, calls, err)
	}
}

func TestDoStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := Policy{Attempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	calls, err := slow.Do(ctx, nil, func(error, int) { cancel() }, func() error { return timeoutError{} })

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestSingleAttemptPolicy(t *testing.T) {
	calls, err := Policy{Attempts: 1}.Do(context.Background(), nil, nil, func() error { return timeoutError{} })
	if err == nil || calls != 1 {
		t.Fatalf("expected one failing call, got %d (%v)", calls, err)
	}
}
