package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDo_ExhaustsAttemptsAndReturnsOriginalError(t *testing.T) {
	orig := &TransientError{StatusCode: 503, Message: "unavailable"}
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return orig
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if err != orig {
		t.Errorf("expected the original error back unchanged, got %v", err)
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	for k := 0; k < 3; k++ {
		calls := 0
		v, err := Value(context.Background(), fastPolicy(), func(context.Context) (string, error) {
			calls++
			if calls <= k {
				return "", &TransientError{StatusCode: 500}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if v != "ok" {
			t.Errorf("k=%d: expected %q, got %q", k, "ok", v)
		}
		if calls != k+1 {
			t.Errorf("k=%d: expected %d calls, got %d", k, k+1, calls)
		}
	}
}

func TestDo_NonTransientNotRetried(t *testing.T) {
	perm := errors.New("bad request")
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return perm
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, perm) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestDo_CustomClassifier(t *testing.T) {
	p := fastPolicy()
	p.Retryable = func(error) bool { return true }
	calls := 0
	p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("anything")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_OnRetryCalledBetweenAttempts(t *testing.T) {
	p := fastPolicy()
	var seen []int
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}
	p.Do(context.Background(), func(context.Context) error {
		return &TransientError{StatusCode: 429}
	})
	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Errorf("expected retries [0 1], got %v", seen)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	orig := &TransientError{StatusCode: 502}
	calls := 0
	start := time.Now()
	err := p.Do(ctx, func(context.Context) error {
		calls++
		return orig
	})
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("expected cancellation to cut the backoff short")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if err != orig {
		t.Errorf("expected last error, got %v", err)
	}
}

func TestBackoff_Schedule(t *testing.T) {
	p := DocumentPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 4 * time.Second},
		{1, 8 * time.Second},
		{2, 16 * time.Second},
		{3, 32 * time.Second},
		{4, 60 * time.Second},
		{10, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}

	m := MediaPolicy()
	if got := m.Backoff(0); got != 2*time.Second {
		t.Errorf("expected media base 2s, got %v", got)
	}
	if got := m.Backoff(5); got != 10*time.Second {
		t.Errorf("expected media cap 10s, got %v", got)
	}
}

func TestIsTransient(t *testing.T) {
	te := &TransientError{StatusCode: 500}
	wrapped := errors.Join(errors.New("context"), te)
	if !IsTransient(te) || !IsTransient(wrapped) {
		t.Error("expected transient errors to be detected through wrapping")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("expected plain error to be non-transient")
	}
	inner := errors.New("connection reset")
	if !errors.Is(&TransientError{Err: inner}, inner) {
		t.Error("expected TransientError to unwrap to its cause")
	}
}
