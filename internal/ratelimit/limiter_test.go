package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLimiter_AllowsUpToMaxWithoutBlocking(t *testing.T) {
	l := New(3, time.Second)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("expected no blocking for calls under the limit, took %v", elapsed)
	}
	if got := l.Remaining(); got != 0 {
		t.Errorf("expected 0 remaining, got %d", got)
	}
}

func TestLimiter_BlocksWhenWindowFull(t *testing.T) {
	l := New(2, 300*time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
		t.Errorf("expected third call to wait for the window, took only %v", elapsed)
	}
}

func TestLimiter_RemainingNeverNegative(t *testing.T) {
	l := New(2, time.Second)
	if got := l.Remaining(); got != 2 {
		t.Fatalf("expected 2 remaining on a fresh limiter, got %d", got)
	}
	for i := 0; i < 2; i++ {
		l.Wait(context.Background())
		if got := l.Remaining(); got < 0 {
			t.Fatalf("remaining went negative: %d", got)
		}
	}
	if got := l.Remaining(); got != 0 {
		t.Errorf("expected 0 remaining, got %d", got)
	}
}

func TestLimiter_RemainingDoesNotRecord(t *testing.T) {
	l := New(1, time.Second)
	for i := 0; i < 5; i++ {
		l.Remaining()
	}
	if got := l.Remaining(); got != 1 {
		t.Errorf("expected Remaining to be side-effect free, got %d", got)
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := New(1, 50*time.Millisecond)
	l.Wait(context.Background())
	time.Sleep(80 * time.Millisecond)
	if got := l.Remaining(); got != 1 {
		t.Errorf("expected expired call to leave the window, remaining=%d", got)
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(2, time.Minute)
	l.Wait(context.Background())
	l.Wait(context.Background())
	l.Reset()
	if got := l.Remaining(); got != 2 {
		t.Errorf("expected 2 remaining after reset, got %d", got)
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := New(1, time.Minute)
	l.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	// The cancelled wait must not have consumed a slot.
	l.Reset()
	if got := l.Remaining(); got != 1 {
		t.Errorf("expected 1 remaining, got %d", got)
	}
}

func TestLimiter_ConcurrentCallersRespectWindow(t *testing.T) {
	l := New(3, 200*time.Millisecond)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var stamps []time.Time

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Wait(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(stamps) != 6 {
		t.Fatalf("expected 6 calls, got %d", len(stamps))
	}
	first, last := stamps[0], stamps[0]
	for _, s := range stamps {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	if last.Sub(first) < 150*time.Millisecond {
		t.Errorf("expected 6 calls with max 3 per window to span a window, spanned %v", last.Sub(first))
	}
}

func TestNew_Defaults(t *testing.T) {
	l := New(0, 0)
	n, p := l.Limit()
	if n != DefaultMaxCalls || p != DefaultPeriod {
		t.Errorf("expected defaults %d/%v, got %d/%v", DefaultMaxCalls, DefaultPeriod, n, p)
	}
}
