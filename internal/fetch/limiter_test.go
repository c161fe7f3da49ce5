package fetch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiterSpacesSequentialCalls(t *testing.T) {
	const (
		gap   = 40 * time.Millisecond
		calls = 4
	)
	l := NewLimiter(gap)

	start := time.Now()
	for i := 0; i < calls; i++ {
		if err := l.Wait(context.Background(), "forecast"); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	elapsed := time.Since(start)

	lower := time.Duration(calls-1) * gap
	if elapsed < lower {
		t.Fatalf("expected at least %v for %d calls, got %v", lower, calls, elapsed)
	}
	if elapsed > lower+500*time.Millisecond {
		t.Fatalf("calls delayed well beyond the gap bound: %v", elapsed)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(time.Second)

	start := time.Now()
	_ = l.Wait(context.Background(), "forecast")
	_ = l.Wait(context.Background(), "archive")
	if time.Since(start) > 200*time.Millisecond {
		t.Fatalf("different keys should not wait on each other")
	}
}

func TestLimiterNoBurstCredit(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(100 * time.Millisecond)
	l.now = func() time.Time { return now }

	_ = l.Wait(context.Background(), "k")
	// A long idle period does not bank extra calls: after the idle gap the
	// next call is immediate but the one after it waits a full gap again.
	now = now.Add(10 * time.Second)
	_ = l.Wait(context.Background(), "k")

	if got := l.last["k"]; !got.Equal(now) {
		t.Fatalf("expected reservation at %v, got %v", now, got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the following call to wait a full gap, got %v", err)
	}
}

func TestLimiterCancelledWaiterReleasesSlot(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(100 * time.Millisecond)
	l.now = func() time.Time { return now }

	_ = l.Wait(context.Background(), "k")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled wait, got %v", err)
	}
	if got := l.last["k"]; !got.Equal(now) {
		t.Fatalf("expected cancelled reservation rolled back to %v, got %v", now, got)
	}

	// One gap later the next caller proceeds at once instead of queuing
	// behind the abandoned slot.
	now = now.Add(100 * time.Millisecond)
	start := time.Now()
	if err := l.Wait(context.Background(), "k"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatalf("waited on a released slot")
	}
	if got := l.last["k"]; !got.Equal(now) {
		t.Fatalf("expected reservation at %v, got %v", now, got)
	}
}

func TestLimiterCancelKeepsLaterReservations(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(100 * time.Millisecond)
	l.now = func() time.Time { return now }
	_ = l.Wait(context.Background(), "k")

	// A second caller queued at +200ms behind the slot at +100ms.
	l.last["k"] = now.Add(200 * time.Millisecond)
	l.release("k", now.Add(100*time.Millisecond), now, true)

	if got, want := l.last["k"], now.Add(200*time.Millisecond); !got.Equal(want) {
		t.Fatalf("expected later reservation %v kept, got %v", want, got)
	}
}

func TestLimiterGapOverride(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(10 * time.Millisecond)
	l.SetGap("nominatim", time.Second)
	l.now = func() time.Time { return now }

	_ = l.Wait(context.Background(), "nominatim")

	// A cancelled context only succeeds once no wait is needed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	now = now.Add(10 * time.Millisecond)
	if err := l.Wait(ctx, "nominatim"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the override gap to apply, got %v", err)
	}

	now = now.Add(time.Second)
	if err := l.Wait(ctx, "nominatim"); err != nil {
		t.Fatalf("expected no wait after the override gap, got %v", err)
	}
}
