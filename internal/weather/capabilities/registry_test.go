package capabilities

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-planner/internal/weather"
)

type stubProber struct {
	calls int32
	err   error
	delay time.Duration
}

func (p *stubProber) Probe(ctx context.Context) error {
	atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.err
}

func TestDescribeRefreshesColdThenCaches(t *testing.T) {
	prober := &stubProber{}
	r := NewRegistry(prober, time.Hour)
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	snap := r.Describe(context.Background())
	if snap.Status != weather.SnapshotFresh {
		t.Fatalf("expected fresh snapshot, got %s", snap.Status)
	}
	if !snap.Capabilities.RefreshedAt.Equal(now) {
		t.Fatalf("expected refresh time %v, got %v", now, snap.Capabilities.RefreshedAt)
	}

	now = now.Add(30 * time.Minute)
	snap = r.Describe(context.Background())
	if snap.Status != weather.SnapshotCached {
		t.Fatalf("expected cached snapshot, got %s", snap.Status)
	}
	if got := atomic.LoadInt32(&prober.calls); got != 1 {
		t.Fatalf("expected one probe, got %d", got)
	}

	now = now.Add(time.Hour)
	snap = r.Describe(context.Background())
	if snap.Status != weather.SnapshotFresh || atomic.LoadInt32(&prober.calls) != 2 {
		t.Fatalf("expected stale snapshot to refresh, status=%s calls=%d", snap.Status, prober.calls)
	}
}

func TestDescribeDegradesOnProbeFailure(t *testing.T) {
	prober := &stubProber{}
	r := NewRegistry(prober, time.Hour)
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	first := r.Describe(context.Background())

	prober.err = &weather.UpstreamFetchError{StatusCode: 500, URL: "http://upstream"}
	now = now.Add(2 * time.Hour)
	snap := r.Describe(context.Background())

	if snap.Status != weather.SnapshotDegraded {
		t.Fatalf("expected degraded snapshot, got %s", snap.Status)
	}
	var upErr *weather.UpstreamFetchError
	if !errors.As(snap.Err, &upErr) {
		t.Fatalf("expected probe error to be attached, got %v", snap.Err)
	}
	if !snap.Capabilities.RefreshedAt.Equal(first.Capabilities.RefreshedAt) {
		t.Fatalf("degraded snapshot must keep the prior timestamp")
	}
	if len(snap.Capabilities.Variables) != len(first.Capabilities.Variables) {
		t.Fatalf("degraded snapshot must keep the prior catalog")
	}
}

func TestDescribeColdFailureReturnsSeed(t *testing.T) {
	r := NewRegistry(&stubProber{err: errors.New("dial tcp: connection refused")}, time.Hour)

	snap := r.Describe(context.Background())
	if snap.Status != weather.SnapshotDegraded {
		t.Fatalf("expected degraded snapshot, got %s", snap.Status)
	}
	if !snap.Capabilities.RefreshedAt.IsZero() {
		t.Fatalf("seed snapshot should have no refresh time")
	}
	if _, ok := snap.Capabilities.Lookup("temperature_2m"); !ok {
		t.Fatalf("seed catalog should contain temperature_2m")
	}
}

func TestConcurrentStaleCallersShareOneProbe(t *testing.T) {
	prober := &stubProber{delay: 50 * time.Millisecond}
	r := NewRegistry(prober, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Describe(context.Background())
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&prober.calls); got > 2 {
		t.Fatalf("expected concurrent refreshes to collapse, got %d probes", got)
	}
}

func TestCatalogIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, v := range Catalog() {
		if v.ID == "" || seen[v.ID] {
			t.Fatalf("duplicate or empty id %q", v.ID)
		}
		seen[v.ID] = true
		if len(v.Modes) == 0 {
			t.Fatalf("variable %s has no modes", v.ID)
		}
	}
}
