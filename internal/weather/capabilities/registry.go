// Package capabilities holds the canonical variable catalog and keeps it fresh.
package capabilities

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-planner/internal/weather"
)

// DefaultTTL is how long a refreshed catalog is considered fresh.
const DefaultTTL = 24 * time.Hour

// Prober checks that the upstream provider is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// Registry serves catalog snapshots. A stale or cold snapshot triggers an
// upstream probe; when the probe fails the previous snapshot is returned
// marked degraded. Concurrent stale callers share one probe.
type Registry struct {
	prober Prober
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	current weather.Capabilities

	group singleflight.Group
}

// NewRegistry creates a registry seeded with the built-in catalog. The seed
// has a zero refresh time, so the first Describe probes upstream.
func NewRegistry(prober Prober, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		prober: prober,
		ttl:    ttl,
		now:    time.Now,
		current: weather.Capabilities{
			Provider:  ProviderOpenMeteo,
			Variables: Catalog(),
		},
	}
}

// Describe returns the current snapshot, refreshing it first when stale.
func (r *Registry) Describe(ctx context.Context) weather.CapabilitySnapshot {
	r.mu.RLock()
	caps := r.current
	r.mu.RUnlock()

	if !caps.RefreshedAt.IsZero() && r.now().Sub(caps.RefreshedAt) < r.ttl {
		return weather.CapabilitySnapshot{Capabilities: caps, Status: weather.SnapshotCached}
	}
	return r.Refresh(ctx)
}

// Capabilities is Describe without the status.
func (r *Registry) Capabilities(ctx context.Context) weather.Capabilities {
	return r.Describe(ctx).Capabilities
}

// Refresh probes upstream regardless of freshness.
func (r *Registry) Refresh(ctx context.Context) weather.CapabilitySnapshot {
	v, _, _ := r.group.Do("refresh", func() (interface{}, error) {
		return r.refresh(ctx), nil
	})
	return v.(weather.CapabilitySnapshot)
}

func (r *Registry) refresh(ctx context.Context) weather.CapabilitySnapshot {
	r.mu.RLock()
	prior := r.current
	r.mu.RUnlock()

	if r.prober == nil {
		return weather.CapabilitySnapshot{Capabilities: prior, Status: weather.SnapshotDegraded}
	}
	if err := r.prober.Probe(ctx); err != nil {
		return weather.CapabilitySnapshot{Capabilities: prior, Status: weather.SnapshotDegraded, Err: err}
	}

	fresh := weather.Capabilities{
		Provider:    prior.Provider,
		RefreshedAt: r.now().UTC(),
		Variables:   Catalog(),
	}

	r.mu.Lock()
	r.current = fresh
	r.mu.Unlock()

	return weather.CapabilitySnapshot{Capabilities: fresh, Status: weather.SnapshotFresh}
}
