package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-planner/internal/weather/providers"
)

// HourlyFetcher fetches one hourly series.
type HourlyFetcher interface {
	Hourly(ctx context.Context, q providers.HourlyQuery) (*providers.HourlySeries, error)
}

// BatchFetcher runs a region's per-coordinate queries. Results are aligned
// with queries. The first failure aborts the batch and is returned.
type BatchFetcher interface {
	FetchAll(ctx context.Context, f HourlyFetcher, queries []providers.HourlyQuery) ([]*providers.HourlySeries, error)
}

// SequentialFetcher issues queries one after another and stops at the first
// failure.
type SequentialFetcher struct{}

func (SequentialFetcher) FetchAll(ctx context.Context, f HourlyFetcher, queries []providers.HourlyQuery) ([]*providers.HourlySeries, error) {
	out := make([]*providers.HourlySeries, len(queries))
	for i, q := range queries {
		s, err := f.Hourly(ctx, q)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// PooledFetcher runs up to Workers queries at once. All workers share the
// fetch client's limiter, so upstream spacing is unchanged; the pool only
// overlaps the waiting. A failure cancels the remaining queries.
type PooledFetcher struct {
	Workers int
}

func (p PooledFetcher) FetchAll(ctx context.Context, f HourlyFetcher, queries []providers.HourlyQuery) ([]*providers.HourlySeries, error) {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	out := make([]*providers.HourlySeries, len(queries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			s, err := f.Hourly(gCtx, q)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
