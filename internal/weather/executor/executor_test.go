package executor

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-planner/internal/weather"
	"github.com/i474232898/weather-planner/internal/weather/providers"
	"github.com/i474232898/weather-planner/internal/weather/sampler"
)

type fakeFetcher struct {
	mu      sync.Mutex
	queries []providers.HourlyQuery
	failAt  int // 1-based call number that fails; 0 never fails
	err     error
}

func (f *fakeFetcher) Hourly(_ context.Context, q providers.HourlyQuery) (*providers.HourlySeries, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	n := len(f.queries)
	f.mu.Unlock()

	if f.failAt > 0 && n >= f.failAt {
		return nil, f.err
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{start, start.Add(time.Hour), start.Add(24 * time.Hour)}
	values := make(map[string][]*float64, len(q.Variables))
	for _, v := range q.Variables {
		a, b := q.Coord.Lat, q.Coord.Lat+1
		values[v] = []*float64{&a, nil, &b}
	}
	return &providers.HourlySeries{
		Times:            times,
		Values:           values,
		UTCOffsetSeconds: 3600,
		Endpoint:         q.Endpoint(),
	}, nil
}

// zoneFetcher reports one local day per point, with the value equal to the
// local hour. The point's timezone offset is looked up by longitude.
type zoneFetcher struct {
	offsets map[float64]int
}

func (f zoneFetcher) Hourly(_ context.Context, q providers.HourlyQuery) (*providers.HourlySeries, error) {
	offset := f.offsets[q.Coord.Lon]
	midnight := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(offset) * time.Second)
	times := make([]time.Time, 24)
	hours := make([]*float64, 24)
	for h := range times {
		times[h] = midnight.Add(time.Duration(h) * time.Hour)
		v := float64(h)
		hours[h] = &v
	}
	values := make(map[string][]*float64, len(q.Variables))
	for _, v := range q.Variables {
		values[v] = hours
	}
	return &providers.HourlySeries{Times: times, Values: values, UTCOffsetSeconds: offset, Endpoint: q.Endpoint()}, nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func resolved(id, unit string) weather.PlanItem {
	return weather.PlanItem{Requested: id, Status: weather.ItemResolved, Score: 1, Canonical: id, Unit: unit, Provider: "open-meteo"}
}

func unresolved(phrase string) weather.PlanItem {
	return weather.PlanItem{Requested: phrase, Status: weather.ItemUnresolved}
}

func historicalMeta() *weather.PlanMeta {
	return &weather.PlanMeta{HistoricalWindow: &weather.HistoricalWindow{Start: "2014-01-01", End: "2024-01-01", Years: 10}}
}

func TestExecutePointForecast(t *testing.T) {
	f := &fakeFetcher{}
	e := New(f, nil)
	days := 5

	plan := &weather.Plan{
		PlaceGeometry: weather.PointGeometry(10, 20),
		TimeMode:      weather.ModeForecast,
		Items:         []weather.PlanItem{resolved("temperature_2m", "°C"), resolved("temperature_2m", "°C"), resolved("wind_speed_10m", "km/h"), unresolved("xyzzy")},
		Citations:     []string{"Open-Meteo"},
		Options:       &weather.PlanOptions{ForecastDays: &days},
	}

	res, err := e.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls() != 1 {
		t.Fatalf("expected exactly one fetch, got %d", f.calls())
	}
	q := f.queries[0]
	if len(q.Variables) != 2 || q.Window != nil || q.ForecastDays != 5 {
		t.Fatalf("unexpected query %+v", q)
	}

	if res.Mode != weather.ResultPoint || len(res.Series) != 2 || res.Climatologies != nil || res.Window != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	s := res.Series[0]
	if s.Variable != "temperature_2m" || s.Unit != "°C" || len(s.Times) != 3 || s.Times[0] != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected series %+v", s)
	}
	if s.Values[1] != nil || *s.Values[0] != 10 {
		t.Fatalf("expected nulls preserved, got %v", s.Values)
	}
	if s.Provenance.Endpoint != providers.ForecastEndpoint || s.Provenance.ProxyUsed || s.Provenance.Provider != "open-meteo" {
		t.Fatalf("unexpected provenance %+v", s.Provenance)
	}
	if len(res.Limitations) != 2 {
		t.Fatalf("expected template plus unresolved note, got %v", res.Limitations)
	}
	if len(res.Citations) != 1 {
		t.Fatalf("expected citations copied from plan, got %v", res.Citations)
	}
}

func TestExecutePointHistoricalAddsClimatology(t *testing.T) {
	f := &fakeFetcher{}
	e := New(f, nil)

	plan := &weather.Plan{
		PlaceGeometry: weather.PointGeometry(10, 20),
		TimeMode:      weather.ModeHistorical,
		Items:         []weather.PlanItem{resolved("temperature_2m", "°C")},
		Meta:          historicalMeta(),
	}
	res, err := e.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.queries[0].Window == nil || f.queries[0].Endpoint() != providers.ArchiveEndpoint {
		t.Fatalf("expected archive query, got %+v", f.queries[0])
	}
	if res.Window == nil || res.Window.Years != 10 {
		t.Fatalf("expected window on result, got %+v", res.Window)
	}
	if len(res.Climatologies) != 1 {
		t.Fatalf("expected one climatology, got %d", len(res.Climatologies))
	}
	lt := res.Climatologies[0].Blocks.LongTerm
	if lt.Count != 2 || lt.Mean == nil || *lt.Mean != 10.5 {
		t.Fatalf("unexpected long-term stats %+v", lt)
	}
	// Latitude 10 falls in the first band.
	sp := res.Climatologies[0].Blocks.Spatial
	if sp.Count[0] != 1 || *sp.Mean[0] != 10.5 {
		t.Fatalf("unexpected spatial stats %+v", sp)
	}
}

func TestExecutePointMissingCoordinates(t *testing.T) {
	f := &fakeFetcher{}
	lat := 10.0
	plan := &weather.Plan{
		PlaceGeometry: weather.Geometry{Type: weather.GeometryPoint, Lat: &lat},
		TimeMode:      weather.ModeForecast,
		Items:         []weather.PlanItem{resolved("temperature_2m", "°C")},
	}
	_, err := New(f, nil).Execute(context.Background(), plan)
	if !errors.Is(err, weather.ErrMissingCoordinates) {
		t.Fatalf("expected ErrMissingCoordinates, got %v", err)
	}
	if f.calls() != 0 {
		t.Fatalf("expected no fetch, got %d", f.calls())
	}
}

func TestExecuteHistoricalWithoutWindow(t *testing.T) {
	plan := &weather.Plan{
		PlaceGeometry: weather.PointGeometry(1, 2),
		TimeMode:      weather.ModeHistorical,
	}
	_, err := New(&fakeFetcher{}, nil).Execute(context.Background(), plan)
	if !weather.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestExecuteNoResolvedVariables(t *testing.T) {
	f := &fakeFetcher{}
	plan := &weather.Plan{
		PlaceGeometry: weather.BBoxGeometry(10, 20, 11, 21),
		TimeMode:      weather.ModeForecast,
		Items:         []weather.PlanItem{unresolved("xyzzy")},
	}
	res, err := New(f, nil).Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls() != 0 || res.Aggregates == nil || len(res.Aggregates) != 0 {
		t.Fatalf("expected empty result without fetching, got %+v (%d calls)", res, f.calls())
	}
	if len(res.Limitations) == 0 {
		t.Fatalf("limitations must never be empty")
	}
}

func TestExecuteRegionForecast(t *testing.T) {
	f := &fakeFetcher{}
	e := New(f, nil)

	bbox := weather.BBox{South: 10, West: 20, North: 11, East: 21}
	plan := &weather.Plan{
		PlaceGeometry: weather.BBoxGeometry(bbox.South, bbox.West, bbox.North, bbox.East),
		TimeMode:      weather.ModeForecast,
		Items:         []weather.PlanItem{resolved("temperature_2m", "°C")},
	}
	res, err := e.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	grid := sampler.Grid(bbox)
	if f.calls() != len(grid) {
		t.Fatalf("expected one fetch per sample point (%d), got %d", len(grid), f.calls())
	}
	for i, q := range f.queries {
		if q.Coord != grid[i] {
			t.Fatalf("fetch %d at %v, want %v", i, q.Coord, grid[i])
		}
	}

	if res.Mode != weather.ResultRegion || len(res.Aggregates) != 1 || res.Series != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	agg := res.Aggregates[0]
	if agg.SampleCount != 9 || agg.Provenance.Note != "n=9 sample points" {
		t.Fatalf("unexpected sample annotation %+v", agg)
	}
	// Hour 0 pools lat and lat+1 across the 9 points; hour 1 is all null.
	if agg.Aggregation.Mean[0] == nil || math.Abs(*agg.Aggregation.Mean[0]-11) > 1e-9 {
		t.Fatalf("unexpected hour 0 mean %v", agg.Aggregation.Mean[0])
	}
	if agg.Aggregation.Mean[1] != nil || agg.Aggregation.IQR[1] != nil {
		t.Fatalf("empty hour must be null")
	}
	if len(res.Limitations) != 1 {
		t.Fatalf("expected one limitation, got %v", res.Limitations)
	}
}

func TestExecuteRegionAbortsOnFirstFailure(t *testing.T) {
	upstream := &weather.UpstreamFetchError{StatusCode: 502, URL: "http://upstream/v1/forecast"}
	f := &fakeFetcher{failAt: 3, err: upstream}

	plan := &weather.Plan{
		PlaceGeometry: weather.BBoxGeometry(10, 20, 11, 21),
		TimeMode:      weather.ModeForecast,
		Items:         []weather.PlanItem{resolved("temperature_2m", "°C")},
	}
	res, err := New(f, SequentialFetcher{}).Execute(context.Background(), plan)
	if res != nil {
		t.Fatalf("expected no partial result")
	}
	var upErr *weather.UpstreamFetchError
	if !errors.As(err, &upErr) || upErr.StatusCode != 502 {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if f.calls() != 3 {
		t.Fatalf("expected loop to stop at the failing point, got %d calls", f.calls())
	}
}

func TestExecuteRegionHistoricalPooled(t *testing.T) {
	f := &fakeFetcher{}
	plan := &weather.Plan{
		PlaceGeometry: weather.BBoxGeometry(10, 20, 11, 21),
		TimeMode:      weather.ModeHistorical,
		Items:         []weather.PlanItem{resolved("precipitation", "mm")},
		Meta:          historicalMeta(),
	}
	res, err := New(f, PooledFetcher{Workers: 4}).Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls() != 9 || len(res.Climatologies) != 1 || len(res.Aggregates) != 1 {
		t.Fatalf("unexpected result %+v (%d calls)", res, f.calls())
	}

	blocks := res.Climatologies[0].Blocks
	if blocks.LongTerm.Count != 18 {
		t.Fatalf("expected 18 pooled values, got %d", blocks.LongTerm.Count)
	}
	// Each point's row mean is lat+0.5; lats 10, 10.5, 11 all sit in 6-15N.
	if blocks.Spatial.Count[0] != 9 || math.Abs(*blocks.Spatial.Mean[0]-11) > 1e-9 {
		t.Fatalf("unexpected spatial block %+v", blocks.Spatial)
	}
	// UTC+1 moves the midnight values into local hour 1.
	if blocks.Diurnal.Mean[1] == nil || blocks.Diurnal.Mean[0] != nil {
		t.Fatalf("expected diurnal values at local hour 1, got %v", blocks.Diurnal.Mean)
	}
	if blocks.Seasonal.Index[0] != 1 || blocks.Seasonal.Mean[0] == nil {
		t.Fatalf("expected January values, got %+v", blocks.Seasonal)
	}
}

func TestExecuteRegionMixedOffsets(t *testing.T) {
	// Two sample points on one row: lon 0 at UTC, lon 0.5 at UTC+5.
	f := zoneFetcher{offsets: map[float64]int{0: 0, 0.5: 5 * 3600}}
	plan := &weather.Plan{
		PlaceGeometry: weather.BBoxGeometry(10, 0, 10, 0.5),
		TimeMode:      weather.ModeHistorical,
		Items:         []weather.PlanItem{resolved("temperature_2m", "°C")},
		Meta:          historicalMeta(),
	}
	res, err := New(f, nil).Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Aggregates) != 1 || res.Aggregates[0].SampleCount != 2 {
		t.Fatalf("expected two sample points, got %+v", res.Aggregates)
	}

	diurnal := res.Climatologies[0].Blocks.Diurnal
	for h := 0; h < 24; h++ {
		if diurnal.Mean[h] == nil || math.Abs(*diurnal.Mean[h]-float64(h)) > 1e-9 {
			t.Fatalf("local hour %d mean = %v, want %d", h, diurnal.Mean[h], h)
		}
	}

	// UTC 19:00 holds local 19 from the UTC point and local 00 from the UTC+5 point.
	agg := res.Aggregates[0].Aggregation
	if agg.Mean[19] == nil || math.Abs(*agg.Mean[19]-9.5) > 1e-9 {
		t.Fatalf("utc hour 19 mean = %v, want 9.5", agg.Mean[19])
	}
	if agg.Mean[0] == nil || math.Abs(*agg.Mean[0]-2.5) > 1e-9 {
		t.Fatalf("utc hour 0 mean = %v, want 2.5", agg.Mean[0])
	}
}

func TestExecuteRejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name     string
		geometry weather.Geometry
	}{
		{"inverted bbox", weather.BBoxGeometry(20, 0, 10, 5)},
		{"west past east", weather.BBoxGeometry(0, 10, 5, 0)},
		{"bbox out of range", weather.BBoxGeometry(-95, 0, 10, 5)},
		{"point out of range", weather.PointGeometry(95, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{}
			plan := &weather.Plan{
				PlaceGeometry: tt.geometry,
				TimeMode:      weather.ModeForecast,
				Items:         []weather.PlanItem{resolved("temperature_2m", "°C")},
			}
			res, err := New(f, nil).Execute(context.Background(), plan)
			if !weather.IsValidation(err) || res != nil {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if f.calls() != 0 {
				t.Fatalf("expected no fetch, got %d", f.calls())
			}
		})
	}
}

func TestPooledFetcherPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{failAt: 1, err: boom}
	queries := make([]providers.HourlyQuery, 5)
	_, err := PooledFetcher{Workers: 2}.FetchAll(context.Background(), f, queries)
	if !errors.Is(err, boom) {
		t.Fatalf("expected failure, got %v", err)
	}
}

func TestExecuteRejectsUnknownGeometry(t *testing.T) {
	plan := &weather.Plan{PlaceGeometry: weather.Geometry{Type: "Polygon"}, TimeMode: weather.ModeForecast}
	if _, err := New(&fakeFetcher{}, nil).Execute(context.Background(), plan); !weather.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	plan = &weather.Plan{PlaceGeometry: weather.Geometry{Type: weather.GeometryBBox}, TimeMode: weather.ModeForecast}
	if _, err := New(&fakeFetcher{}, nil).Execute(context.Background(), plan); !errors.Is(err, weather.ErrMissingBBox) {
		t.Fatalf("expected ErrMissingBBox, got %v", err)
	}
}

func TestLimitationsTemplates(t *testing.T) {
	seen := make(map[string]bool)
	for _, mode := range []string{weather.ResultPoint, weather.ResultRegion} {
		for _, hist := range []bool{false, true} {
			got := Limitations(mode, hist, nil)
			if len(got) != 1 || got[0] == "" || seen[got[0]] {
				t.Fatalf("expected a distinct template for %s/%v, got %v", mode, hist, got)
			}
			seen[got[0]] = true
		}
	}
}
