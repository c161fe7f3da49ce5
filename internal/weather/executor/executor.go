// Package executor runs plans against the hourly provider and shapes the
// results for a point or a region.
package executor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/i474232898/weather-planner/internal/weather"
	"github.com/i474232898/weather-planner/internal/weather/aggregate"
	"github.com/i474232898/weather-planner/internal/weather/providers"
	"github.com/i474232898/weather-planner/internal/weather/sampler"
)

var limitationTemplates = map[string]string{
	weather.ResultPoint + "/forecast": "Point forecast for a single model grid cell; local effects such as terrain, " +
		"coastlines and urban heat are not resolved.",
	weather.ResultPoint + "/historical": "Historical values come from ERA5 reanalysis at roughly 25 km resolution " +
		"and can differ from station observations.",
	weather.ResultRegion + "/forecast": "Regional summary samples at most 150 grid points, so large areas are " +
		"under-sampled; hour-of-day statistics use UTC hours.",
	weather.ResultRegion + "/historical": "Regional climatology samples at most 150 grid points of ERA5 reanalysis; " +
		"the spatial block covers 6-60N only and omits points outside those bands.",
}

// Executor executes plans.
type Executor struct {
	fetcher HourlyFetcher
	batch   BatchFetcher
}

// New creates an Executor. A nil batch fetcher means sequential region
// fetching.
func New(fetcher HourlyFetcher, batch BatchFetcher) *Executor {
	if batch == nil {
		batch = SequentialFetcher{}
	}
	return &Executor{fetcher: fetcher, batch: batch}
}

// Execute runs the plan. Any fetch failure aborts the whole execution.
func (e *Executor) Execute(ctx context.Context, plan *weather.Plan) (*weather.ExecuteResult, error) {
	if plan == nil {
		return nil, &weather.ValidationError{Field: "plan", Message: "is required"}
	}

	historical := plan.TimeMode == weather.ModeHistorical || plan.TimeMode == weather.ModeClimate
	if historical && plan.Window() == nil {
		return nil, &weather.ValidationError{Field: "meta.historical_window", Message: "is required for historical plans"}
	}

	switch plan.PlaceGeometry.Type {
	case weather.GeometryPoint:
		return e.executePoint(ctx, plan, historical)
	case weather.GeometryBBox:
		return e.executeRegion(ctx, plan, historical)
	default:
		return nil, &weather.ValidationError{Field: "place_geometry.type", Message: "must be one of [Point BBox]"}
	}
}

func (e *Executor) executePoint(ctx context.Context, plan *weather.Plan, historical bool) (*weather.ExecuteResult, error) {
	g := plan.PlaceGeometry
	if g.Lat == nil || g.Lon == nil {
		return nil, weather.ErrMissingCoordinates
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	res := newResult(weather.ResultPoint, plan, historical)
	res.Series = []weather.SeriesResult{}

	items := plan.ResolvedVariables()
	if len(items) == 0 {
		return res, nil
	}

	coord := weather.Coord{Lat: *g.Lat, Lon: *g.Lon}
	series, err := e.fetcher.Hourly(ctx, query(coord, items, plan, historical))
	if err != nil {
		return nil, err
	}

	times := formatTimes(series.Times)
	prov := provenance(series.Endpoint, "")
	for _, it := range items {
		values := series.Values[it.Canonical]
		res.Series = append(res.Series, weather.SeriesResult{
			Variable:   it.Canonical,
			Unit:       it.Unit,
			Times:      times,
			Values:     values,
			Provenance: prov,
		})
		if historical {
			rows := [][]float64{toFloats(values)}
			res.Climatologies = append(res.Climatologies, weather.Climatology{
				Variable:   it.Canonical,
				Unit:       it.Unit,
				Blocks:     aggregate.ClimateBlocks([][]time.Time{series.Times}, rows, []int{series.UTCOffsetSeconds}, []float64{coord.Lat}),
				Provenance: prov,
			})
		}
	}
	return res, nil
}

func (e *Executor) executeRegion(ctx context.Context, plan *weather.Plan, historical bool) (*weather.ExecuteResult, error) {
	bbox, ok := plan.PlaceGeometry.Bounds()
	if !ok {
		return nil, weather.ErrMissingBBox
	}
	// Plans can be posted directly, so the planner's checks are repeated here.
	if err := plan.PlaceGeometry.Validate(); err != nil {
		return nil, err
	}

	res := newResult(weather.ResultRegion, plan, historical)
	res.Aggregates = []weather.AggregationResult{}

	items := plan.ResolvedVariables()
	if len(items) == 0 {
		return res, nil
	}

	coords := sampler.Grid(bbox)
	if len(coords) == 0 {
		return nil, &weather.ValidationError{Field: "place_geometry.bbox", Message: "yields no sample points"}
	}
	queries := make([]providers.HourlyQuery, len(coords))
	for i, c := range coords {
		queries[i] = query(c, items, plan, historical)
	}

	all, err := e.batch.FetchAll(ctx, e.fetcher, queries)
	if err != nil {
		return nil, err
	}
	if len(all) != len(coords) {
		return nil, fmt.Errorf("fetched %d series for %d sample points", len(all), len(coords))
	}

	// Each point keeps its own UTC axis; offsets differ across timezones.
	times := make([][]time.Time, len(all))
	offsets := make([]int, len(all))
	lats := make([]float64, len(all))
	matrices := make(map[string][][]float64, len(items))
	for i, s := range all {
		times[i] = s.Times
		offsets[i] = s.UTCOffsetSeconds
		lats[i] = coords[i].Lat
		for _, it := range items {
			matrices[it.Canonical] = append(matrices[it.Canonical], toFloats(s.Values[it.Canonical]))
		}
	}

	prov := provenance(all[0].Endpoint, fmt.Sprintf("n=%d sample points", len(coords)))
	for _, it := range items {
		rows := matrices[it.Canonical]
		res.Aggregates = append(res.Aggregates, weather.AggregationResult{
			Variable:    it.Canonical,
			Unit:        it.Unit,
			Aggregation: aggregate.SummarizeHourUTC(times, rows),
			SampleCount: len(coords),
			Provenance:  prov,
		})
		if historical {
			res.Climatologies = append(res.Climatologies, weather.Climatology{
				Variable:   it.Canonical,
				Unit:       it.Unit,
				Blocks:     aggregate.ClimateBlocks(times, rows, offsets, lats),
				Provenance: prov,
			})
		}
	}
	return res, nil
}

func newResult(mode string, plan *weather.Plan, historical bool) *weather.ExecuteResult {
	res := &weather.ExecuteResult{
		Mode:        mode,
		Citations:   append([]string{}, plan.Citations...),
		Limitations: Limitations(mode, historical, plan.Items),
	}
	if historical {
		res.Window = plan.Window()
	}
	return res
}

// Limitations returns the advisory caveats for a result. It is never empty.
func Limitations(mode string, historical bool, items []weather.PlanItem) []string {
	key := mode + "/forecast"
	if historical {
		key = mode + "/historical"
	}
	out := []string{limitationTemplates[key]}

	var unresolved []string
	for _, it := range items {
		if !it.Resolved() {
			unresolved = append(unresolved, fmt.Sprintf("%q", it.Requested))
		}
	}
	if len(unresolved) > 0 {
		out = append(out, fmt.Sprintf("Not available from Open-Meteo: %s; see the plan's fallback providers.", strings.Join(unresolved, ", ")))
	}
	return out
}

func query(c weather.Coord, items []weather.PlanItem, plan *weather.Plan, historical bool) providers.HourlyQuery {
	vars := make([]string, len(items))
	for i, it := range items {
		vars[i] = it.Canonical
	}
	q := providers.HourlyQuery{Coord: c, Variables: vars}
	if historical {
		q.Window = plan.Window()
	} else if plan.Options != nil && plan.Options.ForecastDays != nil {
		q.ForecastDays = *plan.Options.ForecastDays
	}
	return q
}

func provenance(endpoint, note string) weather.Provenance {
	return weather.Provenance{
		Provider: providers.OpenMeteoName,
		Endpoint: endpoint,
		Note:     note,
	}
}

func formatTimes(times []time.Time) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.UTC().Format(time.RFC3339)
	}
	return out
}

// toFloats maps missing values to NaN, which the aggregators skip.
func toFloats(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}
