// Package aggregate reduces hourly series matrices into statistical summaries.
//
// A matrix is a slice of rows, one per sampled location. Each row is aligned
// with its own slice of UTC timestamps, since sample points in different
// timezones report the same local hours at different instants. Non-finite values (NaN, ±Inf) are missing
// data and are skipped. Statistics over an empty set are nil, never NaN.
package aggregate

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/i474232898/weather-planner/internal/weather"
)

// LatitudeBand is a half-open [Min, Max) latitude interval.
type LatitudeBand struct {
	Label string
	Min   float64
	Max   float64
}

// Bands used by the spatial block. Points outside them are not reported.
var Bands = []LatitudeBand{
	{Label: "6-15N", Min: 6, Max: 15},
	{Label: "15-24N", Min: 15, Max: 24},
	{Label: "24-33N", Min: 24, Max: 33},
	{Label: "33-42N", Min: 33, Max: 42},
	{Label: "42-51N", Min: 42, Max: 51},
	{Label: "51-60N", Min: 51, Max: 60},
}

// Quantile returns the p-quantile of the finite values, linearly
// interpolating between order statistics at index (n-1)*p. It returns nil
// when there are no finite values.
func Quantile(values []float64, p float64) *float64 {
	return sortedQuantile(sortedFinite(values), p)
}

// Mean returns the arithmetic mean of the finite values, or nil.
func Mean(values []float64) *float64 {
	f := finite(values)
	if len(f) == 0 {
		return nil
	}
	return ptr(stat.Mean(f, nil))
}

// IQR returns p75 - p25 of the finite values, or nil.
func IQR(values []float64) *float64 {
	return sortedIQR(sortedFinite(values))
}

// SharedAxis repeats one time axis for n rows.
func SharedAxis(times []time.Time, n int) [][]time.Time {
	out := make([][]time.Time, n)
	for i := range out {
		out[i] = times
	}
	return out
}

// SummarizeHourUTC buckets every (row, time step) value by the UTC hour of its
// timestamp and reports mean and IQR per hour 0..23. times[r] is row r's axis.
func SummarizeHourUTC(times [][]time.Time, rows [][]float64) weather.HourSummary {
	return bucketize(times, rows, 24, 0, func(_ int, ts time.Time) int {
		return ts.UTC().Hour()
	})
}

// ClimateBlocks computes the long-term, seasonal (UTC month), diurnal (local
// hour) and spatial (latitude band) summaries of a matrix. times[r] is row
// r's UTC axis, utcOffsets[r] its offset in seconds and lats[r] its latitude.
func ClimateBlocks(times [][]time.Time, rows [][]float64, utcOffsets []int, lats []float64) weather.ClimateBlock {
	return weather.ClimateBlock{
		LongTerm: longTerm(rows),
		Seasonal: bucketize(times, rows, 12, 1, func(_ int, ts time.Time) int {
			return int(ts.UTC().Month()) - 1
		}),
		Diurnal: bucketize(times, rows, 24, 0, func(row int, ts time.Time) int {
			offset := 0
			if row < len(utcOffsets) {
				offset = utcOffsets[row]
			}
			return ts.UTC().Add(time.Duration(offset) * time.Second).Hour()
		}),
		Spatial: spatial(rows, lats),
	}
}

func longTerm(rows [][]float64) weather.LongTermStats {
	var pooled []float64
	for _, row := range rows {
		pooled = append(pooled, finite(row)...)
	}
	sort.Float64s(pooled)

	out := weather.LongTermStats{Count: len(pooled)}
	if len(pooled) == 0 {
		return out
	}
	out.Mean = ptr(stat.Mean(pooled, nil))
	out.P10 = sortedQuantile(pooled, 0.10)
	out.P90 = sortedQuantile(pooled, 0.90)
	out.IQR = sortedIQR(pooled)
	return out
}

// spatial reduces each row to its own time-mean first, then summarizes those
// point means per latitude band.
func spatial(rows [][]float64, lats []float64) weather.SpatialStats {
	perBand := make([][]float64, len(Bands))
	for i, row := range rows {
		if i >= len(lats) {
			break
		}
		pm := Mean(row)
		if pm == nil {
			continue
		}
		if b := bandIndex(lats[i]); b >= 0 {
			perBand[b] = append(perBand[b], *pm)
		}
	}

	out := weather.SpatialStats{
		Bands: make([]string, len(Bands)),
		Mean:  make([]*float64, len(Bands)),
		IQR:   make([]*float64, len(Bands)),
		Count: make([]int, len(Bands)),
	}
	for b, band := range Bands {
		vals := perBand[b]
		out.Bands[b] = band.Label
		out.Count[b] = len(vals)
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		out.Mean[b] = ptr(stat.Mean(vals, nil))
		out.IQR[b] = sortedIQR(vals)
	}
	return out
}

func bandIndex(lat float64) int {
	for i, b := range Bands {
		if lat >= b.Min && lat < b.Max {
			return i
		}
	}
	return -1
}

// bucketize pools values into n buckets chosen by key and reports mean/IQR
// per bucket. Index labels start at base.
func bucketize(times [][]time.Time, rows [][]float64, n, base int, key func(row int, ts time.Time) int) weather.HourSummary {
	buckets := make([][]float64, n)
	for r, row := range rows {
		if r >= len(times) {
			break
		}
		axis := times[r]
		for j, v := range row {
			if j >= len(axis) {
				break
			}
			if !isFinite(v) {
				continue
			}
			k := key(r, axis[j])
			if k < 0 || k >= n {
				continue
			}
			buckets[k] = append(buckets[k], v)
		}
	}

	out := weather.HourSummary{
		Index: make([]int, n),
		Mean:  make([]*float64, n),
		IQR:   make([]*float64, n),
	}
	for k, vals := range buckets {
		out.Index[k] = base + k
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		out.Mean[k] = ptr(stat.Mean(vals, nil))
		out.IQR[k] = sortedIQR(vals)
	}
	return out
}

// sortedQuantile expects ascending finite input. p is clamped to [0, 1].
func sortedQuantile(sorted []float64, p float64) *float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(p) {
		return nil
	}
	p = math.Max(0, math.Min(1, p))
	idx := float64(n-1) * p
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return ptr(sorted[lo])
	}
	frac := idx - float64(lo)
	return ptr(sorted[lo] + (sorted[hi]-sorted[lo])*frac)
}

func sortedIQR(sorted []float64) *float64 {
	q1 := sortedQuantile(sorted, 0.25)
	q3 := sortedQuantile(sorted, 0.75)
	if q1 == nil || q3 == nil {
		return nil
	}
	return ptr(*q3 - *q1)
}

func sortedFinite(values []float64) []float64 {
	f := finite(values)
	sort.Float64s(f)
	return f
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ptr(v float64) *float64 {
	return &v
}
