// Package sampler turns a bounding box into a bounded grid of coordinates.
package sampler

import (
	"math"

	"github.com/i474232898/weather-planner/internal/weather"
)

// MaxPoints caps the grid size. Larger boxes are truncated in generation
// order, so their northern rows go unsampled.
const MaxPoints = 150

const kmPerDegree = 111.0

// AreaKm2 approximates the box area with a flat-earth projection (no
// cosine-latitude correction).
func AreaKm2(b weather.BBox) float64 {
	return math.Abs(b.North-b.South) * math.Abs(b.East-b.West) * kmPerDegree * kmPerDegree
}

// Step returns the grid spacing in degrees for a box of the given area.
func Step(areaKm2 float64) float64 {
	switch {
	case areaKm2 > 2_000_000:
		return 2.0
	case areaKm2 > 50_000:
		return 1.0
	default:
		return 0.5
	}
}

// Grid walks the box south to north, west to east (both bounds inclusive) and
// returns at most MaxPoints coordinates rounded to 3 decimals.
func Grid(b weather.BBox) []weather.Coord {
	step := Step(AreaKm2(b))
	// Tolerate float drift on the inclusive upper bounds.
	const eps = 1e-9

	var out []weather.Coord
	for i := 0; ; i++ {
		lat := b.South + float64(i)*step
		if lat > b.North+eps {
			break
		}
		for j := 0; ; j++ {
			lon := b.West + float64(j)*step
			if lon > b.East+eps {
				break
			}
			out = append(out, weather.Coord{Lat: round3(lat), Lon: round3(lon)})
			if len(out) == MaxPoints {
				return out
			}
		}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
