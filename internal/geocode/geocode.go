// Package geocode resolves free-text place names into coordinates, a bounding
// box and a suggested plan geometry.
package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/i474232898/weather-planner/internal/weather"
	"github.com/i474232898/weather-planner/internal/weather/sampler"
)

// RegionAreaKm2 is the area at or above which a BBox geometry is suggested
// instead of a Point.
const RegionAreaKm2 = 50_000

// ErrNotFound is returned when no resolver knows the place.
var ErrNotFound = errors.New("location not found")

// Resolver resolves one query.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*weather.ResolvedLocation, error)
}

// Chain tries resolvers in order and returns the first hit. A not-found
// answer moves on to the next resolver; any other error stops the chain.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, query string) (*weather.ResolvedLocation, error) {
	for _, r := range c {
		loc, err := r.Resolve(ctx, query)
		if err == nil {
			return loc, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Locate builds a resolved location. The area uses the same flat-earth
// approximation as the region sampler.
func Locate(name string, lat, lon float64, bbox weather.BBox, source string) *weather.ResolvedLocation {
	area := sampler.AreaKm2(bbox)

	geom := weather.PointGeometry(lat, lon)
	if area >= RegionAreaKm2 {
		geom = weather.BBoxGeometry(bbox.South, bbox.West, bbox.North, bbox.East)
	}
	return &weather.ResolvedLocation{
		Name:     name,
		Lat:      lat,
		Lon:      lon,
		BBox:     []float64{bbox.South, bbox.West, bbox.North, bbox.East},
		AreaKm2:  area,
		Geometry: geom,
		Source:   source,
	}
}

func normalize(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", &weather.ValidationError{Field: "query", Message: "is required"}
	}
	return q, nil
}
