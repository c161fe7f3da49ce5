package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-planner/internal/weather"
)

// Google resolves places with the Google Geocoding API. It reports points
// only, so results always suggest a Point geometry.
type Google struct {
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogle sets the package-wide API key used by kelvins/geocoder.
func NewGoogle(apiKey string) *Google {
	geocoder.ApiKey = apiKey
	return &Google{lookup: geocoder.Geocoding}
}

type googleResult struct {
	loc geocoder.Location
	err error
}

func (g *Google) Resolve(ctx context.Context, query string) (*weather.ResolvedLocation, error) {
	q, err := normalize(query)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The client takes no context; abandon the call when ctx ends.
	done := make(chan googleResult, 1)
	go func() {
		loc, err := g.lookup(geocoder.Address{City: q})
		done <- googleResult{loc: loc, err: err}
	}()

	var loc geocoder.Location
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		loc, err = r.loc, r.err
	}
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, q)
		}
		return nil, &weather.UpstreamFetchError{URL: "maps.googleapis.com/maps/api/geocode", Err: err}
	}

	bbox := weather.BBox{South: loc.Latitude, West: loc.Longitude, North: loc.Latitude, East: loc.Longitude}
	return Locate(q, loc.Latitude, loc.Longitude, bbox, "google"), nil
}
