package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-planner/internal/fetch"
	"github.com/i474232898/weather-planner/internal/weather"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

	// ThrottleNominatim is the limiter key; the usage policy allows one
	// request per second.
	ThrottleNominatim = "nominatim"
	NominatimGap      = time.Second

	nominatimTTL = 24 * time.Hour
)

// JSONFetcher is the subset of fetch.Client the resolver needs.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, req fetch.Request, out any) error
}

// Nominatim resolves places with the OpenStreetMap Nominatim search API.
type Nominatim struct {
	fetcher JSONFetcher
	baseURL string
}

func NewNominatim(fetcher JSONFetcher, baseURL string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{fetcher: fetcher, baseURL: baseURL}
}

type nominatimResult struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

func (n *Nominatim) Resolve(ctx context.Context, query string) (*weather.ResolvedLocation, error) {
	q, err := normalize(query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("q", q)

	var results []nominatimResult
	req := fetch.Request{
		URL:         n.baseURL + "?" + params.Encode(),
		CacheKey:    "nominatim|" + strings.ToLower(q),
		TTL:         nominatimTTL,
		ThrottleKey: ThrottleNominatim,
	}
	if err := n.fetcher.FetchJSON(ctx, req, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, q)
	}

	r := results[0]
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, &weather.UpstreamFetchError{URL: req.URL, Err: fmt.Errorf("parsing latitude: %w", err)}
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, &weather.UpstreamFetchError{URL: req.URL, Err: fmt.Errorf("parsing longitude: %w", err)}
	}

	bbox, ok := parseBoundingBox(r.BoundingBox)
	if !ok {
		bbox = weather.BBox{South: lat, West: lon, North: lat, East: lon}
	}
	return Locate(r.DisplayName, lat, lon, bbox, "nominatim"), nil
}

// parseBoundingBox reads Nominatim's [south, north, west, east] strings.
func parseBoundingBox(raw []string) (weather.BBox, bool) {
	if len(raw) != 4 {
		return weather.BBox{}, false
	}
	var v [4]float64
	for i, s := range raw {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return weather.BBox{}, false
		}
		v[i] = f
	}
	return weather.BBox{South: v[0], North: v[1], West: v[2], East: v[3]}, true
}
