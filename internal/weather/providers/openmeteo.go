package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-planner/internal/fetch"
	"github.com/i474232898/weather-planner/internal/weather"
)

const (
	OpenMeteoName = "open-meteo"

	DefaultForecastBaseURL = "https://api.open-meteo.com"
	DefaultArchiveBaseURL  = "https://archive-api.open-meteo.com"

	ForecastEndpoint = "/v1/forecast"
	ArchiveEndpoint  = "/v1/archive"

	// Throttle keys shared with the fetch limiter.
	ThrottleForecast = "forecast"
	ThrottleArchive  = "archive"

	timezone   = "auto"
	timeLayout = "2006-01-02T15:04"
)

// JSONFetcher is the subset of fetch.Client the provider needs.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, req fetch.Request, out any) error
}

// OpenMeteoConfig configures upstream hosts and cache lifetimes.
type OpenMeteoConfig struct {
	ForecastBaseURL string
	ArchiveBaseURL  string
	ForecastTTL     time.Duration
	ArchiveTTL      time.Duration
}

// OpenMeteoProvider fetches hourly series from the Open-Meteo forecast and
// archive APIs.
type OpenMeteoProvider struct {
	fetcher JSONFetcher
	cfg     OpenMeteoConfig
}

func NewOpenMeteoProvider(fetcher JSONFetcher, cfg OpenMeteoConfig) *OpenMeteoProvider {
	if cfg.ForecastBaseURL == "" {
		cfg.ForecastBaseURL = DefaultForecastBaseURL
	}
	if cfg.ArchiveBaseURL == "" {
		cfg.ArchiveBaseURL = DefaultArchiveBaseURL
	}
	if cfg.ForecastTTL <= 0 {
		cfg.ForecastTTL = 60 * time.Second
	}
	if cfg.ArchiveTTL <= 0 {
		cfg.ArchiveTTL = 24 * time.Hour
	}
	return &OpenMeteoProvider{fetcher: fetcher, cfg: cfg}
}

func (p *OpenMeteoProvider) Name() string {
	return OpenMeteoName
}

// HourlyQuery asks for hourly variables at one coordinate. A nil Window
// selects the forecast endpoint; otherwise the archive is queried for the
// window's dates.
type HourlyQuery struct {
	Coord        weather.Coord
	Variables    []string
	Window       *weather.HistoricalWindow
	ForecastDays int
}

// Endpoint is the upstream path the query is sent to.
func (q HourlyQuery) Endpoint() string {
	if q.Window != nil {
		return ArchiveEndpoint
	}
	return ForecastEndpoint
}

// HourlySeries is a decoded hourly response. Times are UTC instants; Values
// holds one slice per requested variable, aligned with Times, with nil for
// missing values.
type HourlySeries struct {
	Times            []time.Time
	Values           map[string][]*float64
	UTCOffsetSeconds int
	Endpoint         string
}

// Hourly fetches one hourly series.
func (p *OpenMeteoProvider) Hourly(ctx context.Context, q HourlyQuery) (*HourlySeries, error) {
	req := p.request(q)

	var payload struct {
		UTCOffsetSeconds int                        `json:"utc_offset_seconds"`
		Hourly           map[string]json.RawMessage `json:"hourly"`
	}
	if err := p.fetcher.FetchJSON(ctx, req, &payload); err != nil {
		return nil, err
	}

	series, err := decodeHourly(payload.Hourly, payload.UTCOffsetSeconds, q.Variables)
	if err != nil {
		return nil, &weather.UpstreamFetchError{URL: req.URL, Err: err}
	}
	series.Endpoint = q.Endpoint()
	return series, nil
}

// Probe issues a minimal uncached forecast call to check reachability.
func (p *OpenMeteoProvider) Probe(ctx context.Context) error {
	values := url.Values{}
	values.Set("latitude", "0")
	values.Set("longitude", "0")
	values.Set("hourly", "temperature_2m")
	values.Set("forecast_days", "1")

	var out json.RawMessage
	return p.fetcher.FetchJSON(ctx, fetch.Request{
		URL:         p.cfg.ForecastBaseURL + ForecastEndpoint + "?" + values.Encode(),
		ThrottleKey: ThrottleForecast,
	}, &out)
}

func (p *OpenMeteoProvider) request(q HourlyQuery) fetch.Request {
	lat, lon := round3(q.Coord.Lat), round3(q.Coord.Lon)

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("hourly", strings.Join(q.Variables, ","))
	values.Set("timezone", timezone)

	var (
		base, mode, throttle string
		start, end           string
		ttl                  time.Duration
	)
	if q.Window != nil {
		base, mode, throttle, ttl = p.cfg.ArchiveBaseURL, "archive", ThrottleArchive, p.cfg.ArchiveTTL
		start, end = q.Window.Start, q.Window.End
		values.Set("start_date", start)
		values.Set("end_date", end)
	} else {
		base, mode, throttle, ttl = p.cfg.ForecastBaseURL, "forecast", ThrottleForecast, p.cfg.ForecastTTL
		if q.ForecastDays > 0 {
			values.Set("forecast_days", strconv.Itoa(q.ForecastDays))
		}
	}

	return fetch.Request{
		URL:         base + q.Endpoint() + "?" + values.Encode(),
		CacheKey:    cacheKey(mode, lat, lon, q.Variables, start, end, q.ForecastDays),
		TTL:         ttl,
		ThrottleKey: throttle,
	}
}

// cacheKey normalizes a request so equivalent queries share an entry.
func cacheKey(mode string, lat, lon float64, vars []string, start, end string, days int) string {
	sorted := append([]string(nil), vars...)
	sort.Strings(sorted)
	return fmt.Sprintf("%s|%.3f|%.3f|%s|%s|%s|%s|%d", mode, lat, lon, strings.Join(sorted, ","), timezone, start, end, days)
}

func decodeHourly(hourly map[string]json.RawMessage, offset int, vars []string) (*HourlySeries, error) {
	var raw []string
	if t, ok := hourly["time"]; ok {
		if err := json.Unmarshal(t, &raw); err != nil {
			return nil, fmt.Errorf("decoding hourly.time: %w", err)
		}
	}

	times := make([]time.Time, len(raw))
	shift := time.Duration(offset) * time.Second
	for i, s := range raw {
		local, err := parseTime(s)
		if err != nil {
			return nil, fmt.Errorf("parsing hourly.time[%d]: %w", i, err)
		}
		times[i] = local.Add(-shift)
	}

	values := make(map[string][]*float64, len(vars))
	for _, v := range vars {
		aligned := make([]*float64, len(times))
		if msg, ok := hourly[v]; ok {
			var col []*float64
			if err := json.Unmarshal(msg, &col); err != nil {
				return nil, fmt.Errorf("decoding hourly.%s: %w", v, err)
			}
			copy(aligned, col)
		}
		values[v] = aligned
	}

	return &HourlySeries{Times: times, Values: values, UTCOffsetSeconds: offset}, nil
}

// parseTime reads Open-Meteo's local wall-clock timestamps, with or without
// seconds.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
