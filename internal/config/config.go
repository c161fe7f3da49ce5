package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-planner/internal/geocode"
	"github.com/i474232898/weather-planner/internal/weather/providers"
)

type AppConfig struct {
	Port      string
	LogDebug  bool
	UserAgent string

	ForecastURL  string
	ArchiveURL   string
	NominatimURL string

	// GoogleGeocoderAPIKey enables the Google resolver ahead of Nominatim.
	GoogleGeocoderAPIKey string

	HTTPTimeout time.Duration
	FetchMinGap time.Duration

	ForecastTTL     time.Duration
	ArchiveTTL      time.Duration
	CapabilitiesTTL time.Duration

	// FetchWorkers > 1 fetches region sample points concurrently.
	FetchWorkers int

	// CacheDBPath selects the SQLite response cache ("" = in-memory).
	CacheDBPath     string
	CacheMaxEntries int
}

// Load reads configuration from environment (and .env, if present) with
// sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &AppConfig{
		Port:                 getenvDefault("PORT", "8080"),
		LogDebug:             getenvBool("LOG_DEBUG", false),
		UserAgent:            getenvDefault("USER_AGENT", "weather-planner/1.0"),
		ForecastURL:          getenvDefault("OPEN_METEO_FORECAST_URL", providers.DefaultForecastBaseURL),
		ArchiveURL:           getenvDefault("OPEN_METEO_ARCHIVE_URL", providers.DefaultArchiveBaseURL),
		NominatimURL:         getenvDefault("NOMINATIM_URL", geocode.DefaultNominatimURL),
		GoogleGeocoderAPIKey: os.Getenv("GOOGLE_GEOCODER_API_KEY"),
		FetchWorkers:         getenvInt("FETCH_WORKERS", 1),
		CacheDBPath:          os.Getenv("CACHE_DB_PATH"),
		CacheMaxEntries:      getenvInt("CACHE_MAX_ENTRIES", 10_000),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "30s", &cfg.HTTPTimeout},
		{"FETCH_MIN_GAP", "250ms", &cfg.FetchMinGap},
		{"FORECAST_TTL", "60s", &cfg.ForecastTTL},
		{"ARCHIVE_TTL", "24h", &cfg.ArchiveTTL},
		{"CAPABILITIES_TTL", "24h", &cfg.CapabilitiesTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", d.key)
		}
		*d.dst = v
	}

	if cfg.FetchWorkers < 1 {
		return nil, fmt.Errorf("invalid FETCH_WORKERS: must be at least 1")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
