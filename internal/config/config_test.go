package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"PORT", "HTTP_TIMEOUT", "FETCH_MIN_GAP", "FORECAST_TTL", "ARCHIVE_TTL", "CAPABILITIES_TTL", "FETCH_WORKERS", "CACHE_DB_PATH", "LOG_DEBUG"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.FetchWorkers != 1 || cfg.CacheDBPath != "" || cfg.LogDebug {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.HTTPTimeout != 30*time.Second || cfg.FetchMinGap != 250*time.Millisecond {
		t.Fatalf("unexpected fetch defaults %+v", cfg)
	}
	if cfg.ForecastTTL != time.Minute || cfg.ArchiveTTL != 24*time.Hour || cfg.CapabilitiesTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("FETCH_MIN_GAP", "1s")
	t.Setenv("FETCH_WORKERS", "4")
	t.Setenv("LOG_DEBUG", "true")
	t.Setenv("CACHE_DB_PATH", "/tmp/cache.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" || cfg.FetchMinGap != time.Second || cfg.FetchWorkers != 4 || !cfg.LogDebug || cfg.CacheDBPath != "/tmp/cache.db" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		key, value string
	}{
		{"HTTP_TIMEOUT", "soon"},
		{"ARCHIVE_TTL", "-1h"},
		{"FETCH_WORKERS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
