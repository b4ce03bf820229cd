package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// Upstream endpoints. Empty values fall back to the DWD defaults
	// compiled into the client.
	StationListURL string
	ForecastURL    string

	// HTTPTimeout bounds outbound upstream calls.
	HTTPTimeout time.Duration

	// StationCacheTTL bounds memoized station lookups; the upstream
	// table refreshes roughly once a day. ForecastCacheTTL matches
	// the shorter upstream forecast cadence.
	StationCacheTTL  time.Duration
	ForecastCacheTTL time.Duration

	// PrewarmEnabled turns on the periodic station-list refresh job.
	PrewarmEnabled bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.StationListURL = os.Getenv("DWD_STATION_LIST_URL")
	cfg.ForecastURL = os.Getenv("DWD_FORECAST_URL")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.StationCacheTTL, err = getenvDuration("STATION_CACHE_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.ForecastCacheTTL, err = getenvDuration("FORECAST_CACHE_TTL", "30m"); err != nil {
		return nil, err
	}
	cfg.PrewarmEnabled = os.Getenv("PREWARM_ENABLED") == "true"

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
