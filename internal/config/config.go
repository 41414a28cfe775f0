package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
)

type AppConfig struct {
	GeoapifyAPIKey   string
	GeoapifyBaseURL  string
	OpenMeteoBaseURL string

	// GeocoderAPIKey enables address lookups when set.
	GeocoderAPIKey string

	// HTTPTimeout bounds each outbound attempt; retries get a fresh timeout.
	HTTPTimeout    time.Duration
	HTTPMaxRetries int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	CircuitBreaker bool

	// Upstream probes.
	ProbeLocations  []itinerary.Location
	ProbeInterval   time.Duration
	ProbeMaxHistory int           // max number of results per location (0 = unlimited)
	ProbeMaxAge     time.Duration // max age of results (0 = unlimited)

	LogLevel slog.Level
	Port     string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.GeoapifyAPIKey = os.Getenv("GEOAPIFY_API_KEY")
	if cfg.GeoapifyAPIKey == "" {
		return nil, fmt.Errorf("GEOAPIFY_API_KEY is required")
	}
	cfg.GeoapifyBaseURL = getenvDefault("GEOAPIFY_BASE_URL", "https://api.geoapify.com/v2/places")
	cfg.OpenMeteoBaseURL = getenvDefault("OPEN_METEO_BASE_URL", "https://api.open-meteo.com/v1/forecast")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	timeoutSecs, err := getenvInt("HTTP_TIMEOUT_SECONDS", 6)
	if err != nil {
		return nil, err
	}
	if timeoutSecs <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSecs) * time.Second

	if cfg.HTTPMaxRetries, err = getenvInt("HTTP_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.HTTPMaxRetries < 0 {
		return nil, fmt.Errorf("HTTP_MAX_RETRIES must not be negative")
	}
	if cfg.BackoffInitial, err = getenvDuration("HTTP_BACKOFF_INITIAL", "500ms"); err != nil {
		return nil, err
	}
	if cfg.BackoffMax, err = getenvDuration("HTTP_BACKOFF_MAX", "5s"); err != nil {
		return nil, err
	}
	if cfg.CircuitBreaker, err = getenvBool("CIRCUIT_BREAKER_ENABLED", false); err != nil {
		return nil, err
	}

	// Probe interval: default 15 minutes.
	if cfg.ProbeInterval, err = getenvDuration("PROBE_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	// roughly 24h at 15-minute intervals
	if cfg.ProbeMaxHistory, err = getenvInt("PROBE_MAX_HISTORY", 96); err != nil {
		return nil, err
	}
	if cfg.ProbeMaxAge, err = getenvDuration("PROBE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.ProbeLocations, err = parseLocations(os.Getenv("PROBE_LOCATIONS")); err != nil {
		return nil, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// parseLocations parses "lat,lng;lat,lng".
func parseLocations(s string) ([]itinerary.Location, error) {
	var locs []itinerary.Location
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid PROBE_LOCATIONS entry %q: want lat,lng", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PROBE_LOCATIONS latitude %q: %w", parts[0], err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PROBE_LOCATIONS longitude %q: %w", parts[1], err)
		}
		loc := itinerary.Location{Lat: lat, Lng: lng}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid PROBE_LOCATIONS entry %q: %w", pair, err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
