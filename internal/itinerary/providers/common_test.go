package providers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
)

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := newStubServer(t, jsonHandler(http.StatusInternalServerError, `{}`))

	cfg := testHTTPConfig(t)
	cfg.Breaker = true
	p := NewGeoapifyProvider(cfg, "k", srv.URL)

	for i := 0; i < 2; i++ {
		if _, err := p.Search(context.Background(), itinerary.Location{}, 1000); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if hits := srv.hits.Load(); hits != 6 {
		t.Fatalf("expected 6 attempts before trip, got %d", hits)
	}

	_, err := p.Search(context.Background(), itinerary.Location{}, 1000)
	if !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if hits := srv.hits.Load(); hits != 6 {
		t.Fatalf("open breaker must not reach upstream, got %d attempts", hits)
	}
}

func TestDoRequestWithResilienceRejectsBadConfig(t *testing.T) {
	build := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid", nil)
	}

	if _, err := doRequestWithResilience(context.Background(), "x", HTTPClientConfig{}, nil, build); !errors.Is(err, errNoHTTPClient) {
		t.Errorf("nil client: got %v", err)
	}

	cfg := HTTPClientConfig{Client: http.DefaultClient, Backoff: BackoffConfig{MaxRetries: -1, InitialInterval: time.Millisecond}}
	if _, err := doRequestWithResilience(context.Background(), "x", cfg, nil, build); !errors.Is(err, errInvalidConfig) {
		t.Errorf("negative retries: got %v", err)
	}
}

func TestDoRequestWithResilienceStopsOnCancelledContext(t *testing.T) {
	srv := newStubServer(t, jsonHandler(http.StatusServiceUnavailable, `{}`))

	cfg := testHTTPConfig(t)
	cfg.Backoff.InitialInterval = time.Second
	cfg.Backoff.MaxInterval = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	p := NewOpenMeteoProvider(cfg, srv.URL)
	if _, err := p.CurrentWeather(ctx, itinerary.Location{}); err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Fatalf("retry loop ignored context cancellation (%v)", elapsed)
	}
}

func TestGoogleGeocoder(t *testing.T) {
	g := NewGoogleGeocoder("key")
	var gotKey string
	var gotAddr geocoder.Address
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		gotKey = geocoder.ApiKey
		gotAddr = a
		return geocoder.Location{Latitude: 48.8566, Longitude: 2.3522}, nil
	}

	loc, err := g.Geocode(context.Background(), itinerary.Address{City: "Paris", Country: "France"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Lat != 48.8566 || loc.Lng != 2.3522 {
		t.Errorf("unexpected location: %+v", loc)
	}
	if gotKey != "key" || gotAddr.City != "Paris" || gotAddr.Country != "France" {
		t.Errorf("lookup called with key=%q addr=%+v", gotKey, gotAddr)
	}
}

func TestGoogleGeocoderErrors(t *testing.T) {
	g := NewGoogleGeocoder("key")
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("ZERO_RESULTS")
	}

	var vErr *itinerary.ValidationError
	if _, err := g.Geocode(context.Background(), itinerary.Address{}); !errors.As(err, &vErr) {
		t.Errorf("missing city: expected ValidationError, got %v", err)
	}

	var upErr *itinerary.UpstreamError
	if _, err := g.Geocode(context.Background(), itinerary.Address{City: "Nowhere"}); !errors.As(err, &upErr) {
		t.Errorf("lookup failure: expected UpstreamError, got %v", err)
	}

	if _, err := NewGoogleGeocoder("").Geocode(context.Background(), itinerary.Address{City: "Paris"}); !errors.As(err, &upErr) {
		t.Errorf("missing key: expected UpstreamError, got %v", err)
	}
}
