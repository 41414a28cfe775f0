package itinerary

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/trip-context-aggregation/internal/obs"
)

// Service orchestrates the places and weather lookups for a single request.
// It holds no per-request state.
type Service struct {
	places   PlacesProvider
	weather  WeatherProvider
	geocoder Geocoder
	metrics  *obs.Metrics
	logger   *slog.Logger
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithGeocoder enables address resolution.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *obs.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service.
func NewService(places PlacesProvider, weather WeatherProvider, opts ...Option) *Service {
	s := &Service{
		places:  places,
		weather: weather,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProviderLabel identifies the provider pair in response metadata.
func (s *Service) ProviderLabel() string {
	return s.places.Name() + "_" + s.weather.Name()
}

// GeocoderEnabled reports whether Resolve can be used.
func (s *Service) GeocoderEnabled() bool {
	return s.geocoder != nil
}

// BuildContext fetches places and weather for q concurrently and joins them.
// Either both lookups succeed or an *AggregationError is returned.
func (s *Service) BuildContext(ctx context.Context, q SearchQuery) (AggregatedContext, error) {
	if err := q.Location.Validate(); err != nil {
		return AggregatedContext{}, err
	}

	start := time.Now()

	var (
		places  []Place
		reading WeatherReading
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.places.Search(gctx, q.Location, q.RadiusMeters())
		if err != nil {
			return &AggregationError{Source: "places", Err: err}
		}
		places = p
		return nil
	})
	g.Go(func() error {
		r, err := s.weather.CurrentWeather(gctx, q.Location)
		if err != nil {
			return &AggregationError{Source: "weather", Err: err}
		}
		reading = r
		return nil
	})

	if err := g.Wait(); err != nil {
		elapsed := time.Since(start)
		s.metrics.ObserveContextRequest("error", elapsed)
		s.logger.Error("context aggregation failed",
			"location", q.Location.Key(),
			"radius_km", q.RadiusKm,
			"error", err)
		return AggregatedContext{}, err
	}

	elapsed := time.Since(start)
	s.metrics.ObserveContextRequest("ok", elapsed)

	out := AssembleContext(q, places, reading, s.ProviderLabel(), elapsed)
	s.logger.Debug("context aggregated",
		"location", q.Location.Key(),
		"places_upstream", len(places),
		"places_count", out.Meta.PlacesCount,
		"request_time_ms", out.Meta.RequestTimeMs)

	return out, nil
}

// Resolve turns an address into a Location using the configured geocoder.
func (s *Service) Resolve(ctx context.Context, addr Address) (Location, error) {
	if s.geocoder == nil {
		return Location{}, ErrGeocoderDisabled
	}
	loc, err := s.geocoder.Geocode(ctx, addr)
	if err != nil {
		return Location{}, err
	}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}
