package itinerary

import (
	"fmt"
	"time"
)

// Search bounds accepted by the places provider.
const (
	DefaultRadiusKm   = 5
	MinRadiusKm       = 1
	MaxRadiusKm       = 30
	DefaultMaxResults = 12
	MinMaxResults     = 1
	MaxMaxResults     = 20
)

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lng)
}

// Validate reports whether the coordinate lies within the valid ranges.
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return &ValidationError{Field: "lat", Reason: "must be between -90 and 90"}
	}
	if l.Lng < -180 || l.Lng > 180 {
		return &ValidationError{Field: "lng", Reason: "must be between -180 and 180"}
	}
	return nil
}

// Address is a free-form postal address that can be resolved to a Location.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// SearchQuery is a Location plus the search window. Radius and result
// limit are always inside the provider-acceptable ranges.
type SearchQuery struct {
	Location   Location
	RadiusKm   int
	MaxResults int
}

// NewSearchQuery builds a SearchQuery, clamping radius and limit.
func NewSearchQuery(loc Location, radiusKm, maxResults int) SearchQuery {
	return SearchQuery{
		Location:   loc,
		RadiusKm:   clamp(radiusKm, MinRadiusKm, MaxRadiusKm),
		MaxResults: clamp(maxResults, MinMaxResults, MaxMaxResults),
	}
}

// RadiusMeters converts the search radius to the unit the places provider expects.
func (q SearchQuery) RadiusMeters() int {
	return q.RadiusKm * 1000
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Place is a normalized point of interest.
type Place struct {
	Name        string   `json:"name"`
	Vicinity    string   `json:"vicinity"`
	Location    Location `json:"location"`
	Categories  []string `json:"categories"`
	Rating      *float64 `json:"rating"`
	PlaceID     string   `json:"place_id,omitempty"`
	RatingCount *int     `json:"user_ratings_total,omitempty"`
}

// WeatherReading is the normalized current-conditions view.
type WeatherReading struct {
	Description      string    `json:"description"`
	Temperature      float64   `json:"temperature"`
	FeelsLike        float64   `json:"feels_like"`
	Humidity         int       `json:"humidity"`
	WindSpeedKmh     float64   `json:"wind_speed_kmh"`
	WindDirectionDeg float64   `json:"wind_direction_deg"`
	ObservedAt       time.Time `json:"observed_at,omitzero"`
}

// Meta describes how an AggregatedContext was produced.
type Meta struct {
	Provider       string `json:"provider"`
	RequestTimeMs  int64  `json:"request_time_ms"`
	PlacesCount    int    `json:"places_count"`
	SearchRadiusKm int    `json:"search_radius_km"`
}

// AggregatedContext is the combined places and weather payload returned to callers.
type AggregatedContext struct {
	Attractions []Place        `json:"attractions"`
	Weather     WeatherReading `json:"weather"`
	Meta        Meta           `json:"meta"`
}
