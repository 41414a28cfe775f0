package itinerary

import (
	"context"
)

// PlacesProvider abstracts a places-of-interest source (e.g. Geoapify).
type PlacesProvider interface {
	Name() string
	Search(ctx context.Context, loc Location, radiusMeters int) ([]Place, error)
}

// WeatherProvider abstracts a current-conditions source (e.g. Open-Meteo).
type WeatherProvider interface {
	Name() string
	CurrentWeather(ctx context.Context, loc Location) (WeatherReading, error)
}

// Geocoder resolves a postal address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, addr Address) (Location, error)
}
