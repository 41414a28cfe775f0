package providers

import (
	"context"
	"errors"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
)

var errNoAddress = errors.New("address must include a city")

// geocoderMu guards the package-level API key of kelvins/geocoder.
var geocoderMu sync.Mutex

// GoogleGeocoder resolves addresses through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey, lookup: geocoder.Geocoding}
}

// Geocode resolves addr. The underlying client has no context support, so
// ctx is only checked before and after the lookup.
func (g *GoogleGeocoder) Geocode(ctx context.Context, addr itinerary.Address) (itinerary.Location, error) {
	if addr.City == "" {
		return itinerary.Location{}, &itinerary.ValidationError{Field: "address.city", Reason: errNoAddress.Error()}
	}
	if g.apiKey == "" {
		return itinerary.Location{}, &itinerary.UpstreamError{Provider: "geocoder", Err: errors.New("geocoder api key is not configured")}
	}
	if err := ctx.Err(); err != nil {
		return itinerary.Location{}, err
	}

	geocoderMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := g.lookup(geocoder.Address{
		Street:  addr.Street,
		City:    addr.City,
		State:   addr.State,
		Country: addr.Country,
	})
	geocoderMu.Unlock()
	if err != nil {
		return itinerary.Location{}, &itinerary.UpstreamError{Provider: "geocoder", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return itinerary.Location{}, err
	}

	return itinerary.Location{Lat: loc.Latitude, Lng: loc.Longitude}, nil
}
