package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
)

const (
	// GeoapifyBaseURL is the Geoapify Places API endpoint.
	GeoapifyBaseURL = "https://api.geoapify.com/v2/places"

	geoapifyCategories = "tourism.attraction,catering.restaurant"

	// geoapifyLimit bounds the upstream payload; callers truncate further.
	geoapifyLimit = 20

	unknownPlaceName = "Unknown"
)

// GeoapifyProvider implements itinerary.PlacesProvider for the Geoapify Places API.
type GeoapifyProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewGeoapifyProvider(httpCfg HTTPClientConfig, apiKey, baseURL string) *GeoapifyProvider {
	if baseURL == "" {
		baseURL = GeoapifyBaseURL
	}
	return &GeoapifyProvider{
		name:    "geoapify",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: httpCfg,
		circuit: newBreaker("geoapify", httpCfg.Breaker),
	}
}

func (p *GeoapifyProvider) Name() string {
	return p.name
}

// Search returns attractions and restaurants within radiusMeters of loc, in
// provider order.
func (p *GeoapifyProvider) Search(ctx context.Context, loc itinerary.Location, radiusMeters int) ([]itinerary.Place, error) {
	if p.apiKey == "" {
		return nil, &itinerary.UpstreamError{Provider: p.name, Err: errors.New("geoapify api key is not configured")}
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("categories", geoapifyCategories)
		values.Set("filter", fmt.Sprintf("circle:%s,%s,%d", formatCoord(loc.Lng), formatCoord(loc.Lat), radiusMeters))
		values.Set("limit", strconv.Itoa(geoapifyLimit))
		values.Set("apiKey", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	body, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}

	var payload geoapifyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &itinerary.UpstreamDataError{Provider: p.name, Reason: "malformed response", Err: err}
	}

	places := make([]itinerary.Place, 0, len(payload.Features))
	for _, f := range payload.Features {
		places = append(places, f.normalize())
	}
	return places, nil
}

// geoapifyResponse is the GeoJSON feature collection returned by Geoapify.
// Optional fields are pointers so absence can be told apart from zero values.
type geoapifyResponse struct {
	Features []geoapifyFeature `json:"features"`
}

type geoapifyFeature struct {
	Properties struct {
		Name         *string  `json:"name"`
		AddressLine2 *string  `json:"address_line2"`
		PlaceID      *string  `json:"place_id"`
		Categories   []string `json:"categories"`
		Rating       *float64 `json:"rating"`
		RatingCount  *int     `json:"rating_count"`
	} `json:"properties"`
	Geometry *struct {
		// GeoJSON order: [lng, lat].
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

func (f geoapifyFeature) normalize() itinerary.Place {
	props := f.Properties

	place := itinerary.Place{
		Name:        unknownPlaceName,
		Categories:  []string{},
		Rating:      props.Rating,
		RatingCount: props.RatingCount,
	}
	if props.Name != nil {
		place.Name = *props.Name
	}
	if props.AddressLine2 != nil {
		place.Vicinity = *props.AddressLine2
	}
	if props.PlaceID != nil {
		place.PlaceID = *props.PlaceID
	}
	if len(props.Categories) > 0 {
		place.Categories = append(place.Categories, props.Categories...)
	}
	if f.Geometry != nil && len(f.Geometry.Coordinates) >= 2 {
		place.Location = itinerary.Location{
			Lat: f.Geometry.Coordinates[1],
			Lng: f.Geometry.Coordinates[0],
		}
	}
	return place
}
