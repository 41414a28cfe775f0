package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
)

const (
	// OpenMeteoBaseURL is the Open-Meteo forecast endpoint. No API key is required.
	OpenMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

	// current_weather carries no humidity; readings report this instead.
	defaultHumidityPct = 50

	// Open-Meteo returns local ISO8601 times without seconds or zone.
	openMeteoTimeLayout = "2006-01-02T15:04"
)

// OpenMeteoProvider implements itinerary.WeatherProvider for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(httpCfg HTTPClientConfig, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = OpenMeteoBaseURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: httpCfg,
		circuit: newBreaker("openmeteo", httpCfg.Breaker),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) CurrentWeather(ctx context.Context, loc itinerary.Location) (itinerary.WeatherReading, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", formatCoord(loc.Lat))
		values.Set("longitude", formatCoord(loc.Lng))
		values.Set("current_weather", "true")
		values.Set("temperature_unit", "celsius")
		values.Set("windspeed_unit", "kmh")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	body, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return itinerary.WeatherReading{}, err
	}

	var payload struct {
		CurrentWeather json.RawMessage `json:"current_weather"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return itinerary.WeatherReading{}, &itinerary.UpstreamDataError{Provider: p.name, Reason: "malformed response", Err: err}
	}

	current, err := p.decodeCurrent(payload.CurrentWeather)
	if err != nil {
		return itinerary.WeatherReading{}, err
	}

	reading := itinerary.WeatherReading{
		Description:      DescribeWeatherCode(current.WeatherCode),
		Temperature:      *current.Temperature,
		FeelsLike:        *current.Temperature,
		Humidity:         defaultHumidityPct,
		WindSpeedKmh:     current.WindSpeed,
		WindDirectionDeg: current.WindDirection,
	}
	if ts, err := time.Parse(openMeteoTimeLayout, current.Time); err == nil {
		reading.ObservedAt = ts.UTC()
	}
	return reading, nil
}

type openMeteoCurrent struct {
	Temperature   *float64 `json:"temperature"`
	WindSpeed     float64  `json:"windspeed"`
	WindDirection float64  `json:"winddirection"`
	WeatherCode   int      `json:"weathercode"`
	Time          string   `json:"time"`
}

// decodeCurrent rejects a missing, null or empty current_weather block.
func (p *OpenMeteoProvider) decodeCurrent(raw json.RawMessage) (openMeteoCurrent, error) {
	var fields map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return openMeteoCurrent{}, &itinerary.UpstreamDataError{Provider: p.name, Reason: "malformed current_weather", Err: err}
		}
	}
	if len(fields) == 0 {
		return openMeteoCurrent{}, &itinerary.UpstreamDataError{Provider: p.name, Reason: "no current weather data returned"}
	}

	var current openMeteoCurrent
	if err := json.Unmarshal(raw, &current); err != nil {
		return openMeteoCurrent{}, &itinerary.UpstreamDataError{Provider: p.name, Reason: "malformed current_weather", Err: err}
	}
	if current.Temperature == nil {
		return openMeteoCurrent{}, &itinerary.UpstreamDataError{Provider: p.name, Reason: "current weather has no temperature"}
	}
	return current, nil
}
