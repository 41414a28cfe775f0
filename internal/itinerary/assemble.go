package itinerary

import "time"

// AssembleContext combines a provider-ordered place list and a weather
// reading into an AggregatedContext. Places beyond q.MaxResults are dropped;
// the remaining ones keep provider order.
func AssembleContext(q SearchQuery, places []Place, reading WeatherReading, provider string, elapsed time.Duration) AggregatedContext {
	n := len(places)
	if n > q.MaxResults {
		n = q.MaxResults
	}

	attractions := make([]Place, 0, n)
	attractions = append(attractions, places[:n]...)

	return AggregatedContext{
		Attractions: attractions,
		Weather:     reading,
		Meta: Meta{
			Provider:       provider,
			RequestTimeMs:  elapsed.Round(time.Millisecond).Milliseconds(),
			PlacesCount:    len(attractions),
			SearchRadiusKm: q.RadiusKm,
		},
	}
}
