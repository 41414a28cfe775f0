package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
)

var (
	// ErrNotFound is returned when no probe results exist for a location.
	ErrNotFound = errors.New("no probe results for location")
)

// ProbeResult is the outcome of one scheduled upstream probe.
type ProbeResult struct {
	Location      itinerary.Location `json:"location"`
	Timestamp     time.Time          `json:"timestamp"` // always UTC
	OK            bool               `json:"ok"`
	Error         string             `json:"error,omitempty"`
	Source        string             `json:"source,omitempty"`
	RequestTimeMs int64              `json:"request_time_ms"`
	PlacesCount   int                `json:"places_count"`
}

// ProbeHistory holds a time-ordered list of probe results for a location.
type ProbeHistory struct {
	Results []ProbeResult
}

// MemoryStore is a concurrency-safe in-memory store of probe results.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: history
	data map[string]*ProbeHistory

	// retention configuration
	maxHistory int           // max number of results per location
	maxAge     time.Duration // optional max age for results
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ProbeHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save appends a result for its location and enforces retention.
func (s *MemoryStore) Save(result ProbeResult) {
	key := result.Location.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &ProbeHistory{}
		s.data[key] = history
	}

	history.Results = append(history.Results, result)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Results) > s.maxHistory {
		over := len(history.Results) - s.maxHistory
		history.Results = history.Results[over:]
	}

	// Enforce retention by age. The newest result is always kept.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Results)-1; i++ {
			if !history.Results[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.Results = history.Results[i:]
	}
}

// GetLatest returns the most recent result for a location.
func (s *MemoryStore) GetLatest(loc itinerary.Location) (ProbeResult, error) {
	key := loc.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Results) == 0 {
		return ProbeResult{}, ErrNotFound
	}
	return history.Results[len(history.Results)-1], nil
}

// GetRange returns all results for a location between from and to (inclusive).
func (s *MemoryStore) GetRange(loc itinerary.Location, from, to time.Time) ([]ProbeResult, error) {
	key := loc.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Results) == 0 {
		return nil, ErrNotFound
	}

	var result []ProbeResult
	for _, r := range history.Results {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// Latest returns the most recent result of every probed location, ordered by key.
func (s *MemoryStore) Latest() []ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ProbeResult, 0, len(keys))
	for _, k := range keys {
		if h := s.data[k]; len(h.Results) > 0 {
			out = append(out, h.Results[len(h.Results)-1])
		}
	}
	return out
}
