package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/trip-context-aggregation/internal/itinerary"
	"github.com/i474232898/trip-context-aggregation/internal/store"
)

// probeTimeout bounds one probe, covering both lookups and their retries.
const probeTimeout = 30 * time.Second

// ContextBuilder is the part of itinerary.Service the scheduler needs.
type ContextBuilder interface {
	BuildContext(ctx context.Context, q itinerary.SearchQuery) (itinerary.AggregatedContext, error)
}

// Scheduler periodically probes the upstream providers for configured locations
// and records the outcome.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   ContextBuilder
	store     *store.MemoryStore
	locations []itinerary.Location
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(locations []itinerary.Location, interval time.Duration, service ContextBuilder, results *store.MemoryStore, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		service:   service,
		store:     results,
		locations: locations,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("scheduler: no probe locations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce probes every configured location concurrently and waits for all of them.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Debug("scheduler: running probe job", "locations", len(s.locations))

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.probe(ctx, loc)
		}()
	}
	wg.Wait()

	s.logger.Debug("scheduler: completed probe job")
}

func (s *Scheduler) probe(ctx context.Context, loc itinerary.Location) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	q := itinerary.NewSearchQuery(loc, itinerary.DefaultRadiusKm, itinerary.DefaultMaxResults)
	start := time.Now()
	out, err := s.service.BuildContext(ctx, q)

	result := ProbeResultFor(loc, start, time.Since(start), out, err)
	if err != nil {
		s.logger.Warn("scheduler: probe failed", "location", loc.Key(), "error", err)
	}
	s.store.Save(result)
}

// ProbeResultFor converts a BuildContext outcome into a store record.
func ProbeResultFor(loc itinerary.Location, at time.Time, elapsed time.Duration, out itinerary.AggregatedContext, err error) store.ProbeResult {
	result := store.ProbeResult{
		Location:      loc,
		Timestamp:     at.UTC(),
		OK:            err == nil,
		RequestTimeMs: elapsed.Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		var aggErr *itinerary.AggregationError
		if errors.As(err, &aggErr) {
			result.Source = aggErr.Source
		}
		return result
	}
	result.PlacesCount = out.Meta.PlacesCount
	return result
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
