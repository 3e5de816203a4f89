package weather

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoProviders is returned when the service has nothing to fetch from.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrNoReadings is returned when every provider failed.
	ErrNoReadings = errors.New("no successful provider readings")
)

const defaultMaxAge = 30 * time.Minute

// Service orchestrates fetching from multiple providers and persisting snapshots
// for the tracked location.
type Service struct {
	store     Store
	providers []Provider
	location  Location
	maxAge    time.Duration

	logger    *slog.Logger
	now       func() time.Time
	onFailure func(provider string)

	refreshes singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMaxAge sets how long a stored snapshot satisfies Lookup.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithFailureHook registers a callback invoked for every failed provider fetch.
func WithFailureHook(fn func(provider string)) Option {
	return func(s *Service) {
		s.onFailure = fn
	}
}

// NewService creates a new Service tracking loc.
func NewService(store Store, providers []Provider, loc Location, opts ...Option) *Service {
	s := &Service{
		store:     store,
		providers: providers,
		location:  loc,
		maxAge:    defaultMaxAge,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the tracked location.
func (s *Service) Location() Location {
	return s.location
}

// Refresh fetches and stores a snapshot for the tracked location. Concurrent
// callers share a single in-flight fetch.
func (s *Service) Refresh(ctx context.Context) (WeatherSnapshot, error) {
	v, err, shared := s.refreshes.Do(s.location.Key(), func() (any, error) {
		return s.FetchAndStore(ctx, s.location)
	})
	if err != nil {
		return WeatherSnapshot{}, err
	}
	if shared {
		s.logger.Debug("weather refresh shared", "location", s.location.Key())
	}
	return v.(WeatherSnapshot), nil
}

// FetchAndStore fetches data from all providers concurrently for the given location,
// aggregates successful readings, and stores a snapshot. When every provider
// fails the last good snapshot is left untouched.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) (WeatherSnapshot, error) {
	if len(s.providers) == 0 {
		return WeatherSnapshot{}, ErrNoProviders
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []ProviderReading
	)

	for _, p := range s.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)
			if err != nil {
				// Partial success is fine.
				s.logger.Warn("weather provider fetch failed", "provider", p.Name(), "location", loc.Key(), "error", err)
				if s.onFailure != nil {
					s.onFailure(p.Name())
				}
				return
			}

			mu.Lock()
			readings = append(readings, r)
			mu.Unlock()
		}(p)
	}

	wg.Wait()

	if len(readings) == 0 {
		return WeatherSnapshot{}, ErrNoReadings
	}

	snapshot := AggregateReadings(loc, readings, s.now())
	s.store.SaveSnapshot(loc, snapshot)
	s.logger.Debug("weather snapshot stored",
		"location", loc.Key(),
		"providers", len(readings),
		"temperature", snapshot.Temperature,
		"humidity", snapshot.Humidity,
		"precip_mm", snapshot.PrecipMM,
	)
	return snapshot, nil
}

// Lookup returns current conditions for the tracked location. A stored
// snapshot younger than the max age is reused; otherwise providers are queried.
// Lookup never fails: without data it returns empty Conditions.
func (s *Service) Lookup(ctx context.Context) Conditions {
	if latest, err := s.store.GetLatest(s.location); err == nil {
		if s.now().Sub(latest.Timestamp) <= s.maxAge {
			return ConditionsFrom(latest)
		}
	}

	snapshot, err := s.Refresh(ctx)
	if err != nil {
		s.logger.Warn("weather lookup failed, using defaults", "location", s.location.Key(), "error", err)
		return Conditions{}
	}
	return ConditionsFrom(snapshot)
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(loc Location) (WeatherSnapshot, error) {
	return s.store.GetLatest(loc)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(loc Location, from, to time.Time) ([]WeatherSnapshot, error) {
	return s.store.GetRange(loc, from, to)
}
