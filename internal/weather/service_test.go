package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/irrigation-advisor/internal/store"
	"github.com/i474232898/irrigation-advisor/internal/weather"
)

type stubProvider struct {
	name    string
	reading weather.ProviderReading
	err     error

	mu    sync.Mutex
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(_ context.Context, _ weather.Location) (weather.ProviderReading, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return weather.ProviderReading{}, p.err
	}
	r := p.reading
	r.ProviderName = p.name
	return r, nil
}

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var (
	plot  = weather.Location{City: "Kolkata", Country: "IN"}
	clock = time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return clock }

func TestFetchAndStoreAggregatesAndReportsFailures(t *testing.T) {
	memStore := store.NewMemoryStore(10, 0)
	var (
		mu     sync.Mutex
		failed []string
	)
	svc := weather.NewService(memStore, []weather.Provider{
		&stubProvider{name: "a", reading: weather.ProviderReading{TemperatureC: 30, HumidityPct: 60, PrecipMm: 0, Condition: weather.ConditionClear}},
		&stubProvider{name: "b", reading: weather.ProviderReading{TemperatureC: 34, HumidityPct: 40, PrecipMm: 2, Condition: weather.ConditionRain}},
		&stubProvider{name: "c", err: errors.New("boom")},
	}, plot,
		weather.WithClock(fixedClock),
		weather.WithFailureHook(func(p string) {
			mu.Lock()
			failed = append(failed, p)
			mu.Unlock()
		}),
	)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32.0, snap.Temperature)
	assert.Equal(t, 50.0, snap.Humidity)
	assert.Equal(t, 1.0, snap.PrecipMM)
	assert.Equal(t, clock, snap.Timestamp)
	assert.Len(t, snap.Providers, 2)
	assert.Equal(t, []string{"c"}, failed)

	latest, err := svc.GetLatest(plot)
	require.NoError(t, err)
	assert.Equal(t, snap.Temperature, latest.Temperature)
}

func TestFetchAndStoreErrors(t *testing.T) {
	memStore := store.NewMemoryStore(10, 0)

	_, err := weather.NewService(memStore, nil, plot).Refresh(context.Background())
	assert.ErrorIs(t, err, weather.ErrNoProviders)

	_, err = weather.NewService(memStore, []weather.Provider{&stubProvider{name: "a", err: errors.New("down")}}, plot).
		Refresh(context.Background())
	assert.ErrorIs(t, err, weather.ErrNoReadings)

	_, err = memStore.GetLatest(plot)
	assert.ErrorIs(t, err, store.ErrNotFound, "failed refresh must not store anything")
}

func TestLookupReusesFreshSnapshot(t *testing.T) {
	memStore := store.NewMemoryStore(10, 0)
	memStore.SaveSnapshot(plot, weather.WeatherSnapshot{Location: plot, Timestamp: clock.Add(-5 * time.Minute), Temperature: 27, Humidity: 55, PrecipMM: 0.4})

	p := &stubProvider{name: "a", reading: weather.ProviderReading{TemperatureC: 40}}
	svc := weather.NewService(memStore, []weather.Provider{p}, plot, weather.WithClock(fixedClock), weather.WithMaxAge(10*time.Minute))

	c := svc.Lookup(context.Background())
	require.True(t, c.Available())
	assert.Equal(t, 27.0, *c.Temperature)
	assert.True(t, c.Rainfall)
	assert.Equal(t, 0.4, c.RainfallMm)
	assert.Zero(t, p.Calls())
}

func TestLookupRefreshesStaleSnapshot(t *testing.T) {
	memStore := store.NewMemoryStore(10, 0)
	memStore.SaveSnapshot(plot, weather.WeatherSnapshot{Location: plot, Timestamp: clock.Add(-2 * time.Hour), Temperature: 27})

	p := &stubProvider{name: "a", reading: weather.ProviderReading{TemperatureC: 36, HumidityPct: 20}}
	svc := weather.NewService(memStore, []weather.Provider{p}, plot, weather.WithClock(fixedClock), weather.WithMaxAge(30*time.Minute))

	c := svc.Lookup(context.Background())
	require.True(t, c.Available())
	assert.Equal(t, 36.0, *c.Temperature)
	assert.False(t, c.Rainfall)
	assert.Equal(t, 1, p.Calls())
}

// gatedProvider blocks every fetch until release is closed.
type gatedProvider struct {
	stubProvider
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *gatedProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return p.stubProvider.Fetch(ctx, loc)
}

func TestLookupSharesConcurrentRefresh(t *testing.T) {
	p := &gatedProvider{
		stubProvider: stubProvider{name: "slow", reading: weather.ProviderReading{TemperatureC: 31, HumidityPct: 45}},
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	svc := weather.NewService(store.NewMemoryStore(10, 0), []weather.Provider{p}, plot, weather.WithClock(fixedClock))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]weather.Conditions, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Lookup(context.Background())
		}(i)
	}

	<-p.started
	// Let the remaining callers queue up behind the in-flight fetch.
	time.Sleep(100 * time.Millisecond)
	close(p.release)
	wg.Wait()

	assert.Equal(t, 1, p.Calls())
	for _, c := range results {
		require.True(t, c.Available())
		assert.Equal(t, 31.0, *c.Temperature)
	}
}

func TestLookupWithoutDataReturnsEmptyConditions(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(10, 0),
		[]weather.Provider{&stubProvider{name: "a", err: errors.New("timeout")}}, plot)

	c := svc.Lookup(context.Background())
	assert.False(t, c.Available())
	assert.False(t, c.Rainfall)
}

func TestAggregateReadingsTieGoesToFirstCondition(t *testing.T) {
	snap := weather.AggregateReadings(plot, []weather.ProviderReading{
		{Condition: weather.ConditionCloudy},
		{Condition: weather.ConditionRain},
	}, clock)
	assert.Equal(t, weather.ConditionCloudy, snap.Condition)

	empty := weather.AggregateReadings(plot, nil, clock)
	assert.Equal(t, weather.ConditionUnknown, empty.Condition)
	assert.Equal(t, clock, empty.Timestamp)
}
