// Package advisor turns requests into persisted irrigation recommendations.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/i474232898/irrigation-advisor/internal/irrigation"
	"github.com/i474232898/irrigation-advisor/internal/metrics"
	"github.com/i474232898/irrigation-advisor/internal/store"
	"github.com/i474232898/irrigation-advisor/internal/weather"
)

// Fallbacks used when neither the request, a sensor nor the weather supplies a value.
const (
	DefaultTemperature = 30.0
	DefaultHumidity    = 50.0
)

// ErrInvalidInput wraps validation failures of the resolved reading.
var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New()

// Recommender is satisfied by *irrigation.Engine.
type Recommender interface {
	Recommend(ctx context.Context, r irrigation.Reading) (irrigation.Recommendation, error)
}

// WeatherLookup is satisfied by *weather.Service.
type WeatherLookup interface {
	Lookup(ctx context.Context) weather.Conditions
}

// Dispatcher is satisfied by *telemetry.Controller.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec store.Record) (bool, error)
}

// Service evaluates requests end to end.
type Service struct {
	engine   Recommender
	weather  WeatherLookup
	records  store.RecordStore
	readings store.ReadingStore
	readAge  time.Duration
	control  Dispatcher
	metrics  *metrics.Metrics

	logger *slog.Logger
	now    func() time.Time
	tz     *time.Location
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithReadings lets unset inputs fall back to the latest sensor report.
// Reports older than maxAge are ignored; maxAge <= 0 accepts any age.
func WithReadings(r store.ReadingStore, maxAge time.Duration) Option {
	return func(s *Service) {
		s.readings = r
		s.readAge = maxAge
	}
}

// WithDispatcher publishes pump commands for IRRIGATE_NOW results.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.control = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTimezone sets the zone used to derive the default hour and month.
func WithTimezone(tz *time.Location) Option {
	return func(s *Service) {
		if tz != nil {
			s.tz = tz
		}
	}
}

// New creates a Service.
func New(engine Recommender, lookup WeatherLookup, records store.RecordStore, opts ...Option) *Service {
	s := &Service{
		engine:  engine,
		weather: lookup,
		records: records,
		logger:  slog.Default(),
		now:     time.Now,
		tz:      time.Local,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate resolves req, runs the engine and persists the result. Persistence
// and control failures are logged; only input and predictor errors are returned.
func (s *Service) Evaluate(ctx context.Context, req Request, trigger store.Trigger) (store.Record, error) {
	reading, conditions, err := s.Resolve(ctx, req)
	if err != nil {
		return store.Record{}, err
	}

	rec, err := s.engine.Recommend(ctx, reading)
	if err != nil {
		return store.Record{}, err
	}

	record := store.Record{
		ID:             s.newID(),
		Timestamp:      s.now().UTC(),
		Trigger:        trigger,
		Input:          reading,
		Weather:        conditions,
		Recommendation: rec,
	}

	if s.metrics != nil {
		s.metrics.Recommendations.WithLabelValues(string(rec.Action)).Inc()
	}

	if err := s.records.Append(ctx, record); err != nil {
		s.logger.Error("failed to persist recommendation", "id", record.ID, "error", err)
	}

	if s.control != nil {
		if _, err := s.control.Dispatch(ctx, record); err != nil {
			s.logger.Error("failed to dispatch control command", "id", record.ID, "error", err)
		}
	}

	s.logger.Info("recommendation produced",
		"id", record.ID,
		"trigger", trigger,
		"action", rec.Action,
		"confidence", rec.Confidence,
		"amount", rec.AmountLitersPerSqm,
	)
	return record, nil
}

// Resolve fills unset request fields and validates the result.
// Order: explicit value, latest sensor report, weather, hard default.
// Rainfall prefers the weather flag over the sensor when weather is available.
func (s *Service) Resolve(ctx context.Context, req Request) (irrigation.Reading, weather.Conditions, error) {
	sensor := s.latestReading(ctx)
	conditions := s.weather.Lookup(ctx)
	now := s.now().In(s.tz)

	reading := irrigation.Reading{
		SoilMoistureShallow: pickFloat(0, req.SoilMoistureShallow, sensor.SoilMoistureShallow),
		SoilMoistureDeep:    pickFloat(0, req.SoilMoistureDeep, sensor.SoilMoistureDeep),
		Temperature:         pickFloat(DefaultTemperature, req.Temperature, sensor.Temperature, conditions.Temperature),
		Humidity:            pickFloat(DefaultHumidity, req.Humidity, sensor.Humidity, conditions.Humidity),
		Rainfall:            s.resolveRainfall(req, sensor, conditions),
		Hour:                pickInt(now.Hour(), req.Hour),
		Month:               pickInt(int(now.Month()), req.Month),
	}

	if err := validate.Struct(reading); err != nil {
		return irrigation.Reading{}, conditions, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return reading, conditions, nil
}

func (s *Service) resolveRainfall(req Request, sensor store.SensorReading, c weather.Conditions) bool {
	switch {
	case req.Rainfall != nil:
		return *req.Rainfall > 0
	case c.Available():
		return c.Rainfall
	case sensor.Rainfall != nil:
		return *sensor.Rainfall > 0
	default:
		return false
	}
}

func (s *Service) latestReading(ctx context.Context) store.SensorReading {
	if s.readings == nil {
		return store.SensorReading{}
	}
	r, err := s.readings.LatestReading(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("latest sensor reading unavailable", "error", err)
		}
		return store.SensorReading{}
	}
	if s.readAge > 0 {
		if age := s.now().Sub(r.ReceivedAt); age > s.readAge {
			s.logger.Debug("ignoring stale sensor reading", "id", r.ID, "age", age)
			return store.SensorReading{}
		}
	}
	return r
}

// History returns the latest persisted records, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]store.Record, error) {
	return s.records.Recent(ctx, limit)
}

// TimingReport is the 24-hour table together with the inputs it was built from.
type TimingReport struct {
	Analysis   irrigation.DailyAnalysis
	Conditions weather.Conditions
	// Date is the local date in the configured zone.
	Date time.Time
}

// TimingAnalysis builds the 24-hour efficiency table for current weather,
// falling back to the default temperature and humidity.
func (s *Service) TimingAnalysis(ctx context.Context) TimingReport {
	c := s.weather.Lookup(ctx)
	temp := pickFloat(DefaultTemperature, c.Temperature)
	humidity := pickFloat(DefaultHumidity, c.Humidity)
	return TimingReport{
		Analysis:   irrigation.AnalyzeDay(temp, humidity),
		Conditions: c,
		Date:       s.now().In(s.tz),
	}
}

func pickFloat(def float64, vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

func pickInt(def int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}
