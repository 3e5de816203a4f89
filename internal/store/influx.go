package store

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const recommendationMeasurement = "irrigation_recommendation"

// InfluxConfig selects the InfluxDB target for exported records.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxExporter writes every evaluation record as a point, for dashboards.
// It is write-only; Recent is served by the primary store.
type InfluxExporter struct {
	client influxdb2.Client
	writer pointWriter
}

// NewInfluxExporter connects a blocking write API for cfg.
func NewInfluxExporter(cfg InfluxConfig) (*InfluxExporter, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx config incomplete")
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxExporter{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// Append writes rec as a single point.
func (e *InfluxExporter) Append(ctx context.Context, rec Record) error {
	if err := e.writer.WritePoint(ctx, RecordToPoint(rec)); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (e *InfluxExporter) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// RecordToPoint maps a record to the irrigation_recommendation measurement.
func RecordToPoint(rec Record) *write.Point {
	r := rec.Recommendation
	tags := map[string]string{
		"action":     string(r.Action),
		"trigger":    string(rec.Trigger),
		"efficiency": string(r.EfficiencyRating),
	}
	fields := map[string]interface{}{
		"irrigation_needed":       r.IrrigationNeeded,
		"confidence":              r.Confidence,
		"amount_liters_per_sqm":   r.AmountLitersPerSqm,
		"current_efficiency":      r.CurrentEfficiency,
		"evapotranspiration_risk": r.EvapotranspirationRisk,
		"temperature":             rec.Input.Temperature,
		"humidity":                rec.Input.Humidity,
		"soil_moisture_shallow":   rec.Input.SoilMoistureShallow,
		"soil_moisture_deep":      rec.Input.SoilMoistureDeep,
		"rainfall":                rec.Input.Rainfall,
		"hour":                    int64(rec.Input.Hour),
	}
	if r.Timing.OptimalHour != nil {
		fields["optimal_hour"] = int64(*r.Timing.OptimalHour)
	}
	return influxdb2.NewPoint(recommendationMeasurement, tags, fields, rec.Timestamp)
}
