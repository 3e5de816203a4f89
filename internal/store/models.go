package store

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/irrigation-advisor/internal/irrigation"
	"github.com/i474232898/irrigation-advisor/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given query.
	ErrNotFound = errors.New("not found")
)

// Trigger records what caused an evaluation.
type Trigger string

const (
	TriggerAPI       Trigger = "api"
	TriggerScheduler Trigger = "scheduler"
)

// Record is one persisted evaluation: the recommendation together with the
// inputs and weather it was computed from.
type Record struct {
	ID             string                    `json:"id"`
	Timestamp      time.Time                 `json:"timestamp"`
	Trigger        Trigger                   `json:"trigger"`
	Input          irrigation.Reading        `json:"input"`
	Weather        weather.Conditions        `json:"weather"`
	Recommendation irrigation.Recommendation `json:"recommendation"`
}

// SensorReading is a field-device report. Devices may omit any field.
// MessageID is an optional device-assigned id; a repeat of it is a redelivery.
type SensorReading struct {
	ID                  string    `json:"id"`
	ReceivedAt          time.Time `json:"received_at"`
	MessageID           string    `json:"Message_Id,omitempty" validate:"omitempty,max=128"`
	SoilMoistureShallow *float64  `json:"Soil_Moisture_Shallow,omitempty" validate:"omitempty,gte=0"`
	SoilMoistureDeep    *float64  `json:"Soil_Moisture_Deep,omitempty" validate:"omitempty,gte=0"`
	Temperature         *float64  `json:"Atmospheric_Temp,omitempty"`
	Humidity            *float64  `json:"Humidity,omitempty" validate:"omitempty,gte=0,lte=100"`
	Rainfall            *float64  `json:"Rainfall,omitempty" validate:"omitempty,gte=0"`
	Hour                *int      `json:"Hour,omitempty" validate:"omitempty,gte=0,lte=23"`
	Month               *int      `json:"Month,omitempty" validate:"omitempty,gte=1,lte=12"`
}

// Empty reports whether the report carries no measurement at all.
func (r SensorReading) Empty() bool {
	return r.SoilMoistureShallow == nil && r.SoilMoistureDeep == nil &&
		r.Temperature == nil && r.Humidity == nil && r.Rainfall == nil
}

// Appender accepts evaluation records.
type Appender interface {
	Append(ctx context.Context, rec Record) error
}

// RecordStore is the append-only evaluation log.
type RecordStore interface {
	Appender
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// ReadingStore keeps sensor reports.
type ReadingStore interface {
	SaveReading(ctx context.Context, r SensorReading) error
	// LatestReading returns the most recently received report or ErrNotFound.
	LatestReading(ctx context.Context) (SensorReading, error)
}
