package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/i474232898/irrigation-advisor/internal/irrigation"
	"github.com/i474232898/irrigation-advisor/internal/metrics"
	"github.com/i474232898/irrigation-advisor/internal/store"
)

// Publisher sends a payload to a topic. *Client implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, payload []byte) error
}

// Command is the pump instruction understood by the field controller.
// Duration is the relay on-time in seconds.
type Command struct {
	IrrigationNeeded bool      `json:"irrigation_needed"`
	Duration         int       `json:"duration"`
	AreaM2           float64   `json:"area_m2"`
	PumpFlowLPM      float64   `json:"pump_flow_lpm"`
	LitersTotal      int       `json:"liters_total"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewCommand converts a per-square-metre amount into a pump run for the field.
func NewCommand(litersPerSqm, areaM2, pumpFlowLPM float64, ts time.Time) Command {
	total := litersPerSqm * areaM2
	return Command{
		IrrigationNeeded: true,
		Duration:         int(math.Round(total / pumpFlowLPM * 60)),
		AreaM2:           areaM2,
		PumpFlowLPM:      pumpFlowLPM,
		LitersTotal:      int(math.Round(total)),
		Timestamp:        ts,
	}
}

// Controller publishes pump commands for actionable recommendations.
type Controller struct {
	pub         Publisher
	topic       string
	areaM2      float64
	pumpFlowLPM float64
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewController returns a Controller; m may be nil.
func NewController(pub Publisher, topic string, areaM2, pumpFlowLPM float64, m *metrics.Metrics, logger *slog.Logger) (*Controller, error) {
	if areaM2 <= 0 || pumpFlowLPM <= 0 {
		return nil, fmt.Errorf("area (%v) and pump flow (%v) must be positive", areaM2, pumpFlowLPM)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		pub:         pub,
		topic:       topic,
		areaM2:      areaM2,
		pumpFlowLPM: pumpFlowLPM,
		metrics:     m,
		logger:      logger,
	}, nil
}

// Dispatch publishes a command when rec says to irrigate now with a positive
// amount. It reports whether a command was sent.
func (c *Controller) Dispatch(ctx context.Context, rec store.Record) (bool, error) {
	r := rec.Recommendation
	if r.Action != irrigation.ActionIrrigateNow || r.AmountLitersPerSqm <= 0 {
		return false, nil
	}

	cmd := NewCommand(r.AmountLitersPerSqm, c.areaM2, c.pumpFlowLPM, rec.Timestamp)
	payload, err := json.Marshal(cmd)
	if err != nil {
		return false, err
	}

	if err := c.pub.Publish(ctx, c.topic, 1, payload); err != nil {
		c.count("error")
		return false, fmt.Errorf("publish control command: %w", err)
	}
	c.count("ok")
	c.logger.Info("published control command",
		"topic", c.topic,
		"record", rec.ID,
		"duration_s", cmd.Duration,
		"liters_total", cmd.LitersTotal,
	)
	return true, nil
}

func (c *Controller) count(result string) {
	if c.metrics != nil {
		c.metrics.ControlCommands.WithLabelValues(result).Inc()
	}
}
