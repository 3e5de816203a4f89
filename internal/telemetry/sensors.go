package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/i474232898/irrigation-advisor/internal/dedup"
	"github.com/i474232898/irrigation-advisor/internal/metrics"
	"github.com/i474232898/irrigation-advisor/internal/store"
)

var validate = validator.New()

// ErrEmptyReading is returned for reports without any measurement.
var ErrEmptyReading = errors.New("sensor report carries no measurement")

// ParseSensorPayload decodes and validates a device report.
func ParseSensorPayload(payload []byte) (store.SensorReading, error) {
	var r store.SensorReading
	if err := json.Unmarshal(payload, &r); err != nil {
		return store.SensorReading{}, fmt.Errorf("decode sensor payload: %w", err)
	}
	if err := validate.Struct(r); err != nil {
		return store.SensorReading{}, fmt.Errorf("invalid sensor payload: %w", err)
	}
	if r.Empty() {
		return store.SensorReading{}, ErrEmptyReading
	}
	return r, nil
}

// SensorIngest stores sensor reports arriving over MQTT.
type SensorIngest struct {
	store   store.ReadingStore
	deduper *dedup.Deduper
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewSensorIngest wires an ingest pipeline. deduper and m may be nil.
func NewSensorIngest(readings store.ReadingStore, deduper *dedup.Deduper, m *metrics.Metrics, logger *slog.Logger) *SensorIngest {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorIngest{
		store:   readings,
		deduper: deduper,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		timeout: 5 * time.Second,
	}
}

// Handle is a MessageHandler.
func (s *SensorIngest) Handle(topic string, payload []byte) {
	status := s.process(topic, payload)
	if s.metrics != nil {
		s.metrics.SensorMessages.WithLabelValues(status).Inc()
	}
}

func (s *SensorIngest) process(topic string, payload []byte) string {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	r, err := ParseSensorPayload(payload)
	if err != nil {
		s.logger.Warn("invalid sensor message", "topic", topic, "error", err, "payload", string(payload))
		return metrics.SensorInvalid
	}

	if s.duplicate(topic, r.MessageID, payload) {
		s.logger.Debug("duplicate sensor message dropped", "topic", topic, "message_id", r.MessageID)
		return metrics.SensorDuplicate
	}
	r.ID = uuid.NewString()
	r.ReceivedAt = s.now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.store.SaveReading(ctx, r); err != nil {
		s.logger.Error("failed to store sensor reading", "topic", topic, "error", err)
		return metrics.SensorFailed
	}
	s.logger.Debug("stored sensor reading", "id", r.ID)
	return metrics.SensorAccepted
}

// duplicate keys on the device message id when present. Otherwise only a
// payload identical to the topic's previous one counts as a redelivery.
func (s *SensorIngest) duplicate(topic, messageID string, payload []byte) bool {
	if s.deduper == nil {
		return false
	}
	if messageID != "" {
		return !s.deduper.ShouldProcess(topic + "|" + messageID)
	}
	return !s.deduper.ShouldProcessNext(topic, payload)
}
