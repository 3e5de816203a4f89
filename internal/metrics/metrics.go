// Package metrics exposes Prometheus counters for the advisor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "irrigation"

// Metrics bundles the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Recommendations      *prometheus.CounterVec
	WeatherFetchFailures *prometheus.CounterVec
	SensorMessages       *prometheus.CounterVec
	ControlCommands      *prometheus.CounterVec
}

// Sensor message outcomes.
const (
	SensorAccepted  = "accepted"
	SensorDuplicate = "duplicate"
	SensorInvalid   = "invalid"
	SensorFailed    = "failed"
)

// New creates and registers all collectors, including Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendations produced, by action.",
		}, []string{"action"}),
		WeatherFetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetch_failures_total",
			Help:      "Failed weather provider fetches, by provider.",
		}, []string{"provider"}),
		SensorMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_messages_total",
			Help:      "MQTT sensor messages received, by outcome.",
		}, []string{"status"}),
		ControlCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_commands_total",
			Help:      "Pump control commands published, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Recommendations,
		m.WeatherFetchFailures,
		m.SensorMessages,
		m.ControlCommands,
	)
	return m
}

// Registry returns the underlying registry, for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WeatherFailure matches the weather service failure hook.
func (m *Metrics) WeatherFailure(provider string) {
	m.WeatherFetchFailures.WithLabelValues(provider).Inc()
}
