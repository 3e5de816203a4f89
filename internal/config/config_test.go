package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TZ", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 15*time.Minute, cfg.FetchInterval)
	assert.Equal(t, 30*time.Minute, cfg.WeatherMaxAge)
	assert.Equal(t, 30*time.Minute, cfg.SensorMaxAge)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 1346.0, cfg.FieldAreaM2)
	assert.Equal(t, 100.0, cfg.PumpFlowLPM)
	assert.Zero(t, cfg.AutoEvaluateInterval)
	assert.False(t, cfg.MQTTEnabled())
	assert.False(t, cfg.InfluxEnabled())
	assert.Equal(t, time.UTC, cfg.TimeZone())

	loc := cfg.Location()
	assert.Equal(t, "Kolkata", loc.City)
	assert.False(t, loc.HasCoordinates())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WEATHER_LOCATION_LAT", "22.57")
	t.Setenv("WEATHER_LOCATION_LON", "88.36")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("AUTO_EVALUATE_INTERVAL", "1h")
	t.Setenv("TZ", "Asia/Kolkata")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.True(t, cfg.MQTTEnabled())
	assert.Equal(t, time.Hour, cfg.AutoEvaluateInterval)
	assert.Equal(t, "Asia/Kolkata", cfg.TimeZone().String())

	loc := cfg.Location()
	require.True(t, loc.HasCoordinates())
	assert.Equal(t, 22.57, *loc.Lat)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"driver":   {"STORE_DRIVER", "postgres"},
		"interval": {"FETCH_INTERVAL", "soon"},
		"latitude": {"WEATHER_LOCATION_LAT", "123"},
		"area":     {"FIELD_AREA_M2", "0"},
		"influx":   {"INFLUX_URL", "http://localhost:8086"},
		"timezone": {"TZ", "Mars/Olympus"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
