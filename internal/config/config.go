package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/irrigation-advisor/internal/weather"
)

// Storage drivers for the recommendation log.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type AppConfig struct {
	AppEnv   string     `envconfig:"APP_ENV" default:"dev" validate:"oneof=dev test prod"`
	LogLevel slog.Level `envconfig:"LOG_LEVEL" default:"info"`
	Port     string     `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	Timezone string     `envconfig:"TZ"`

	OpenWeatherAPIKey string `envconfig:"OPENWEATHER_API_KEY"`
	WeatherAPIKey     string `envconfig:"WEATHERAPI_API_KEY"`

	// The irrigated plot.
	LocationCity    string   `envconfig:"WEATHER_LOCATION_CITY" default:"Kolkata" validate:"required"`
	LocationCountry string   `envconfig:"WEATHER_LOCATION_COUNTRY" default:"IN"`
	LocationLat     *float64 `envconfig:"WEATHER_LOCATION_LAT" validate:"omitempty,latitude"`
	LocationLon     *float64 `envconfig:"WEATHER_LOCATION_LON" validate:"omitempty,longitude"`

	// FetchInterval controls how often weather is refreshed.
	FetchInterval time.Duration `envconfig:"FETCH_INTERVAL" default:"15m"`
	// WeatherMaxAge is how long a stored snapshot answers lookups.
	WeatherMaxAge time.Duration `envconfig:"WEATHER_MAX_AGE" default:"30m"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	// In-memory retention.
	StoreMaxHistory int           `envconfig:"STORE_MAX_HISTORY" default:"500" validate:"gte=0"` // 0 = unlimited
	StoreMaxAge     time.Duration `envconfig:"STORE_MAX_AGE" default:"24h"`                      // 0 = unlimited

	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory" validate:"oneof=memory sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/irrigation.db" validate:"required_if=StoreDriver sqlite"`

	// Optional InfluxDB export; enabled when the URL is set.
	InfluxURL    string `envconfig:"INFLUX_URL" validate:"omitempty,url"`
	InfluxToken  string `envconfig:"INFLUX_TOKEN" validate:"required_with=InfluxURL"`
	InfluxOrg    string `envconfig:"INFLUX_ORG" validate:"required_with=InfluxURL"`
	InfluxBucket string `envconfig:"INFLUX_BUCKET" default:"irrigation"`

	// Predictors: a remote model server when PredictorURL is set, else the model file.
	ModelPath    string `envconfig:"MODEL_PATH" default:"models/irrigation_model.json"`
	PredictorURL string `envconfig:"PREDICTOR_URL" validate:"omitempty,url"`

	// MQTT is disabled when no broker is configured.
	MQTTBroker       string `envconfig:"MQTT_BROKER"`
	MQTTPort         int    `envconfig:"MQTT_PORT" default:"1883" validate:"gt=0,lte=65535"`
	MQTTClientID     string `envconfig:"MQTT_CLIENT_ID" default:"irrigation-advisor"`
	MQTTUser         string `envconfig:"MQTT_USER"`
	MQTTPassword     string `envconfig:"MQTT_PASSWORD"`
	MQTTSensorTopic  string `envconfig:"MQTT_SENSOR_TOPIC" default:"irrigation/data"`
	MQTTControlTopic string `envconfig:"MQTT_CONTROL_TOPIC" default:"irrigation/control"`

	// SensorMaxAge is how long a sensor report stays usable as an input; 0 = no limit.
	SensorMaxAge time.Duration `envconfig:"SENSOR_MAX_AGE" default:"30m"`

	// Pump sizing for control commands.
	FieldAreaM2 float64 `envconfig:"FIELD_AREA_M2" default:"1346" validate:"gt=0"`
	PumpFlowLPM float64 `envconfig:"PUMP_FLOW_LPM" default:"100" validate:"gt=0"`

	// AutoEvaluateInterval enables unattended evaluations; 0 disables them.
	AutoEvaluateInterval time.Duration `envconfig:"AUTO_EVALUATE_INTERVAL" default:"0"`

	location *time.Location
}

// Load reads configuration from the environment (and .env, if present) with
// sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found or error loading it", "error", err)
	}

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ: %w", err)
	}
	cfg.location = loc

	return cfg, nil
}

// Location is the tracked plot.
func (c *AppConfig) Location() weather.Location {
	return weather.Location{
		City:    c.LocationCity,
		Country: c.LocationCountry,
		Lat:     c.LocationLat,
		Lon:     c.LocationLon,
	}
}

// TimeZone is the zone used for default hour and month. Empty TZ means UTC.
func (c *AppConfig) TimeZone() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *AppConfig) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func (c *AppConfig) InfluxEnabled() bool {
	return c.InfluxURL != ""
}
