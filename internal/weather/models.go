package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Location is the plot the service tracks weather for.
// City/Country are required; Lat/Lon are needed by coordinate-only providers.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// HasCoordinates reports whether both latitude and longitude are known.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// WeatherSnapshot is the normalized, aggregated weather view at a point in time.
type WeatherSnapshot struct {
	Location    Location  `json:"location"`
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperature_c"`
	Humidity    float64   `json:"humidity_percent"`
	WindSpeed   float64   `json:"wind_speed"`
	Pressure    float64   `json:"pressure_hpa"`
	PrecipMM    float64   `json:"precip_mm"`
	Condition   Condition `json:"condition"`

	// Providers contributing to this snapshot.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}

// Conditions are the fields the irrigation advisor consumes. Temperature and
// Humidity are nil when no weather data could be obtained; callers then
// substitute their own fallbacks.
type Conditions struct {
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Rainfall    bool      `json:"rainfall"`
	RainfallMm  float64   `json:"rainfall_mm"`
	ObservedAt  time.Time `json:"observed_at,omitempty"`
}

// Available reports whether the conditions came from real weather data.
func (c Conditions) Available() bool {
	return c.Temperature != nil && c.Humidity != nil
}

// ConditionsFrom converts a snapshot. Rain is flagged when any precipitation is expected.
func ConditionsFrom(s WeatherSnapshot) Conditions {
	temp := s.Temperature
	humidity := s.Humidity
	return Conditions{
		Temperature: &temp,
		Humidity:    &humidity,
		Rainfall:    s.PrecipMM > 0,
		RainfallMm:  s.PrecipMM,
		ObservedAt:  s.Timestamp,
	}
}
