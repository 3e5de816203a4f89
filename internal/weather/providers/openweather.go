package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/irrigation-advisor/internal/resilience"
	"github.com/i474232898/irrigation-advisor/internal/weather"
)

// OpenWeatherProvider implements weather.Provider on top of the OpenWeatherMap
// 5-day forecast. Only the nearest 3-hour slot is used, so precipitation
// describes rain expected in the next few hours.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *resilience.Client
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/forecast",
		client:  newClient("openweather", client),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type openWeatherSlot struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		ThreeH float64 `json:"3h"`
	} `json:"rain"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if p.apiKey == "" {
		return weather.ProviderReading{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("cnt", "1")
		if loc.HasCoordinates() {
			values.Set("lat", fmt.Sprintf("%f", *loc.Lat))
			values.Set("lon", fmt.Sprintf("%f", *loc.Lon))
		} else {
			values.Set("q", cityQuery(loc))
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := p.client.Do(ctx, buildRequest)
	if err != nil {
		return weather.ProviderReading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []openWeatherSlot `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ProviderReading{}, err
	}
	if len(payload.List) == 0 {
		return weather.ProviderReading{}, fmt.Errorf("openweather returned no forecast slots")
	}

	slot := payload.List[0]
	return weather.ProviderReading{
		ProviderName: p.name,
		Timestamp:    unixOrNow(slot.Dt),
		TemperatureC: slot.Main.Temp,
		HumidityPct:  slot.Main.Humidity,
		WindSpeedMS:  slot.Wind.Speed,
		PressureHpa:  slot.Main.Pressure,
		PrecipMm:     slot.Rain.ThreeH,
		Condition:    mapOpenWeatherCondition(slot),
	}, nil
}

func mapOpenWeatherCondition(slot openWeatherSlot) weather.Condition {
	if len(slot.Weather) == 0 {
		return weather.ConditionUnknown
	}
	switch slot.Weather[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
