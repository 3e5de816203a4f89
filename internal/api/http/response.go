package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/irrigation-advisor/internal/advisor"
	"github.com/i474232898/irrigation-advisor/internal/irrigation"
	"github.com/i474232898/irrigation-advisor/internal/store"
	"github.com/i474232898/irrigation-advisor/internal/weather"
)

const notRequired = "Not required"

type predictResponse struct {
	Prediction              string                `json:"prediction"`
	ActionCode              irrigation.Action     `json:"action_code"`
	Confidence              float64               `json:"confidence"`
	IrrigationNeeded        bool                  `json:"irrigation_needed"`
	RecommendedAmountLiters any                   `json:"recommended_amount_liters"`
	Timing                  timingView            `json:"timing"`
	EnvironmentalAnalysis   environmentalAnalysis `json:"environmental_analysis"`
	InputData               irrigation.Reading    `json:"input_data"`
	Weather                 weather.Conditions    `json:"weather"`
	ID                      string                `json:"id"`
	Timestamp               time.Time             `json:"timestamp"`
}

type timingView struct {
	CurrentTimeRating irrigation.Rating `json:"current_time_rating"`
	CurrentEfficiency string            `json:"current_efficiency"`
	Recommendation    string            `json:"recommendation"`
	Reasoning         string            `json:"reasoning"`
	OptimalHour       string            `json:"optimal_hour"`
}

type environmentalAnalysis struct {
	EvapotranspirationRisk float64              `json:"evapotranspiration_risk"`
	RiskLevel              irrigation.RiskLevel `json:"risk_level"`
	Temperature            string               `json:"temperature"`
	Humidity               string               `json:"humidity"`
	RainfallExpected       bool                 `json:"rainfall_expected"`
}

func newPredictResponse(rec store.Record) predictResponse {
	r := rec.Recommendation

	var amount any = notRequired
	if r.AmountLitersPerSqm > 0 {
		amount = r.AmountLitersPerSqm
	}

	optimal := "N/A"
	if r.Timing.OptimalHour != nil {
		optimal = fmt.Sprintf("%02d:00", *r.Timing.OptimalHour)
	}

	return predictResponse{
		Prediction:              r.Decision,
		ActionCode:              r.Action,
		Confidence:              r.Confidence,
		IrrigationNeeded:        r.IrrigationNeeded,
		RecommendedAmountLiters: amount,
		Timing: timingView{
			CurrentTimeRating: r.EfficiencyRating,
			CurrentEfficiency: percent(r.CurrentEfficiency, 1),
			Recommendation:    r.Timing.Description,
			Reasoning:         r.Timing.Reasoning,
			OptimalHour:       optimal,
		},
		EnvironmentalAnalysis: environmentalAnalysis{
			EvapotranspirationRisk: r.EvapotranspirationRisk,
			RiskLevel:              irrigation.LevelOf(r.EvapotranspirationRisk),
			Temperature:            number(rec.Input.Temperature) + "°C",
			Humidity:               number(rec.Input.Humidity) + "%",
			RainfallExpected:       rec.Input.Rainfall,
		},
		InputData: rec.Input,
		Weather:   rec.Weather,
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
	}
}

type hourView struct {
	Hour           string `json:"hour"`
	Period         string `json:"period"`
	Efficiency     string `json:"efficiency"`
	Recommendation string `json:"recommendation"`
	WaterSavings   string `json:"water_savings"`
}

type timingAnalysisResponse struct {
	AnalysisDate string `json:"analysis_date"`
	Conditions   struct {
		Temperature            string               `json:"temperature"`
		Humidity               string               `json:"humidity"`
		EvapotranspirationRisk float64              `json:"evapotranspiration_risk"`
		RiskLevel              irrigation.RiskLevel `json:"risk_level"`
		WeatherAvailable       bool                 `json:"weather_available"`
	} `json:"conditions"`
	HourlyAnalysis []hourView `json:"hourly_analysis"`
	BestTimes      []string   `json:"best_times"`
	AvoidTimes     []string   `json:"avoid_times"`
}

func newTimingAnalysisResponse(report advisor.TimingReport) timingAnalysisResponse {
	a := report.Analysis
	var resp timingAnalysisResponse
	resp.AnalysisDate = report.Date.Format(time.DateOnly)
	resp.Conditions.Temperature = number(a.Temperature) + "°C"
	resp.Conditions.Humidity = number(a.Humidity) + "%"
	resp.Conditions.EvapotranspirationRisk = a.EvapotranspirationRisk
	resp.Conditions.RiskLevel = a.RiskLevel
	resp.Conditions.WeatherAvailable = report.Conditions.Available()

	resp.HourlyAnalysis = make([]hourView, 0, len(a.Hours))
	for _, h := range a.Hours {
		savings := "Minimal loss"
		if h.Efficiency < 1 {
			savings = fmt.Sprintf("%.0f%% loss", h.Loss()*100)
		}
		resp.HourlyAnalysis = append(resp.HourlyAnalysis, hourView{
			Hour:           fmt.Sprintf("%02d:00", h.Hour),
			Period:         h.Period,
			Efficiency:     percent(h.Efficiency, 1),
			Recommendation: h.Recommendation,
			WaterSavings:   savings,
		})
	}
	resp.BestTimes = irrigation.BestTimes
	resp.AvoidTimes = irrigation.AvoidTimes
	return resp
}

// percent renders a fraction as "91.2%".
func percent(v float64, places int) string {
	return strconv.FormatFloat(v*100, 'f', places, 64) + "%"
}

// number renders a float with at least one decimal: 30 -> "30.0", 31.25 -> "31.25".
func number(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
