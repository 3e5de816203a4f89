package irrigation

import (
	"encoding/json"
	"fmt"
)

// Action is the engine's final categorical decision.
type Action string

const (
	ActionIrrigateNow            Action = "IRRIGATE_NOW"
	ActionSchedule               Action = "SCHEDULE_IRRIGATION"
	ActionNoIrrigationRain       Action = "NO_IRRIGATION_RAIN"
	ActionNoIrrigationSufficient Action = "NO_IRRIGATION_SUFFICIENT"
)

// Rating buckets a continuous efficiency score.
type Rating string

const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingFair      Rating = "Fair"
	RatingPoor      Rating = "Poor"
)

// Reading is a single set of environmental inputs for one evaluation.
// Hour is 0-23 and Month 1-12; callers validate before handing it to the engine.
// It encodes with the device payload keys, Rainfall as 0 or 1.
type Reading struct {
	SoilMoistureShallow float64 `json:"Soil_Moisture_Shallow"`
	SoilMoistureDeep    float64 `json:"Soil_Moisture_Deep"`
	Temperature         float64 `json:"Atmospheric_Temp"`
	Humidity            float64 `json:"Humidity" validate:"gte=0,lte=100"`
	Rainfall            bool    `json:"Rainfall"`
	Hour                int     `json:"Hour" validate:"gte=0,lte=23"`
	Month               int     `json:"Month" validate:"gte=1,lte=12"`
}

// Features returns the predictor input vector. The order matches the one the
// models were trained on and must not change.
func (r Reading) Features() Features {
	return Features{
		r.SoilMoistureShallow,
		r.SoilMoistureDeep,
		r.Temperature,
		r.Humidity,
		float64(boolToInt(r.Rainfall)),
		float64(r.Hour),
		float64(r.Month),
	}
}

func (r Reading) MarshalJSON() ([]byte, error) {
	type plain Reading
	return json.Marshal(struct {
		plain
		Rainfall int `json:"Rainfall"`
	}{plain(r), boolToInt(r.Rainfall)})
}

// UnmarshalJSON accepts Rainfall as a number (> 0 means rain) or a bool.
func (r *Reading) UnmarshalJSON(data []byte) error {
	type plain Reading
	aux := struct {
		*plain
		Rainfall any `json:"Rainfall"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch v := aux.Rainfall.(type) {
	case nil:
	case bool:
		r.Rainfall = v
	case float64:
		r.Rainfall = v > 0
	default:
		return fmt.Errorf("rainfall: unsupported value %v", v)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NumFeatures is the length of the predictor input vector.
const NumFeatures = 7

// Features is the ordered predictor input vector:
// shallow moisture, deep moisture, temperature, humidity, rainfall flag, hour, month.
type Features [NumFeatures]float64

// FeatureNames lists the training column names in vector order.
var FeatureNames = [NumFeatures]string{
	"Soil_Moisture_Shallow",
	"Soil_Moisture_Deep",
	"Atmospheric_Temp",
	"Humidity",
	"Rainfall",
	"Hour",
	"Month",
}

// TimingAdvice is the Timing Advisor's output. OptimalHour is nil when no
// irrigation should be scheduled at all.
type TimingAdvice struct {
	Description string `json:"description"`
	OptimalHour *int   `json:"optimal_hour"`
	Reasoning   string `json:"reasoning"`
}

// Recommendation is the engine's terminal record for one evaluation.
type Recommendation struct {
	Action                 Action       `json:"action"`
	Decision               string       `json:"decision"`
	IrrigationNeeded       bool         `json:"irrigation_needed"`
	Confidence             float64      `json:"confidence"`
	AmountLitersPerSqm     float64      `json:"amount_liters_per_sqm"`
	Timing                 TimingAdvice `json:"timing"`
	CurrentEfficiency      float64      `json:"current_efficiency"`
	EvapotranspirationRisk float64      `json:"evapotranspiration_risk"`
	EfficiencyRating       Rating       `json:"efficiency_rating"`
}
