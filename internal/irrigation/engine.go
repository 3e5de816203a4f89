package irrigation

import (
	"context"
	"fmt"
	"math"
)

// Classifier predicts whether a plot needs irrigation. probability is the
// probability of the positive class.
type Classifier interface {
	Classify(ctx context.Context, f Features) (needed bool, probability float64, err error)
}

// AmountPredictor estimates how much water to apply, in liters per square meter.
type AmountPredictor interface {
	PredictAmount(ctx context.Context, f Features) (float64, error)
}

// efficiencyFallbackThreshold lets irrigation proceed outside the preferred
// windows when the current hour still retains most of the water.
const efficiencyFallbackThreshold = 0.7

// Engine reconciles the predictors with the timing heuristics.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	classifier Classifier
	amount     AmountPredictor
}

// NewEngine creates an Engine backed by the given predictors.
func NewEngine(classifier Classifier, amount AmountPredictor) *Engine {
	return &Engine{
		classifier: classifier,
		amount:     amount,
	}
}

// Recommend evaluates one reading. Predictor errors are wrapped and returned;
// the engine adds no failure modes of its own.
func (e *Engine) Recommend(ctx context.Context, r Reading) (Recommendation, error) {
	features := r.Features()

	needed, probability, err := e.classifier.Classify(ctx, features)
	if err != nil {
		return Recommendation{}, fmt.Errorf("classify: %w", err)
	}

	amount := 0.0
	if needed {
		amount, err = e.amount.PredictAmount(ctx, features)
		if err != nil {
			return Recommendation{}, fmt.Errorf("predict amount: %w", err)
		}
		amount = round(amount, 2)
		if amount <= 0 {
			amount = 0
		}
	}

	timing := AdviseTiming(r.Temperature, r.Humidity, r.Hour, r.Month, r.Rainfall)
	eff := Efficiency(r.Hour, r.Temperature, r.Humidity)
	risk := EvapotranspirationRisk(r.Temperature, r.Humidity)

	action, decision := decide(needed, r.Rainfall, r.Hour, eff)

	return Recommendation{
		Action:                 action,
		Decision:               decision,
		IrrigationNeeded:       needed,
		Confidence:             round(probability, 3),
		AmountLitersPerSqm:     amount,
		Timing:                 timing,
		CurrentEfficiency:      round(eff, 3),
		EvapotranspirationRisk: round(risk, 2),
		EfficiencyRating:       RatingOf(eff),
	}, nil
}

// decide applies the action rules in priority order; the first match wins.
func decide(needed, rainfall bool, hour int, eff float64) (Action, string) {
	switch {
	case needed && !rainfall:
		if inWindow(hour, 5, 8) || inWindow(hour, 18, 21) {
			return ActionIrrigateNow, "Irrigate - Optimal timing"
		}
		if eff > efficiencyFallbackThreshold {
			return ActionIrrigateNow, "Irrigate - Good efficiency"
		}
		return ActionSchedule, "Schedule irrigation - Poor timing now"
	case rainfall:
		return ActionNoIrrigationRain, "No irrigation (Rain expected)"
	default:
		return ActionNoIrrigationSufficient, "No irrigation (Sufficient moisture)"
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
