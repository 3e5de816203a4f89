// Package predictor provides the irrigation classifier and water-amount
// regressor used by the recommendation engine.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/i474232898/irrigation-advisor/internal/irrigation"
)

// ErrBadModel is returned when a model file does not describe a usable model.
var ErrBadModel = errors.New("invalid model definition")

const defaultThreshold = 0.5

// LinearModel is a logistic-regression classifier paired with a linear
// regressor for the water amount, both over the engine's feature vector.
type LinearModel struct {
	Classifier LogisticParams `json:"classifier"`
	Regressor  LinearParams   `json:"regressor"`
}

// LogisticParams define the classifier. Label is positive when the predicted
// probability reaches Threshold.
type LogisticParams struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Threshold    float64   `json:"threshold"`
}

// LinearParams define the amount regressor.
type LinearParams struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// LoadLinearModel reads and validates a model from a JSON file.
func LoadLinearModel(path string) (*LinearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var m LinearModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

func (m *LinearModel) validate() error {
	if len(m.Classifier.Coefficients) != irrigation.NumFeatures {
		return fmt.Errorf("%w: classifier needs %d coefficients, got %d",
			ErrBadModel, irrigation.NumFeatures, len(m.Classifier.Coefficients))
	}
	if len(m.Regressor.Coefficients) != irrigation.NumFeatures {
		return fmt.Errorf("%w: regressor needs %d coefficients, got %d",
			ErrBadModel, irrigation.NumFeatures, len(m.Regressor.Coefficients))
	}
	if m.Classifier.Threshold == 0 {
		m.Classifier.Threshold = defaultThreshold
	}
	if m.Classifier.Threshold < 0 || m.Classifier.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0,1]", ErrBadModel, m.Classifier.Threshold)
	}
	return nil
}

// Classify implements irrigation.Classifier.
func (m *LinearModel) Classify(_ context.Context, f irrigation.Features) (bool, float64, error) {
	z := dot(m.Classifier.Intercept, m.Classifier.Coefficients, f)
	p := 1 / (1 + math.Exp(-z))
	return p >= m.Classifier.Threshold, p, nil
}

// PredictAmount implements irrigation.AmountPredictor. Negative estimates are floored at zero.
func (m *LinearModel) PredictAmount(_ context.Context, f irrigation.Features) (float64, error) {
	return math.Max(0, dot(m.Regressor.Intercept, m.Regressor.Coefficients, f)), nil
}

func dot(intercept float64, coefficients []float64, f irrigation.Features) float64 {
	sum := intercept
	for i, c := range coefficients {
		sum += c * f[i]
	}
	return sum
}
