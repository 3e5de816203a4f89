package predictor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/irrigation-advisor/internal/irrigation"
)

func writeModel(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadShippedModel(t *testing.T) {
	m, err := LoadLinearModel(filepath.Join("..", "..", "models", "irrigation_model.json"))
	require.NoError(t, err)

	dry := irrigation.Features{10, 15, 30, 50, 0, 6, 6}
	wet := irrigation.Features{40, 45, 30, 50, 0, 6, 6}

	needed, p, err := m.Classify(context.Background(), dry)
	require.NoError(t, err)
	assert.True(t, needed)
	assert.Greater(t, p, 0.5)

	needed, p, err = m.Classify(context.Background(), wet)
	require.NoError(t, err)
	assert.False(t, needed)
	assert.Less(t, p, 0.5)

	amount, err := m.PredictAmount(context.Background(), dry)
	require.NoError(t, err)
	assert.InDelta(t, 9.25, amount, 1e-9)
}

func TestLinearModelDefaultsThreshold(t *testing.T) {
	path := writeModel(t, `{
		"classifier": {"intercept": 0, "coefficients": [0,0,0,0,0,0,0]},
		"regressor": {"intercept": -4, "coefficients": [0,0,0,0,0,0,0]}
	}`)
	m, err := LoadLinearModel(path)
	require.NoError(t, err)
	assert.Equal(t, defaultThreshold, m.Classifier.Threshold)

	// sigmoid(0) == 0.5 reaches the threshold.
	needed, p, err := m.Classify(context.Background(), irrigation.Features{})
	require.NoError(t, err)
	assert.True(t, needed)
	assert.Equal(t, 0.5, p)

	amount, err := m.PredictAmount(context.Background(), irrigation.Features{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, amount)
}

func TestLoadLinearModelRejectsBadDefinitions(t *testing.T) {
	tests := map[string]string{
		"short classifier": `{"classifier":{"coefficients":[1,2]},"regressor":{"coefficients":[0,0,0,0,0,0,0]}}`,
		"short regressor":  `{"classifier":{"coefficients":[0,0,0,0,0,0,0]},"regressor":{"coefficients":[]}}`,
		"bad threshold":    `{"classifier":{"coefficients":[0,0,0,0,0,0,0],"threshold":2},"regressor":{"coefficients":[0,0,0,0,0,0,0]}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadLinearModel(writeModel(t, body))
			require.ErrorIs(t, err, ErrBadModel)
		})
	}

	_, err := LoadLinearModel(writeModel(t, "not json"))
	require.Error(t, err)

	_, err = LoadLinearModel(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestRemotePredictor(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []float64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req featuresRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		seen = req.Features
		mu.Unlock()

		switch r.URL.Path {
		case "/classify":
			_ = json.NewEncoder(w).Encode(map[string]any{"label": 1, "probability": 0.83})
		case "/amount":
			_ = json.NewEncoder(w).Encode(map[string]any{"amount": 7.5})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := NewRemote(srv.Client(), srv.URL+"/")
	f := irrigation.Features{1, 2, 3, 4, 0, 5, 6}

	needed, p, err := r.Classify(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, needed)
	assert.Equal(t, 0.83, p)
	mu.Lock()
	assert.Equal(t, f[:], seen)
	mu.Unlock()

	amount, err := r.PredictAmount(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 7.5, amount)
}

func TestRemotePredictorRejectsBadProbability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"label": 1, "probability": 1.7})
	}))
	defer srv.Close()

	_, _, err := NewRemote(srv.Client(), srv.URL).Classify(context.Background(), irrigation.Features{})
	require.Error(t, err)
}

func TestRemotePredictorSurfacesClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewRemote(srv.Client(), srv.URL).PredictAmount(context.Background(), irrigation.Features{})
	require.Error(t, err)
}
