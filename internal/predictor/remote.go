package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/i474232898/irrigation-advisor/internal/irrigation"
	"github.com/i474232898/irrigation-advisor/internal/resilience"
)

// Remote calls a model-serving endpoint over HTTP.
//
//	POST {baseURL}/classify  {"features":[...]} -> {"label":0|1,"probability":p}
//	POST {baseURL}/amount    {"features":[...]} -> {"amount":x}
type Remote struct {
	baseURL string
	client  *resilience.Client
}

// NewRemote creates a Remote predictor.
func NewRemote(httpClient *http.Client, baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  resilience.New("predictor", httpClient, resilience.DefaultBackoff),
	}
}

type featuresRequest struct {
	Features []float64 `json:"features"`
}

// Classify implements irrigation.Classifier.
func (r *Remote) Classify(ctx context.Context, f irrigation.Features) (bool, float64, error) {
	var out struct {
		Label       int     `json:"label"`
		Probability float64 `json:"probability"`
	}
	if err := r.post(ctx, "/classify", f, &out); err != nil {
		return false, 0, err
	}
	if out.Probability < 0 || out.Probability > 1 {
		return false, 0, fmt.Errorf("classify: probability %v outside [0,1]", out.Probability)
	}
	return out.Label == 1, out.Probability, nil
}

// PredictAmount implements irrigation.AmountPredictor.
func (r *Remote) PredictAmount(ctx context.Context, f irrigation.Features) (float64, error) {
	var out struct {
		Amount float64 `json:"amount"`
	}
	if err := r.post(ctx, "/amount", f, &out); err != nil {
		return 0, err
	}
	return out.Amount, nil
}

func (r *Remote) post(ctx context.Context, path string, f irrigation.Features, out any) error {
	body, err := json.Marshal(featuresRequest{Features: f[:]})
	if err != nil {
		return err
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := r.client.Do(ctx, buildRequest)
	if err != nil {
		return fmt.Errorf("predictor %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("predictor %s: decode: %w", path, err)
	}
	return nil
}
