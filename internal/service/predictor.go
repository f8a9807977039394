package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cardiopredict/web/internal/domain"
)

// maxResponseBytes caps how much of a prediction response is read.
const maxResponseBytes = 1 << 20

// Predictor is the external prediction operation the controller depends on.
type Predictor interface {
	Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error)
}

// PredictionClient handles communication with the prediction service
type PredictionClient struct {
	baseURL    string
	healthPath string
	httpClient *http.Client
}

// NewPredictionClient creates a client bound to one backend base URL.
// The timeout bounds each call end to end.
func NewPredictionClient(baseURL, healthPath string, timeout time.Duration) *PredictionClient {
	if healthPath == "" {
		healthPath = "/"
	}
	return &PredictionClient{
		baseURL:    baseURL,
		healthPath: healthPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict posts a normalized request to {baseURL}/predict. Every failure is
// reported as a *domain.TransportError.
func (c *PredictionClient) Predict(ctx context.Context, req domain.PredictionRequest) (domain.PredictionResult, error) {
	body, err := json.Marshal(req.Normalize())
	if err != nil {
		return domain.PredictionResult{}, &domain.TransportError{Op: "encode request", Err: err}
	}

	url := fmt.Sprintf("%s/predict", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.PredictionResult{}, &domain.TransportError{Op: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.PredictionResult{}, &domain.TransportError{Op: "post predict", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return domain.PredictionResult{}, &domain.TransportError{Op: "post predict", StatusCode: resp.StatusCode}
	}

	var result domain.PredictionResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return domain.PredictionResult{}, &domain.TransportError{Op: "decode response", Err: err}
	}

	return result, nil
}

// Health checks prediction service connectivity
func (c *PredictionClient) Health(ctx context.Context) error {
	url := c.baseURL + c.healthPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("predictor: failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("predictor: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("predictor: health check returned status %d", resp.StatusCode)
	}

	return nil
}
