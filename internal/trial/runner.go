package trial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Runner is the contract with the external training collaborator. One
// call runs graph construction, the train/validation/test split,
// model training with early stopping and metric computation, and
// returns a single recall in [0, 1]. Calls are synchronous,
// side-effect isolated per call, and may be made any number of times
// with different hyperparameters against the same dataset handles.
type Runner interface {
	RunTraining(ctx context.Context, handles DatasetHandles, fixed FixedParams, hyper Hyperparams) (float64, error)
}

// TrainRequest is the wire payload sent to the training service.
type TrainRequest struct {
	Handles DatasetHandles `json:"handles"`
	Fixed   FixedParams    `json:"fixed"`
	Hyper   Hyperparams    `json:"hyper"`
}

// TrainResponse is the wire payload returned by the training service.
type TrainResponse struct {
	Recall float64 `json:"recall"`
}

// HTTPRunner invokes a training service over HTTP. The client carries
// no request timeout: a training run legitimately takes hours, and a
// stuck trial is recovered by terminating the process and resuming
// from the last checkpoint rather than by cancellation.
type HTTPRunner struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRunner creates a runner targeting the training service at
// baseURL (e.g. "http://localhost:9090").
func NewHTTPRunner(baseURL string) *HTTPRunner {
	return &HTTPRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// RunTraining posts one training request and parses the recall.
func (r *HTTPRunner) RunTraining(ctx context.Context, handles DatasetHandles, fixed FixedParams, hyper Hyperparams) (float64, error) {
	payload, err := json.Marshal(TrainRequest{Handles: handles, Fixed: fixed, Hyper: hyper})
	if err != nil {
		return 0, fmt.Errorf("failed to encode training request: %w", err)
	}

	url := r.baseURL + "/api/v1/train"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build training request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("training request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("training service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out TrainResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode training response: %w", err)
	}
	if out.Recall < 0 || out.Recall > 1 {
		return 0, fmt.Errorf("training service returned recall %v outside [0, 1]", out.Recall)
	}
	return out.Recall, nil
}

// Healthy pings the training service health endpoint.
func (r *HTTPRunner) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("training service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("training service health returned %d", resp.StatusCode)
	}
	return nil
}
