package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.replicate.com"

// APIError represents a non-2xx response from the prediction API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prediction API: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx)
// are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient is the production Client backed by the Replicate REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type predictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// CreatePrediction submits a generation job and returns immediately with
// the provider's id and initial status. It never waits for completion.
func (c *HTTPClient) CreatePrediction(ctx context.Context, prompt string) (*Prediction, error) {
	body, err := json.Marshal(predictionRequest{
		Version: ModelVersion,
		Input: map[string]any{
			"prompt":     prompt,
			"width":      FrameWidth,
			"height":     FrameHeight,
			"num_frames": NumFrames,
			"fps":        FrameRate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal prediction request: %w", err)
	}

	pred, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.logger.Info("prediction created", "prediction_id", pred.ID, "status", pred.Status)
	return pred, nil
}

// GetPrediction reads the current provider state of a job.
func (c *HTTPClient) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/v1/predictions/"+id, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body io.Reader) (*Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var pred Prediction
	if err := json.Unmarshal(respBody, &pred); err != nil {
		return nil, fmt.Errorf("parse prediction response: %w", err)
	}
	return &pred, nil
}
