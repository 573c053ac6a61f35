// Package render talks to the generative-video provider. The provider owns
// the job: this package only creates predictions and reads them back, it
// never mutates one.
package render

import (
	"context"
	"encoding/json"
	"fmt"
)

// Generation parameters sent with every prediction. 9:16 portrait at
// 30fps, five seconds of output.
const (
	ModelVersion = "luma/ray"
	FrameWidth   = 1080
	FrameHeight  = 1920
	NumFrames    = 150
	FrameRate    = 30
)

// Normalized provider statuses.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

// Client is the prediction API used by handlers. Implementations must be
// safe for concurrent use.
type Client interface {
	CreatePrediction(ctx context.Context, prompt string) (*Prediction, error)
	GetPrediction(ctx context.Context, id string) (*Prediction, error)
}

// Prediction is the provider's view of one generation job.
type Prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output Output `json:"output"`
	Error  string `json:"error"`
}

// Output normalizes the provider's output field, which is either a single
// URL string or a list of URL strings depending on the model.
type Output struct {
	URLs []string
}

func (o *Output) UnmarshalJSON(data []byte) error {
	o.URLs = nil
	if string(data) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			o.URLs = []string{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		o.URLs = many
		return nil
	}
	return fmt.Errorf("unexpected prediction output shape: %s", truncate(string(data), 64))
}

func (o Output) MarshalJSON() ([]byte, error) {
	switch len(o.URLs) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(o.URLs[0])
	default:
		return json.Marshal(o.URLs)
	}
}

// URL returns the primary output locator, or "" when none exists.
func (o Output) URL() string {
	if len(o.URLs) == 0 {
		return ""
	}
	return o.URLs[0]
}

// Terminal reports whether the prediction can no longer change.
func (p *Prediction) Terminal() bool {
	return p.Status == StatusSucceeded || p.Status == StatusFailed
}

// Progress maps a provider status to a coarse progress estimate. The
// values are indicative labels, not telemetry: starting=0.1,
// processing=0.5, succeeded=1.0, failed=0. Unknown statuses are treated
// as processing so the mapping stays total.
func Progress(status string) float64 {
	switch status {
	case StatusStarting:
		return 0.1
	case StatusSucceeded:
		return 1.0
	case StatusFailed:
		return 0.0
	default:
		return 0.5
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
