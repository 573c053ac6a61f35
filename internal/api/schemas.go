package api

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateResponse struct {
	Success            bool   `json:"success"`
	ID                 string `json:"id,omitempty"`
	Status             string `json:"status,omitempty"`
	IsModeratedContent bool   `json:"isModeratedContent,omitempty"`
}

// StatusResponse reports the normalized provider status plus, once the
// job succeeded and post-processing ran, the derived asset locators.
// Generation failure (Error) and post-processing failure
// (ProcessingError) are distinct: a succeeded generation stays
// "succeeded" even when a pipeline stage failed.
type StatusResponse struct {
	Success         bool    `json:"success"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	Output          string  `json:"output,omitempty"`
	Error           string  `json:"error,omitempty"`
	VideoURL        string  `json:"videoUrl,omitempty"`
	ThumbnailURL    string  `json:"thumbnailUrl,omitempty"`
	PreviewURL      string  `json:"previewUrl,omitempty"`
	HLSURL          string  `json:"hlsUrl,omitempty"`
	ProcessingError string  `json:"processingError,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}
