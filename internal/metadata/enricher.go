// Package metadata asks an LLM for display metadata for a video. A
// response that cannot be parsed into the expected shape is a soft
// failure: callers get no result rather than an error, and proceed
// without metadata.
package metadata

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

const DefaultBaseURL = "https://api.openai.com"

const systemPrompt = `You are a helpful assistant that generates engaging social media video metadata. For AI-generated videos, create viral-worthy titles. Always respond with valid JSON in this format: {"title": "engaging title here", "description": "engaging description here", "tags": ["tag1", "tag2", "tag3"]}`

// Result is the validated {title, description, tags} document.
type Result struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Enricher produces metadata for a title. A nil result with a nil error
// means the LLM gave nothing usable.
type Enricher interface {
	Enrich(ctx context.Context, title string, machineGenerated bool) (*Result, error)
}

// Disabled is the enricher used when no LLM is configured.
type Disabled struct{}

func (Disabled) Enrich(context.Context, string, bool) (*Result, error) {
	return nil, nil
}

// OpenAIEnricher requests a structured completion from the OpenAI chat
// completions API.
type OpenAIEnricher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenAIEnricher(baseURL, apiKey string, logger *slog.Logger) *OpenAIEnricher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenAIEnricher{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Enrich builds one of two prompt templates and validates the model's
// JSON reply. A machine-generated title gets the richer template that
// also rewrites the title.
func (e *OpenAIEnricher) Enrich(ctx context.Context, title string, machineGenerated bool) (*Result, error) {
	userPrompt := fmt.Sprintf("Generate a catchy description and 3-5 relevant tags for this video title: %q", title)
	if machineGenerated {
		userPrompt = fmt.Sprintf("This is an AI-generated video. Generate an engaging title, description, and 3-5 relevant tags that would work well on social media. The current title/prompt was: %q. Return as JSON with title, description, and tags.", title)
	}

	body, err := json.Marshal(chatRequest{
		Model: "gpt-4",
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm request: HTTP %d: %s", resp.StatusCode, respBody)
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("parse llm response envelope: %w", err)
	}
	if len(chat.Choices) == 0 {
		e.logger.Warn("llm returned no choices")
		return nil, nil
	}

	return parseResult(chat.Choices[0].Message.Content, e.logger), nil
}

// parseResult validates the completion content. Missing description or a
// non-list tags field means no result, not an error.
func parseResult(content string, logger *slog.Logger) *Result {
	var raw struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Tags        json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		logger.Warn("llm response is not valid JSON", "error", err)
		return nil
	}
	if raw.Description == "" {
		logger.Warn("llm response missing description")
		return nil
	}

	var tags []string
	if err := json.Unmarshal(raw.Tags, &tags); err != nil || tags == nil {
		logger.Warn("llm response tags is not a list")
		return nil
	}

	return &Result{
		Title:       raw.Title,
		Description: raw.Description,
		Tags:        tags,
	}
}
