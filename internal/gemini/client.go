// Package gemini calls the Google Gemini completion endpoint to produce a
// structured audit report for a piece of Solidity source code.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"solaudit/internal/config"
	"solaudit/internal/models"
)

var (
	// ErrProvider covers network failures and non-2xx provider responses.
	ErrProvider = errors.New("gemini provider error")
)

// Client is a thin HTTP client for the Gemini generateContent endpoint.
// API keys are supplied per call; they belong to users, not to the client.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Gemini client
func NewClient(cfg *config.GeminiConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Request/response structures for the generateContent API

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64         `json:"temperature"`
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Analyze submits the source code for auditing and returns the parsed,
// validated report. The returned result carries summary and categories only;
// the caller owns identity, code, and score normalization.
func (c *Client) Analyze(ctx context.Context, apiKey, code string) (*models.AuditResult, error) {
	raw, err := c.generate(ctx, apiKey, BuildPrompt(code))
	if err != nil {
		return nil, err
	}
	return ParseReport(raw)
}

// generate sends a single completion request and returns the response text
func (c *Client) generate(ctx context.Context, apiKey, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0.1,
			ResponseMimeType: "application/json",
			ResponseSchema:   json.RawMessage(ResponseSchema),
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrProvider, err)
	}

	var apiResp generateResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("%w: status %d: %v", ErrProvider, resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("%w: %s (status: %s, code: %d)",
			ErrProvider, apiResp.Error.Message, apiResp.Error.Status, apiResp.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: API returned status %d", ErrProvider, resp.StatusCode)
	}

	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrProvider)
	}

	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}
