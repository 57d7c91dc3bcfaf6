// Package explain asks an OpenAI-compatible chat-completions API (DeepSeek by
// default) to explain a LaTeX formula in Markdown.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"latex-ocr/src/apperr"
)

const (
	defaultTimeout   = 30 * time.Second
	maxRetries       = 3
	initialDelay     = 1 * time.Second
	maxResponseBytes = 1 << 20

	systemPrompt = "You are a mathematics tutor. Explain LaTeX formulas in Markdown. " +
		"Use $...$ for inline math and $$...$$ for display math."
	userPrompt = "Explain the following formula: what it means, what each symbol stands for, " +
		"and where it is typically used.\n\n$$%s$$"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message Message `json:"message"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // Can be string or number
}

// Result is the outcome of one explanation run.
type Result struct {
	Text string
	Err  error
}

// Client talks to a single chat-completions endpoint.
type Client struct {
	endpoint string
	model    string
	http     *http.Client
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a client. A non-positive timeout falls back to 30s.
func New(endpoint, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		sleep:    sleepContext,
	}
}

// Start runs Explain in a goroutine and delivers its single Result.
func (c *Client) Start(ctx context.Context, latex, apiKey string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		text, err := c.Explain(ctx, latex, apiKey)
		out <- Result{Text: text, Err: err}
	}()
	return out
}

// Explain returns a Markdown explanation of latex. Transport failures and 5xx/429
// responses are retried with a growing delay; everything else fails at once.
func (c *Client) Explain(ctx context.Context, latex, apiKey string) (string, error) {
	latex = strings.TrimSpace(latex)
	if latex == "" {
		return "", apperr.New(apperr.KindValidation, "nothing to explain")
	}
	if strings.TrimSpace(apiKey) == "" {
		return "", apperr.New(apperr.KindConfig, "explanation API key is not configured")
	}

	request := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPrompt, latex)},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(initialDelay) * (1.5 * float64(attempt)))
			if err := c.sleep(ctx, delay); err != nil {
				return "", apperr.Wrap(err, apperr.KindNetwork, "network error")
			}
		}

		response, retry, err := c.makeAPIRequest(ctx, request, apiKey)
		if err != nil {
			lastErr = err
			if !retry {
				return "", err
			}
			log.Printf("Explain: attempt %d failed: %v", attempt+1, err)
			continue
		}

		if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
			return "", apperr.New(apperr.KindValidation, "empty explanation")
		}
		return strings.TrimSpace(response.Choices[0].Message.Content), nil
	}
	return "", lastErr
}

func (c *Client) makeAPIRequest(ctx context.Context, request ChatRequest, apiKey string) (*ChatResponse, bool, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, false, apperr.Wrap(err, apperr.KindParse, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, false, apperr.Wrap(err, apperr.KindConfig, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, apperr.Wrap(err, apperr.KindNetwork, "network error")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ctx.Err() == nil, apperr.Wrap(err, apperr.KindNetwork, "network error")
	}
	retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, retry, apperr.Newf(apperr.KindRemote, "API returned status %d", resp.StatusCode)
		}
		return nil, false, apperr.Wrap(err, apperr.KindParse, "failed to parse response")
	}
	if response.Error != nil {
		return nil, retry, apperr.Newf(apperr.KindRemote, "API error: %s", response.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry, apperr.Newf(apperr.KindRemote, "API returned status %d", resp.StatusCode)
	}
	return &response, false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
