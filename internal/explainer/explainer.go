// Package explainer asks a chat-completion API to describe a trading signal
// in plain English. Failures never propagate: Explain always returns display
// text, prefixed with WarningMarker when the call did not succeed.
package explainer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAPIURL   = "https://api.openai.com/v1"
	DefaultModel    = "gpt-3.5-turbo"
	DefaultStrategy = "Moving Averages & Momentum"
	DefaultTimeout  = 30 * time.Second

	// Temperature is fixed; callers cannot tune it.
	Temperature = 0.6

	WarningMarker = "⚠️"

	maxResponseBytes = 1 << 20
)

const promptTemplate = `You are the AI engine behind Moonia, an advanced stock strategist app.

Your job is to explain this stock signal clearly to a retail investor. Be professional but friendly. Do NOT give financial advice or guarantee outcomes. Focus on the signal, the reasoning, and what a user may wish to think about. Write about 3-5 sentences.

Stock: %s
Strategy: %s
Signal: %s

Explain what this signal likely means based on the strategy and why it was triggered.
`

// Config holds the endpoint and credential of the chat-completion service.
type Config struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
	Proxy   string
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Status)
}

// Client is a stateless chat-completion client.
type Client struct {
	Config Config
	HTTP   *http.Client
	Logger *zap.Logger
}

// New creates a Client, filling unset config fields with defaults.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		Config: cfg,
		HTTP:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		Logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// BuildPrompt renders the instruction sent to the model.
func BuildPrompt(ticker, direction, strategy string) string {
	if strategy == "" {
		strategy = DefaultStrategy
	}
	return fmt.Sprintf(promptTemplate, ticker, strategy, direction)
}

// Explain returns a short explanation of direction for ticker under strategy,
// or a WarningMarker-prefixed description of what went wrong.
func (c *Client) Explain(ctx context.Context, ticker, direction, strategy string) string {
	ctx, cancel := context.WithTimeout(ctx, c.Config.Timeout)
	defer cancel()

	text, err := c.complete(ctx, BuildPrompt(ticker, direction, strategy))
	if err != nil {
		c.Logger.Warn("explanation failed", zap.String("symbol", ticker), zap.Error(err))
		return c.failureText(err)
	}
	return text
}

// IsFailure reports whether text is an error message produced by Explain.
func IsFailure(text string) bool {
	return strings.HasPrefix(text, WarningMarker)
}

func (c *Client) failureText(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("%s Explanation timed out after %s: %v", WarningMarker, c.Config.Timeout, err)
	}
	return fmt.Sprintf("%s Error generating explanation: %v", WarningMarker, err)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.Config.APIKey == "" {
		return "", errors.New("missing api key")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.Config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.Config.APIURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Config.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(respBody))}
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("response has no choices")
	}
	text := strings.TrimSpace(chat.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("response content is empty")
	}
	return text, nil
}
