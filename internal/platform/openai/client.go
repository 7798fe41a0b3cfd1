package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/observability"
	"github.com/yungbote/trendwatch-backend/internal/platform/envutil"
	"github.com/yungbote/trendwatch-backend/internal/platform/httpx"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/platform/promptstyle"
)

const defaultSystemPrompt = "You are an incident analyst for a customer support organization. " +
	"Answer in plain text. Separate sections with a single blank line and do not add headings."

// Client is the text generation capability used by the trend pipeline.
type Client interface {
	// GenerateText runs one system+user turn and returns the assistant text.
	GenerateText(ctx context.Context, system string, user string) (string, error)
	// Generate runs the prompt under the default analyst system prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// ExtractKeywords returns lowercase technical keywords found in text.
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature *float64
}

func ConfigFromEnv(log *logger.Logger) Config {
	cfg := Config{
		APIKey:     envutil.String("OPENAI_API_KEY", "", nil),
		BaseURL:    envutil.String("OPENAI_BASE_URL", "https://api.openai.com", log),
		Model:      envutil.String("OPENAI_MODEL", "gpt-4o-mini", log),
		Timeout:    time.Duration(envutil.Int("OPENAI_TIMEOUT_SECONDS", 60, log)) * time.Second,
		MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 3, log),
	}
	if !envutil.Bool("OPENAI_DISABLE_TEMPERATURE", false, log) {
		t := envutil.Float("OPENAI_TEMPERATURE", 0.2, log)
		cfg.Temperature = &t
	}
	return cfg
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	maxRetries  int
	temperature *float64
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return NewWithHTTPClient(log, cfg, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if log == nil {
		log = logger.Nop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:         log.With("client", "OpenAI"),
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		httpClient:  httpClient,
		maxRetries:  maxRetries,
		temperature: cfg.Temperature,
		sleep:       httpx.Sleep,
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func isUnsupportedTemperatureParam(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, marker := range []string{"unsupported parameter", "unknown parameter", "not supported", "does not support", "only the default"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, path string, body *responsesRequest, out any) error {
	backoff := 1 * time.Second
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			observe(body.Model, "ok", time.Since(start))
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			observe(body.Model, "error", time.Since(start))
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if sErr := c.sleep(ctx, sleepFor); sErr != nil {
			return sErr
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func observe(model, status string, d time.Duration) {
	if metrics := observability.Current(); metrics != nil {
		metrics.ObserveLLMRequest(model, status, d)
	}
}

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string           `json:"model"`
	Input       []responsesInput `json:"input"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				out.WriteString(c.Text)
			}
		}
	}
	return out.String()
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := &responsesRequest{
		Model: c.model,
		Input: []responsesInput{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	}

	var resp responsesResponse
	err := c.do(ctx, "/v1/responses", req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureParam(err) {
		// Retry exactly once without temperature.
		req.Temperature = nil
		err = c.do(ctx, "/v1/responses", req, &resp)
	}
	if err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.GenerateText(ctx, promptstyle.ApplySystem(defaultSystemPrompt, promptstyle.ModeSections), prompt)
}
