package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ateesdalejr/podlistener/pkg/config"
	apperrors "github.com/ateesdalejr/podlistener/pkg/errors"
)

// ErrModelNotFound means the configured local model is not pulled; retrying
// cannot help, the operator has to pull it.
var ErrModelNotFound = errors.New("llm model not found")

// Enricher analyzes transcript segments.
type Enricher interface {
	// Enrich analyzes one keyword mention. In strict mode the final failure
	// propagates; otherwise the sentinel default record is returned so legacy
	// first-write paths never block on the LLM.
	Enrich(ctx context.Context, keyword, segment string, strict bool) (Record, error)
}

// Client calls the configured LLM provider with pacing and 429-aware retry.
type Client struct {
	cfg    config.LLMConfig
	client *http.Client
	pacer  *Pacer
}

// NewClient creates an enrichment client. All instances should share one
// client per process so the pacer serializes calls across workers.
func NewClient(cfg config.LLMConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		pacer:  NewPacer(cfg.MinInterval),
	}
}

func (c *Client) Enrich(ctx context.Context, keyword, segment string, strict bool) (Record, error) {
	prompt := BuildPrompt(keyword, segment)

	record, err := c.callWithRetry(ctx, prompt)
	if err != nil {
		if strict {
			return Record{}, err
		}
		log.Printf("[WARN] Enrichment failed for keyword %q, using default record: %v", keyword, err)
		return DefaultRecord(), nil
	}
	return record, nil
}

// callWithRetry runs the provider call up to RetryAttempts+1 times with
// exponential backoff. A 429 Retry-After header wins over the computed delay,
// clamped to [0, RetryMax].
func (c *Client) callWithRetry(ctx context.Context, prompt string) (Record, error) {
	attempts := c.cfg.RetryAttempts + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return Record{}, err
		}

		content, err := c.call(ctx, prompt)
		if err == nil {
			return parseRecord(content)
		}
		lastErr = err

		if !retryable(err) {
			return Record{}, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := c.retryDelay(err, attempt)
		log.Printf("[WARN] LLM call failed (attempt %d/%d), retrying in %s: %v", attempt+1, attempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Record{}, ctx.Err()
		}
	}
	return Record{}, fmt.Errorf("enrichment failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) retryDelay(err error, attempt int) time.Duration {
	base := c.cfg.RetryBase
	if base <= 0 {
		base = time.Second
	}
	max := c.cfg.RetryMax
	if max <= 0 {
		max = time.Minute
	}

	delay := base << uint(attempt)
	if delay > max {
		delay = max
	}

	var statusErr *apperrors.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		if d, ok := apperrors.ParseRetryAfter(statusErr.RetryAfter, time.Now()); ok {
			if d > max {
				d = max
			}
			return d
		}
	}
	return delay
}

// retryable classifies an error. Transport errors and the retryable statuses
// retry; everything else (model not found, malformed config) is final.
func retryable(err error) bool {
	if errors.Is(err, ErrModelNotFound) {
		return false
	}
	var statusErr *apperrors.StatusError
	if errors.As(err, &statusErr) {
		return apperrors.IsRetryableStatus(statusErr.StatusCode)
	}
	// Transport-level failure
	return true
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Provider == "openrouter" {
		return c.callOpenRouter(ctx, prompt)
	}
	return c.callOllama(ctx, prompt)
}

func (c *Client) callOpenRouter(ctx context.Context, prompt string) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", apperrors.ConfigError("llm.openrouter_api_key", "is required for the openrouter provider")
	}

	payload := map[string]interface{}{
		"model":           c.cfg.OpenRouterModel,
		"messages":        []map[string]string{{"role": "user", "content": prompt}},
		"response_format": map[string]string{"type": "json_object"},
	}

	req, err := c.newJSONRequest(ctx, openRouterEndpoint(c.cfg.OpenRouterBaseURL), payload)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
	if c.cfg.OpenRouterSiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.OpenRouterSiteURL)
	}
	if c.cfg.OpenRouterAppName != "" {
		req.Header.Set("X-Title", c.cfg.OpenRouterAppName)
	}

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding openrouter response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openrouter response has no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// openRouterEndpoint normalizes the base URL so both .../api/v1 and .../v1
// forms reach the chat completions endpoint.
func openRouterEndpoint(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/api/v1") || strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/api/v1/chat/completions"
}

func (c *Client) callOllama(ctx context.Context, prompt string) (string, error) {
	chatPayload := map[string]interface{}{
		"model":    c.cfg.OllamaModel,
		"messages": []map[string]string{{"role": "user", "content": prompt}},
		"stream":   false,
		"format":   "json",
	}
	req, err := c.newJSONRequest(ctx, c.cfg.OllamaBaseURL+"/api/chat", chatPayload)
	if err != nil {
		return "", err
	}

	body, err := c.do(req)
	if err == nil {
		var result struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}
		if jsonErr := json.Unmarshal(body, &result); jsonErr != nil {
			return "", fmt.Errorf("decoding ollama chat response: %w", jsonErr)
		}
		return result.Message.Content, nil
	}

	// Older ollama builds have no /api/chat; a 404 whose body names a missing
	// model is fatal, a plain 404 falls back to /api/generate once.
	var statusErr *apperrors.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		return "", err
	}
	if modelErr := c.checkModelNotFound(statusErr.Body); modelErr != nil {
		return "", modelErr
	}
	log.Printf("[WARN] Ollama /api/chat returned 404, trying /api/generate fallback")

	generatePayload := map[string]interface{}{
		"model":  c.cfg.OllamaModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	req, err = c.newJSONRequest(ctx, c.cfg.OllamaBaseURL+"/api/generate", generatePayload)
	if err != nil {
		return "", err
	}

	body, err = c.do(req)
	if err != nil {
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			if modelErr := c.checkModelNotFound(statusErr.Body); modelErr != nil {
				return "", modelErr
			}
		}
		return "", err
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding ollama generate response: %w", err)
	}
	return result.Response, nil
}

// checkModelNotFound inspects a 404 body for ollama's missing-model error.
func (c *Client) checkModelNotFound(body string) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil
	}
	errText := strings.ToLower(payload.Error)
	if strings.Contains(errText, "model") && strings.Contains(errText, "not found") {
		return fmt.Errorf("%w: pull %q on the ollama host first", ErrModelNotFound, c.cfg.OllamaModel)
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, url string, payload interface{}) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes the request and returns the body, converting non-2xx responses
// into StatusError for retry classification.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading llm response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewStatusError(resp, string(body))
	}
	return body, nil
}
