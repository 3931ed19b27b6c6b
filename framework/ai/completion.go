package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/container"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

const systemPrompt = "You are an assistant for a Go dependency injection container. " +
	"Answer briefly. When asked for names, reply with one name per line and nothing else."

// CompletionConfig describes an OpenAI-compatible chat completion endpoint.
type CompletionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// CompletionAdapter talks to an OpenAI-compatible /chat/completions
// endpoint. Without an API key it is disabled and Suggest/Predict fall back
// to the local heuristics.
type CompletionAdapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	fallback   *LocalAdapter
	logger     *zap.Logger
	cache      Cache
}

// Cache keeps completions between runs. *cache.FileCache implements it.
type Cache interface {
	Retrieve(key string) (any, bool, error)
	Store(key string, data any, ttl time.Duration) error
}

// NewCompletionAdapter creates a CompletionAdapter. keys feeds the local
// fallback and may be nil.
func NewCompletionAdapter(cfg CompletionConfig, keys KeySource, logger *zap.Logger) *CompletionAdapter {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionAdapter{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		fallback:   NewLocalAdapter(keys),
		logger:     logger,
	}
}

// WithCache answers repeated prompts from c. Entries use c's default TTL.
func (a *CompletionAdapter) WithCache(c Cache) *CompletionAdapter {
	a.cache = c
	return a
}

func (a *CompletionAdapter) Enabled() bool { return a.apiKey != "" }

func (a *CompletionAdapter) Suggest(ctx context.Context, hint string) []string {
	if !a.Enabled() {
		return a.fallback.Suggest(ctx, hint)
	}
	out, err := a.Complete(ctx, fmt.Sprintf("Suggest service names useful in the context %q.", hint))
	if err != nil {
		a.logger.Warn("ai suggest failed, using local heuristics", zap.Error(err))
		return a.fallback.Suggest(ctx, hint)
	}
	return lines(out)
}

func (a *CompletionAdapter) Predict(ctx context.Context, namespace string) []string {
	if !a.Enabled() {
		return a.fallback.Predict(ctx, namespace)
	}
	out, err := a.Complete(ctx, fmt.Sprintf("Predict likely service keys under the namespace %q.", namespace))
	if err != nil {
		a.logger.Warn("ai predict failed, using local heuristics", zap.Error(err))
		return a.fallback.Predict(ctx, namespace)
	}
	return lines(out)
}

// ExplainDependencies asks the endpoint to comment on ex.
func (a *CompletionAdapter) ExplainDependencies(ctx context.Context, ex container.Explanation) (string, error) {
	if !a.Enabled() {
		return a.fallback.ExplainDependencies(ctx, ex)
	}
	return a.Complete(ctx, "Explain the dependencies and design implications of this binding: "+describe(ex))
}

// Complete sends prompt and returns the first choice's content.
func (a *CompletionAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}

	key := "ai.completion:" + a.model + ":" + prompt
	if a.cache != nil {
		cached, ok, err := a.cache.Retrieve(key)
		if err != nil {
			a.logger.Debug("completion cache unreadable", zap.Error(err))
		}
		if s, isString := cached.(string); ok && isString {
			return s, nil
		}
	}

	content, err := a.request(ctx, prompt)
	if err != nil {
		return "", err
	}
	if a.cache != nil {
		if err := a.cache.Store(key, content, 0); err != nil {
			a.logger.Warn("completion cache write failed", zap.Error(err))
		}
	}
	return content, nil
}

func (a *CompletionAdapter) request(ctx context.Context, prompt string) (string, error) {
	payload, err := a.buildPayload(prompt)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("completion status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("completion returned empty content")
	}
	return content, nil
}

func (a *CompletionAdapter) buildPayload(prompt string) ([]byte, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	body := map[string]any{
		"model": a.model,
		"messages": []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		"temperature": 0.2,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}
	return encoded, nil
}

func lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
