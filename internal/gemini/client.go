// Package gemini drafts Bot API call parameters with Google's Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/botconsole/internal/backend"
	"github.com/edgard/botconsole/internal/config"
	apperrors "github.com/edgard/botconsole/internal/errors"
)

const (
	defaultMaxRetries = 2
	defaultRetryDelay = time.Second
)

// Drafter turns a method name and a free-text intent into a params object.
type Drafter interface {
	DraftParams(ctx context.Context, method, intent string) (string, error)
}

type sdkClient struct {
	genaiClient   *genai.Client
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	timeout       time.Duration
	maxRetries    int
	retryDelay    time.Duration
}

// Option adjusts the client before it is created.
type Option func(*genai.ClientConfig)

// WithBaseURL points the SDK at another Gemini API endpoint.
func WithBaseURL(url string) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
	}
}

// NewClient creates a drafter backed by the Gemini API. It fails when no API
// key is configured; callers check cfg.Enabled first.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger, opts ...Option) (Drafter, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigError("gemini API key is required", nil)
	}
	if log == nil {
		log = slog.Default()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	contentCfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: DraftParamsSystemInstruction}},
		},
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized", "model", cfg.Model)
	return &sdkClient{
		genaiClient:   gi,
		log:           logger,
		contentConfig: contentCfg,
		modelName:     cfg.Model,
		timeout:       cfg.Timeout,
		maxRetries:    defaultMaxRetries,
		retryDelay:    defaultRetryDelay,
	}, nil
}

// DraftParams asks the model for the params of method and returns them as
// indented JSON ready for the params box.
func (c *sdkClient) DraftParams(ctx context.Context, method, intent string) (string, error) {
	method = strings.TrimSpace(method)
	intent = strings.TrimSpace(intent)
	if method == "" {
		return "", apperrors.NewValidationError("method is required", nil)
	}
	if intent == "" {
		return "", apperrors.NewValidationError("intent is required", nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(DraftParamsPromptTemplate, method, intent), genai.RoleUser),
	}

	startTime := time.Now()
	resp, err := c.generateContentWithRetries(ctx, contents)
	if err != nil {
		return "", apperrors.NewTransportError("gemini request failed", err)
	}

	text := resp.Text()
	params, err := backend.ParseParams(stripCodeFence(text))
	if err != nil {
		c.log.WarnContext(ctx, "Gemini returned invalid params", "method", method, "response_length", len(text))
		return "", apperrors.NewDecodeError("model did not return valid JSON", err)
	}
	if len(params) == 0 || params[0] != '{' {
		return "", apperrors.NewDecodeError("model did not return a JSON object", nil)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, params, "", "  "); err != nil {
		return "", apperrors.NewDecodeError("failed to format params", err)
	}

	c.log.InfoContext(ctx, "Params drafted", "method", method, "duration", time.Since(startTime))
	return out.String(), nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		resp, err := c.genaiClient.Models.GenerateContent(ctx, c.modelName, contents, c.contentConfig)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr genai.APIError
		retriable := errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503)
		if !retriable || i == c.maxRetries {
			c.log.ErrorContext(ctx, "Gemini API call failed", "attempt", i+1, "error", err)
			break
		}

		c.log.WarnContext(ctx, "Retrying Gemini API call", "attempt", i+1, "code", apiErr.Code, "delay", c.retryDelay)
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// stripCodeFence removes a surrounding markdown code fence, which models
// sometimes add despite the instruction.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
