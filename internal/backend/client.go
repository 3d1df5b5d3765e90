package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/edgard/botconsole/internal/errors"
)

// ParamsErrorMessage is shown when the params text box does not hold JSON.
const ParamsErrorMessage = "Params must be valid JSON"

// DefaultTimeout bounds a single round trip when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client talks to the bot proxy over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client for the proxy at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backend base URL cannot be empty")
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "backend_client")

	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Validate checks token and returns the bot account it belongs to. A nil
// BotInfo with a nil error means the proxy answered without a result.
func (c *Client) Validate(ctx context.Context, token string) (*BotInfo, error) {
	raw, err := c.post(ctx, PathValidate, tokenRequest{Token: token})
	if err != nil {
		return nil, err
	}
	if isAbsent(raw) {
		return nil, nil
	}

	var info BotInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, apperrors.NewDecodeError("failed to decode bot info", err)
	}
	return &info, nil
}

// FetchCommands returns the bot's configured commands. The list is never
// nil on success.
func (c *Client) FetchCommands(ctx context.Context, token string) ([]Command, error) {
	raw, err := c.post(ctx, PathCommands, tokenRequest{Token: token})
	if err != nil {
		return nil, err
	}
	if isAbsent(raw) {
		return []Command{}, nil
	}

	var commands []Command
	if err := json.Unmarshal(raw, &commands); err != nil {
		return nil, apperrors.NewDecodeError("failed to decode command list", err)
	}
	if commands == nil {
		commands = []Command{}
	}
	return commands, nil
}

// SendMessage sends text to a chat and returns the proxy's result verbatim.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (json.RawMessage, error) {
	raw, err := c.post(ctx, PathSend, req)
	if err != nil {
		return nil, err
	}
	if isAbsent(raw) {
		return nil, nil
	}
	return raw, nil
}

// CallMethod invokes an arbitrary remote method and returns its result
// verbatim. Nil params are sent as an empty object.
func (c *Client) CallMethod(ctx context.Context, req CallMethodRequest) (json.RawMessage, error) {
	if len(req.Params) == 0 {
		req.Params = json.RawMessage(`{}`)
	}
	raw, err := c.post(ctx, PathCall, req)
	if err != nil {
		return nil, err
	}
	if isAbsent(raw) {
		return nil, nil
	}
	return raw, nil
}

// ParseParams turns the params text box into a JSON value. Blank input
// means an empty object.
func ParseParams(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid([]byte(trimmed)) {
		var probe any
		cause := json.Unmarshal([]byte(trimmed), &probe)
		return nil, apperrors.NewValidationError(ParamsErrorMessage, cause)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(trimmed)); err != nil {
		return nil, apperrors.NewValidationError(ParamsErrorMessage, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

// post sends body to path and unwraps the response envelope. The body is
// parsed as JSON regardless of status; the status only selects the branch.
func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.NewTransportError("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewTransportError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "Backend request failed", "path", path, "error", err)
		return nil, apperrors.NewTransportError("request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NewTransportError("failed to read response", err)
	}

	c.log.DebugContext(ctx, "Backend responded",
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(startTime))

	if !json.Valid(data) {
		var probe any
		cause := json.Unmarshal(data, &probe)
		if cause == nil {
			cause = fmt.Errorf("response body is not valid JSON")
		}
		return nil, apperrors.NewTransportError("failed to decode response", cause)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewBackendError(resp.StatusCode, describeFailure(data), data)
	}

	var env successEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperrors.NewDecodeError("failed to decode response envelope", err)
	}
	return env.Result, nil
}

// describeFailure returns detail.description when it is a non-empty string,
// otherwise the whole body re-serialized as compact JSON.
func describeFailure(body []byte) string {
	var env failureEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Detail != nil {
		var description string
		if err := json.Unmarshal(env.Detail.Description, &description); err == nil && description != "" {
			return description
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return string(body)
	}
	return buf.String()
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
