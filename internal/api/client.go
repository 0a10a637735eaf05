package api

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
)

// TokenSource supplies the bearer token attached to outbound requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// ErrorKind classifies gateway failures so callers can special-case
// timeouts without inspecting raw transport errors.
type ErrorKind string

const (
	KindTransport   ErrorKind = "transport"
	KindTimeout     ErrorKind = "timeout"
	KindApplication ErrorKind = "application"
	KindDecode      ErrorKind = "decode"
)

// Error is the single normalized error shape produced by the gateway.
// UI code never sees a raw transport exception.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsTimeout reports whether err is a gateway timeout, as distinct from other
// network failures.
func IsTimeout(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindTimeout
}

// envelope is the uniform response shape of the backend:
// {success, data?, message?, errors?}.
type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Message string           `json:"message"`
	Errors  validationErrors `json:"errors"`
}

// validationErrors tolerates both shapes the backend has used for validation
// failures: a flat array of strings and a field->messages map.
type validationErrors []string

func (v *validationErrors) UnmarshalJSON(data []byte) error {
	var flat []string
	if err := json.Unmarshal(data, &flat); err == nil {
		*v = flat
		return nil
	}

	var byField map[string][]string
	if err := json.Unmarshal(data, &byField); err == nil {
		var all []string
		for _, msgs := range byField {
			all = append(all, msgs...)
		}
		*v = all
		return nil
	}

	// Unknown shape. Drop it rather than failing the whole response.
	*v = nil
	return nil
}

// Client is the single chokepoint for outbound HTTP calls. It attaches auth,
// applies the request timeout and normalizes every failure into *Error.
type Client struct {
	baseURL string
	timeout time.Duration
	tokens  TokenSource
	http    *http.Client
	logger  *zap.Logger
}

// New creates a gateway client. baseURL carries the /api prefix.
func New(baseURL string, timeout time.Duration, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		tokens:  tokens,
		http:    &http.Client{},
		logger:  logger,
	}
}

// Get performs a GET request and decodes the envelope's data field into out.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post performs a POST request with a JSON body and decodes the envelope's
// data field into out.
func (c *Client) Post(ctx context.Context, endpoint string, body any, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindDecode, Message: fmt.Sprintf("failed to encode request body: %v", err)}
		}
		reader = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return &Error{Kind: KindTransport, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("request timed out",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.Duration("timeout", c.timeout),
			)
			return &Error{Kind: KindTimeout, Message: "Request timeout. Please try again."}
		}
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return &Error{Kind: KindTransport, Message: "Network error. Please check your connection."}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "Network error. Please check your connection."}
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return &Error{Kind: KindDecode, Message: "Unexpected response from server", Status: resp.StatusCode}
			}
			env = envelope{}
		}
	}

	c.logger.Info("request completed",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &Error{
			Kind:    KindApplication,
			Message: failureMessage(env),
			Status:  resp.StatusCode,
		}
	}

	if out != nil {
		if len(env.Data) == 0 {
			return &Error{Kind: KindDecode, Message: "Response is missing data", Status: resp.StatusCode}
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Kind: KindDecode, Message: "Unexpected response from server", Status: resp.StatusCode}
		}
	}

	return nil
}

// failureMessage builds the one human-readable message shown to the user.
// Validation error arrays are joined; otherwise the server message wins.
func failureMessage(env envelope) string {
	if len(env.Errors) > 0 {
		return strings.Join(env.Errors, ". ")
	}
	if env.Message != "" {
		return env.Message
	}
	return "Request failed"
}
