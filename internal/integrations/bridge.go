// Package integrations implements the HTTP bridge to the calendar and
// email provider collaborators.
//
// Both providers sit behind a single action-dispatch endpoint: the client
// posts {action, ...} JSON and forwards the caller's bearer token opaquely.
// The client never interprets the token. Failures are classified into a
// small taxonomy so the dialogue layer can pick a tailored user message.
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/juniperhq/concierge/internal/models"
)

// DefaultTimeout bounds every bridge call.
const DefaultTimeout = 15 * time.Second

// FailureKind classifies a collaborator failure.
type FailureKind string

const (
	FailureAuth       FailureKind = "auth"
	FailureQuota      FailureKind = "quota"
	FailureTimeout    FailureKind = "timeout"
	FailureValidation FailureKind = "validation"
	FailureGeneric    FailureKind = "generic"
)

// BridgeError carries a classified collaborator failure.
type BridgeError struct {
	Kind      FailureKind
	NeedsAuth bool
	Message   string
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge %s failure: %s", e.Kind, e.Message)
}

// AsBridgeError extracts a *BridgeError from err, wrapping unclassified
// errors as generic.
func AsBridgeError(err error) *BridgeError {
	var be *BridgeError
	if errors.As(err, &be) {
		return be
	}
	return &BridgeError{Kind: FailureGeneric, Message: err.Error()}
}

// EventRequest is the payload of a create_event action.
type EventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location"`
	TimeZone    string `json:"timeZone"`
}

// EventResult is the success shape of a create_event action.
type EventResult struct {
	Event       map[string]interface{} `json:"event"`
	CalendarURL string                 `json:"calendarUrl,omitempty"`
	Provider    string                 `json:"provider,omitempty"`
}

// Bridge is the collaborator surface the dialogue engine depends on.
type Bridge interface {
	CreateEvent(ctx context.Context, authHeader string, ev EventRequest) (*EventResult, error)
	GetEmails(ctx context.Context, authHeader string) ([]models.EmailMeta, error)
}

// Opts holds configuration options for the bridge client.
type Opts struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option defines a configuration option for the bridge client.
type Option func(*Opts)

// WithBaseURL sets the bridge endpoint URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client posts action JSON to the provider bridge endpoint.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a bridge client for the given endpoint.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("bridge base URL not set")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	slog.Debug("integrations.NewClient: bridge client created", "base_url", cfg.BaseURL, "timeout", cfg.Timeout)
	return &Client{baseURL: cfg.BaseURL, timeout: cfg.Timeout, httpClient: cfg.HTTPClient}, nil
}

// failureBody is the failure shape collaborators may return.
type failureBody struct {
	NeedsAuth bool   `json:"needsAuth"`
	Type      string `json:"type"`
	Error     string `json:"error"`
}

// CreateEvent invokes the create_event action.
func (c *Client) CreateEvent(ctx context.Context, authHeader string, ev EventRequest) (*EventResult, error) {
	payload := map[string]interface{}{"action": "create_event", "event": ev}
	body, err := c.do(ctx, authHeader, payload)
	if err != nil {
		return nil, err
	}
	var result EventResult
	if err := json.Unmarshal(body, &result); err != nil {
		slog.Error("integrations.CreateEvent: malformed success body", "error", err)
		return nil, &BridgeError{Kind: FailureGeneric, Message: "malformed calendar response"}
	}
	slog.Info("integrations.CreateEvent: event created", "has_url", result.CalendarURL != "")
	return &result, nil
}

// GetEmails invokes the get_emails action against the inbox folder.
func (c *Client) GetEmails(ctx context.Context, authHeader string) ([]models.EmailMeta, error) {
	payload := map[string]interface{}{"action": "get_emails", "folder": "inbox"}
	body, err := c.do(ctx, authHeader, payload)
	if err != nil {
		return nil, err
	}
	var result struct {
		Emails []models.EmailMeta `json:"emails"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		slog.Error("integrations.GetEmails: malformed success body", "error", err)
		return nil, &BridgeError{Kind: FailureGeneric, Message: "malformed email response"}
	}
	slog.Debug("integrations.GetEmails: fetched emails", "count", len(result.Emails))
	return result.Emails, nil
}

// do posts the action payload and returns the raw success body, or a
// classified *BridgeError.
func (c *Client) do(ctx context.Context, authHeader string, payload interface{}) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &BridgeError{Kind: FailureGeneric, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(raw))
	if err != nil {
		return nil, &BridgeError{Kind: FailureGeneric, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		// Forwarded opaquely; the bridge owns token semantics.
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			slog.Warn("integrations.do: bridge call timed out", "error", err)
			return nil, &BridgeError{Kind: FailureTimeout, Message: "collaborator timed out"}
		}
		slog.Error("integrations.do: bridge call failed", "error", err)
		return nil, &BridgeError{Kind: FailureGeneric, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BridgeError{Kind: FailureGeneric, Message: err.Error()}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, classifyFailure(resp.StatusCode, body)
}

// classifyFailure maps a non-2xx response into the failure taxonomy. A 401
// or an "Unauthorized"/"invalid claim" body is special-cased to auth so the
// user is prompted to reconnect their account.
func classifyFailure(status int, body []byte) *BridgeError {
	var fb failureBody
	_ = json.Unmarshal(body, &fb)
	message := fb.Error
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(status)
	}

	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized, fb.NeedsAuth, fb.Type == "auth",
		strings.Contains(lower, "unauthorized"), strings.Contains(lower, "invalid claim"):
		return &BridgeError{Kind: FailureAuth, NeedsAuth: true, Message: message}
	case status == http.StatusTooManyRequests, fb.Type == "quota":
		return &BridgeError{Kind: FailureQuota, Message: message}
	case status == http.StatusGatewayTimeout, fb.Type == "timeout":
		return &BridgeError{Kind: FailureTimeout, Message: message}
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, fb.Type == "validation":
		return &BridgeError{Kind: FailureValidation, Message: message}
	default:
		return &BridgeError{Kind: FailureGeneric, Message: message}
	}
}
