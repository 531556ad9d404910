// Package provider adapts the external messaging provider's HTTP API to the
// MessageSender port. The provider is a black box: one request per recipient,
// binary success or failure.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxErrorBodyBytes caps how much of a provider error response gets read into
// the failure record.
const maxErrorBodyBytes = 2048

const defaultTimeout = 10 * time.Second

// GatewayOptions holds the dependencies for creating a Gateway.
type GatewayOptions struct {
	BaseURL    string        // Required: provider endpoint URL
	APIKey     string        // Required: provider API key
	HTTPClient *http.Client  // Optional: defaults to a client with Timeout
	Timeout    time.Duration // Optional: default client timeout
	Logger     *slog.Logger  // Optional: structured logger
}

// Gateway sends messages through the provider's HTTP API.
type Gateway struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewGateway creates a new provider Gateway.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("provider BaseURL is required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("provider APIKey is required")
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "provider_gateway")
	}
	return &Gateway{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		http:    client,
		logger:  logger,
	}, nil
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send delivers one message. A nil return means the provider accepted it; any
// error is a per-recipient dispatch failure. There is no retry here: retry
// policy belongs to the caller, and the dispatch worker deliberately has none.
func (g *Gateway) Send(ctx context.Context, contactAddress, message string) error {
	payload, err := json.Marshal(sendRequest{To: contactAddress, Message: message})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && g.logger != nil {
			g.logger.WarnContext(ctx, "failed to close provider response body", "err", closeErr)
		}
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if readErr != nil {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}
