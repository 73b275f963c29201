package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/internal/logging"
)

// Transport sends one chat request and returns the raw reply. Implementations
// never retry; a failed call is reported to the caller as is.
type Transport interface {
	Send(ctx context.Context, req *ChatRequest) (*RawReply, error)
}

// ClientConfig configures the HTTP transport
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client is the chat-completions Transport over HTTP
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a chat-completions client. An empty APIKey is allowed when
// BaseURL points at a proxy that holds the credential.
func NewClient(cfg ClientConfig, logger logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.WithComponent("ai_transport"),
	}
}

// Send implements Transport
func (c *Client) Send(ctx context.Context, req *ChatRequest) (*RawReply, error) {
	if err := req.Validate(); err != nil {
		return nil, gwerrors.NewValidationError("messages", err.Error(), nil)
	}

	start := time.Now()
	body, err := json.Marshal(c.toWire(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, gwerrors.WrapContextError(ctx.Err(), "model request")
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if wire.Error != nil {
		return nil, fmt.Errorf("API error: %s", wire.Error.Message)
	}
	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("API returned no choices")
	}

	reply := fromWire(&wire)
	reply.Latency = time.Since(start)

	c.logger.DebugContext(ctx, "Model call finished",
		"model", reply.Model,
		"finish_reason", reply.FinishReason,
		"total_tokens", reply.Usage.TotalTokens,
		"latency_ms", reply.Latency.Milliseconds())

	return reply, nil
}

func (c *Client) toWire(req *ChatRequest) *wireRequest {
	wire := &wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if wire.Model == "" {
		wire.Model = c.config.Model
	}
	if wire.MaxTokens == 0 {
		wire.MaxTokens = c.config.MaxTokens
	}
	if wire.Temperature == nil {
		temperature := c.config.Temperature
		wire.Temperature = &temperature
	}

	switch {
	case req.Function != nil:
		wire.Functions = []FunctionSchema{*req.Function}
		wire.FunctionCall = &wireFunctionChoice{Name: req.Function.Name}
	case req.JSONMode:
		wire.ResponseFormat = &wireResponseFormat{Type: "json_object"}
	}
	return wire
}

func fromWire(wire *wireResponse) *RawReply {
	choice := wire.Choices[0]
	reply := &RawReply{
		FunctionCall: choice.Message.FunctionCall,
		FinishReason: choice.FinishReason,
		Usage:        wire.Usage,
		Model:        wire.Model,
	}
	if choice.Message.Content != nil {
		reply.Content = *choice.Message.Content
	}
	return reply
}
