package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/nevindra/medcopy"
)

const (
	// ClientDefaultModel and ClientDefaultTemperature are sent when the caller
	// passes an empty model or a NaN temperature.
	ClientDefaultModel       = "gpt-3.5-turbo"
	ClientDefaultTemperature = 0.7

	maxResponseBodyBytes = 16 << 20 // 16MB
)

// Client posts completion requests to a relay Handler. It implements
// medcopy.Completer and never returns an error: every failure is folded
// into the returned Outcome.
type Client struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for relay calls.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.client = c }
}

// WithClientLogger sets the structured logger for failed calls.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a Client for the relay at url
// (e.g. "http://localhost:3000/api/openai").
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{url: url, client: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// URL returns the relay endpoint.
func (c *Client) URL() string { return c.url }

// Complete sends one conversation to the relay.
func (c *Client) Complete(ctx context.Context, messages []medcopy.ChatMessage, model string, temperature float64) medcopy.Outcome {
	if len(messages) == 0 {
		return medcopy.Failure(medcopy.KindUnclassified, "messages must not be empty")
	}
	if model == "" {
		model = ClientDefaultModel
	}
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		temperature = ClientDefaultTemperature
	}

	out := c.do(ctx, Request{Messages: messages, Model: model, Temperature: &temperature})
	if !out.Succeeded {
		c.logger.Warn("relay call failed", "url", c.url, "model", model, "kind", out.Kind, "error", out.Error)
	}
	return out
}

func (c *Client) do(ctx context.Context, req Request) medcopy.Outcome {
	payload, err := json.Marshal(req)
	if err != nil {
		return medcopy.Failure(medcopy.KindUnclassified, fmt.Sprintf("marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return medcopy.Failure(medcopy.KindUnclassified, fmt.Sprintf("create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return medcopy.Failure(medcopy.KindUnclassified, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return medcopy.Failure(medcopy.KindUnclassified, fmt.Sprintf("read response: %v", err))
	}

	var rr Response
	decodeErr := json.Unmarshal(body, &rr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := msgClientFallback
		if decodeErr == nil && rr.Error != "" {
			msg = rr.Error
		}
		return medcopy.Failure(medcopy.KindFromStatus(resp.StatusCode), msg)
	}
	if decodeErr != nil {
		return medcopy.Failure(medcopy.KindUnclassified, fmt.Sprintf("decode response: %v", decodeErr))
	}
	if !rr.Success || rr.Data == nil {
		return medcopy.Failure(medcopy.KindUnclassified, rr.Error)
	}

	var usage medcopy.Usage
	if rr.Usage != nil {
		usage = *rr.Usage
	}
	return medcopy.Success(rr.Data.Content, usage)
}

var _ medcopy.Completer = (*Client)(nil)
