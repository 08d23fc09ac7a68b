package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nevindra/medcopy"
)

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1"

// maxErrorBody caps how much of a failed response is read for error parsing.
const maxErrorBody = 64 << 10

// Provider implements medcopy.Provider for any OpenAI-compatible API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	name    string
	opts    []Option
	logger  *slog.Logger
}

// NewProvider creates an OpenAI-compatible chat provider.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "http://localhost:11434/v1"); the /chat/completions path is appended
// automatically. model is used when a request does not name one.
func NewProvider(apiKey, model, baseURL string, opts ...ProviderOption) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		name:    "openai",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name (default "openai", configurable via WithName).
func (p *Provider) Name() string { return p.name }

// Model returns the default model.
func (p *Provider) Model() string { return p.model }

// Chat sends a non-streaming chat request and returns the first choice.
// req.Model and req.Temperature override the provider defaults.
func (p *Provider) Chat(ctx context.Context, req medcopy.ChatRequest) (medcopy.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	opts := p.opts
	if req.Temperature != nil {
		opts = append(opts[:len(opts):len(opts)], WithTemperature(*req.Temperature))
	}
	body := BuildBody(req.Messages, model, opts...)

	resp, err := p.sendHTTP(ctx, body)
	if err != nil {
		return medcopy.ChatResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := ParseError(p.name, resp.StatusCode, raw)
		if p.logger != nil {
			p.logger.Warn("upstream error", "provider", p.name, "model", model,
				"status", resp.StatusCode, "kind", medcopy.KindOf(err))
		}
		return medcopy.ChatResponse{}, err
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return medcopy.ChatResponse{}, &medcopy.ErrLLM{Provider: p.name, Kind: medcopy.KindUnclassified, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return ParseResponse(p.name, chatResp)
}

// sendHTTP marshals the request body and sends it to the chat completions endpoint.
func (p *Provider) sendHTTP(ctx context.Context, body ChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &medcopy.ErrLLM{Provider: p.name, Kind: medcopy.KindUnclassified, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &medcopy.ErrLLM{Provider: p.name, Kind: medcopy.KindUnclassified, Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	return p.client.Do(httpReq)
}

// Compile-time interface check.
var _ medcopy.Provider = (*Provider)(nil)
