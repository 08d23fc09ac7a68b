// Package openaicompat implements medcopy.Provider for OpenAI-compatible chat
// completions APIs (OpenAI, Azure OpenAI, OpenRouter, Groq, Ollama, vLLM, ...).
package openaicompat

import (
	"encoding/json"
	"strconv"
)

// --- Request types ---

// ChatRequest is the OpenAI chat completions request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Seed        *int      `json:"seed,omitempty"`
}

// Message is a single message in the OpenAI chat format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// --- Response types ---

// ChatResponse is the OpenAI chat completions response.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is a single completion choice.
type Choice struct {
	Index        int            `json:"index"`
	Message      *ChoiceMessage `json:"message,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
}

type ChoiceMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
	Refusal string `json:"refusal,omitempty"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Error types ---

// ErrorResponse is the body OpenAI returns with non-2xx statuses:
//
//	{"error": {"message": "...", "type": "insufficient_quota", "code": "insufficient_quota"}}
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

type APIError struct {
	Message string    `json:"message"`
	Type    string    `json:"type"`
	Code    ErrorCode `json:"code"`
}

// ErrorCode is the error.code field. OpenAI sends a string; some compatible
// gateways (OpenRouter) send the HTTP status as a number.
type ErrorCode string

func (c *ErrorCode) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		*c = ErrorCode(v)
	case float64:
		*c = ErrorCode(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		*c = ""
	}
	return nil
}

// Error codes the relay distinguishes.
const (
	CodeInsufficientQuota = "insufficient_quota"
	CodeInvalidAPIKey     = "invalid_api_key"
)
