// Package relay carries chat-completion requests between the batch
// orchestrator and the upstream LLM API.
//
// Handler is the server side: it holds the API credential, applies request
// defaults and maps upstream failures onto a small set of HTTP statuses.
// Client is the caller side: it posts to a Handler and folds every outcome,
// including transport failures, into a medcopy.Outcome.
package relay

import (
	"encoding/json"

	"github.com/nevindra/medcopy"
)

// Request is the JSON body accepted by Handler.
type Request struct {
	Messages    []medcopy.ChatMessage `json:"messages"`
	Model       string                `json:"model,omitempty"`
	Temperature *float64              `json:"temperature,omitempty"`
}

// Response is the JSON body returned by Handler. Successful replies carry
// Success, Data and Usage; failed replies carry only Error.
type Response struct {
	Success bool           `json:"success,omitempty"`
	Data    *Message       `json:"data,omitempty"`
	Usage   *medcopy.Usage `json:"usage,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Message is the first choice of the upstream completion.
type Message struct {
	Role    medcopy.Role `json:"role"`
	Content string       `json:"content"`
}

// Descriptor is the static body served on GET.
type Descriptor struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// rawRequest defers decoding of messages so that a missing, null or
// non-array value can be told apart from a malformed element.
type rawRequest struct {
	Messages    json.RawMessage `json:"messages"`
	Model       string          `json:"model"`
	Temperature *float64        `json:"temperature"`
}

// Error bodies.
const (
	msgMessagesRequired = "Messages array is required"
	msgInvalidJSON      = "Invalid JSON body"
	msgInvalidRole      = "Invalid message role"
	msgNotConfigured    = "OpenAI API key not configured"
	msgQuotaExceeded    = "OpenAI API quota exceeded"
	msgInvalidKey       = "Invalid OpenAI API key"
	msgInternal         = "Internal server error"
	msgMethodNotAllowed = "method not allowed"
	msgRunning          = "OpenAI API endpoint is running"
	msgClientFallback   = "Failed to call OpenAI API"
)
