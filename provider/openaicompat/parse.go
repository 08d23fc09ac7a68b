package openaicompat

import (
	"encoding/json"
	"net/http"

	"github.com/nevindra/medcopy"
)

// ParseResponse converts an OpenAI-format ChatResponse to a medcopy
// ChatResponse, taking role and content from choices[0]. A response without
// choices is an error: there is nothing to relay.
func ParseResponse(provider string, resp ChatResponse) (medcopy.ChatResponse, error) {
	var out medcopy.ChatResponse

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return out, &medcopy.ErrLLM{Provider: provider, Kind: medcopy.KindUnclassified, Message: "response has no choices"}
	}

	msg := resp.Choices[0].Message
	out.Role = medcopy.Role(msg.Role)
	if out.Role == "" {
		out.Role = medcopy.RoleAssistant
	}
	out.Content = msg.Content

	if resp.Usage != nil {
		out.Usage = medcopy.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

// ParseError converts a non-2xx response body into an error. Bodies in the
// OpenAI error format become *medcopy.ErrLLM with a classified Kind; anything
// else becomes *medcopy.ErrHTTP, which medcopy.KindOf classifies by status.
func ParseError(provider string, status int, body []byte) error {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == nil {
		return &medcopy.ErrHTTP{Status: status, Body: string(body)}
	}
	code := string(er.Error.Code)
	if code == "" {
		code = er.Error.Type
	}
	return &medcopy.ErrLLM{
		Provider: provider,
		Kind:     classify(status, code),
		Code:     code,
		Message:  er.Error.Message,
		Status:   status,
	}
}

func classify(status int, code string) medcopy.ErrorKind {
	switch {
	case code == CodeInsufficientQuota, status == http.StatusPaymentRequired:
		return medcopy.KindQuotaExceeded
	case code == CodeInvalidAPIKey, status == http.StatusUnauthorized:
		return medcopy.KindInvalidCredential
	default:
		return medcopy.KindUnclassified
	}
}
