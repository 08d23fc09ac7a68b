package openaicompat

import "github.com/nevindra/medcopy"

// BuildBody converts medcopy ChatMessages and a model name into an OpenAI-format
// ChatRequest. Options are applied in order, so later options win.
func BuildBody(messages []medcopy.ChatMessage, model string, opts ...Option) ChatRequest {
	msgs := make([]Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, Message{Role: string(m.Role), Content: m.Content})
	}

	req := ChatRequest{
		Model:    model,
		Messages: msgs,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}
