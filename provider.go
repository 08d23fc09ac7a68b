package medcopy

import "context"

// Provider abstracts the upstream LLM backend behind the relay.
type Provider interface {
	// Chat sends a request and returns the first choice of the completion.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Name returns the provider name (e.g. "openai").
	Name() string
}

// Completer performs one completion exchange on behalf of the orchestrator.
//
// Implementations must not return errors or panic: every failure is reported
// as an Outcome with Succeeded == false and a readable Error.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, model string, temperature float64) Outcome
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, messages []ChatMessage, model string, temperature float64) Outcome

func (f CompleterFunc) Complete(ctx context.Context, messages []ChatMessage, model string, temperature float64) Outcome {
	return f(ctx, messages, model, temperature)
}
