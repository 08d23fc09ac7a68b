package openaicompat

// Option sets a generation parameter on the outgoing request body.
type Option func(*ChatRequest)

// WithTemperature sets temperature. The relay passes the caller's value
// through this option, so it wins over a provider-level default.
func WithTemperature(t float64) Option {
	return func(r *ChatRequest) { r.Temperature = &t }
}

// WithTopP sets top_p.
func WithTopP(p float64) Option {
	return func(r *ChatRequest) { r.TopP = &p }
}

// WithMaxTokens caps the completion length. Zero leaves max_tokens unset.
func WithMaxTokens(n int) Option {
	return func(r *ChatRequest) { r.MaxTokens = n }
}

// WithSeed asks the upstream for repeatable sampling across a batch.
func WithSeed(s int) Option {
	return func(r *ChatRequest) { r.Seed = &s }
}
