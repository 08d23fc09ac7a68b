package medcopy

// --- LLM protocol types ---

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three chat roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-agnostic completion request. Empty Model and nil
// Temperature leave the choice to the provider.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type ChatResponse struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage mirrors the token accounting reported by OpenAI-compatible APIs.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Batch types ---

// Outcome is the settled result of one completion. Error and Kind are only
// meaningful when Succeeded is false.
type Outcome struct {
	Succeeded bool      `json:"succeeded"`
	Content   string    `json:"content,omitempty"`
	Usage     Usage     `json:"usage"`
	Error     string    `json:"error,omitempty"`
	Kind      ErrorKind `json:"kind,omitempty"`
}

// Success builds a succeeded Outcome.
func Success(content string, usage Usage) Outcome {
	return Outcome{Succeeded: true, Content: content, Usage: usage}
}

// Failure builds a failed Outcome of the given kind.
func Failure(kind ErrorKind, msg string) Outcome {
	if msg == "" {
		msg = "Unknown error"
	}
	return Outcome{Error: msg, Kind: kind}
}

// Record pairs an item label with its Outcome.
type Record struct {
	Label   string  `json:"label"`
	Outcome Outcome `json:"outcome"`
}

// Status returns "success" or "error".
func (r Record) Status() string {
	if r.Outcome.Succeeded {
		return "success"
	}
	return "error"
}

// Progress holds the running counters of a batch.
// Completed == Succeeded + Failed <= Total holds for every published snapshot.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Done reports whether every item has settled.
func (p Progress) Done() bool { return p.Completed == p.Total }

// Fraction returns Completed/Total in [0, 1]. An empty batch counts as complete.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// --- ChatMessage constructors ---

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: text}
}

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: text}
}
