package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nevindra/medcopy"
)

const (
	// DefaultModel and DefaultTemperature apply when a request omits them.
	DefaultModel       = "o3"
	DefaultTemperature = 0.7

	// DefaultPath is where the relay is mounted by the web server.
	DefaultPath = "/api/openai"

	maxRequestBodyBytes = 8 << 20 // 8MB
)

// Handler is the relay endpoint. It is stateless apart from its
// configuration and safe for concurrent use.
type Handler struct {
	upstream    medcopy.Provider
	model       string
	temperature float64
	path        string
	logger      *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithDefaultModel overrides the model used when a request omits one.
func WithDefaultModel(m string) HandlerOption {
	return func(h *Handler) { h.model = m }
}

// WithDefaultTemperature overrides the temperature used when a request omits one.
func WithDefaultTemperature(t float64) HandlerOption {
	return func(h *Handler) { h.temperature = t }
}

// WithPath sets the path advertised in the GET descriptor.
func WithPath(p string) HandlerOption {
	return func(h *Handler) { h.path = p }
}

// WithHandlerLogger sets the structured logger for upstream failures.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a relay endpoint in front of upstream. A nil upstream
// means no credential is configured: every POST that passes validation
// answers 500 "OpenAI API key not configured".
func NewHandler(upstream medcopy.Provider, opts ...HandlerOption) *Handler {
	h := &Handler{
		upstream:    upstream,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		path:        DefaultPath,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	return h
}

// Configured reports whether an upstream is available.
func (h *Handler) Configured() bool { return h.upstream != nil }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleChat(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, Descriptor{
			Message: msgRunning,
			Endpoints: map[string]string{
				"POST": h.path + " - Send messages to OpenAI chat completions",
			},
		})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	messages, ok := decodeMessages(raw.Messages)
	if !ok {
		writeError(w, http.StatusBadRequest, msgMessagesRequired)
		return
	}
	for _, m := range messages {
		if !m.Role.Valid() {
			writeError(w, http.StatusBadRequest, msgInvalidRole)
			return
		}
	}

	if h.upstream == nil {
		writeError(w, http.StatusInternalServerError, msgNotConfigured)
		return
	}

	req := medcopy.ChatRequest{
		Messages:    messages,
		Model:       raw.Model,
		Temperature: raw.Temperature,
	}
	if req.Model == "" {
		req.Model = h.model
	}
	if req.Temperature == nil {
		t := h.temperature
		req.Temperature = &t
	}

	start := time.Now()
	resp, err := h.upstream.Chat(r.Context(), req)
	if err != nil {
		kind := medcopy.KindOf(err)
		h.logger.Error("upstream chat failed",
			"provider", h.upstream.Name(),
			"model", req.Model,
			"kind", kind,
			"error", err,
			"duration", time.Since(start))
		writeError(w, kind.HTTPStatus(), kindMessage(kind))
		return
	}

	h.logger.Debug("upstream chat",
		"provider", h.upstream.Name(),
		"model", req.Model,
		"messages", len(messages),
		"tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start))

	role := resp.Role
	if role == "" {
		role = medcopy.RoleAssistant
	}
	usage := resp.Usage
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    &Message{Role: role, Content: resp.Content},
		Usage:   &usage,
	})
}

// decodeMessages accepts only a JSON array of chat messages.
func decodeMessages(raw json.RawMessage) ([]medcopy.ChatMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var msgs []medcopy.ChatMessage
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return nil, false
	}
	if msgs == nil {
		msgs = []medcopy.ChatMessage{}
	}
	return msgs, true
}

// kindMessage is the client-facing text for each error kind. Unclassified
// failures never expose upstream detail.
func kindMessage(k medcopy.ErrorKind) string {
	switch k {
	case medcopy.KindQuotaExceeded:
		return msgQuotaExceeded
	case medcopy.KindInvalidCredential:
		return msgInvalidKey
	case medcopy.KindUnclassified:
		return msgInternal
	default:
		return msgInternal
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, Response{Error: msg})
}

var _ http.Handler = (*Handler)(nil)
