package openaicompat

import (
	"encoding/json"
	"testing"

	"github.com/nevindra/medcopy"
)

func TestBuildBody_SystemAndUser(t *testing.T) {
	messages := []medcopy.ChatMessage{
		medcopy.SystemMessage("You are a medical copywriter."),
		medcopy.UserMessage("Medical condition: Asthma"),
	}

	req := BuildBody(messages, "o3")

	if req.Model != "o3" {
		t.Errorf("expected model 'o3', got %q", req.Model)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "You are a medical copywriter." {
		t.Errorf("unexpected system message: %+v", req.Messages[0])
	}
	if req.Messages[1].Role != "user" || req.Messages[1].Content != "Medical condition: Asthma" {
		t.Errorf("unexpected user message: %+v", req.Messages[1])
	}
	if req.Temperature != nil {
		t.Errorf("expected no temperature without option, got %v", *req.Temperature)
	}
}

func TestBuildBody_OptionsLastWins(t *testing.T) {
	req := BuildBody([]medcopy.ChatMessage{medcopy.UserMessage("hi")}, "gpt-4o",
		WithTemperature(1.0), WithMaxTokens(100), WithTemperature(0.2), WithTopP(0.9), WithSeed(7))

	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", req.Temperature)
	}
	if req.MaxTokens != 100 {
		t.Errorf("expected max_tokens 100, got %d", req.MaxTokens)
	}
	if req.TopP == nil || *req.TopP != 0.9 {
		t.Errorf("unexpected top_p: %v", req.TopP)
	}
	if req.Seed == nil || *req.Seed != 7 {
		t.Errorf("unexpected seed: %v", req.Seed)
	}
}

func TestBuildBody_JSONOmitsUnsetFields(t *testing.T) {
	req := BuildBody([]medcopy.ChatMessage{medcopy.UserMessage("hi")}, "gpt-4o")
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"temperature", "top_p", "max_tokens", "seed"} {
		if _, ok := m[k]; ok {
			t.Errorf("expected %q to be omitted, got %s", k, data)
		}
	}
}
