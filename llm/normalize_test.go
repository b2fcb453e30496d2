package llm

import (
	"encoding/json"
	"testing"
)

func TestNormalizeNeutralInput(t *testing.T) {
	in := []ChatMessage{SystemMessage("sys"), UserMessage("hello")}
	out, ok := Normalize(in)
	if !ok {
		t.Fatal("expected neutral input to normalize")
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	if out[0].Role != "system" || out[1].Role != "user" {
		t.Errorf("role order not preserved: %v", out)
	}
}

func TestNormalizeString(t *testing.T) {
	out, ok := Normalize("describe the crash")
	if !ok {
		t.Fatal("expected string input to normalize")
	}
	if len(out) != 1 || out[0].Role != "user" {
		t.Fatalf("expected single user turn, got %v", out)
	}
}

func TestNormalizeOpenAIShape(t *testing.T) {
	shape := map[string]any{
		"messages": []any{
			map[string]any{"role": "system", "content": "you enhance issues"},
			map[string]any{"role": "user", "content": "app crashed"},
		},
	}
	out, ok := Normalize(shape)
	if !ok {
		t.Fatal("expected OpenAI shape to normalize")
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	if out[1].Content != "app crashed" {
		t.Errorf("expected user content preserved, got %q", out[1].Content)
	}
}

func TestNormalizeAnthropicShape(t *testing.T) {
	shape := map[string]any{
		"system": "you enhance issues",
		"messages": []any{
			map[string]any{"role": "user", "content": "app crashed"},
		},
	}
	out, ok := Normalize(shape)
	if !ok {
		t.Fatal("expected Anthropic shape to normalize")
	}
	if len(out) != 2 {
		t.Fatalf("expected system turn to be prepended, got %d messages", len(out))
	}
	if out[0].Role != "system" || out[0].Content != "you enhance issues" {
		t.Errorf("expected system turn first, got %v", out[0])
	}
}

func TestNormalizeGeminiShape(t *testing.T) {
	shape := map[string]any{
		"contents": []any{
			map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": "app crashed"}},
			},
			map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": "looking into it"}},
			},
		},
	}
	out, ok := Normalize(shape)
	if !ok {
		t.Fatal("expected Gemini shape to normalize")
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	if out[1].Role != "assistant" {
		t.Errorf("expected model role mapped to assistant, got %q", out[1].Role)
	}
}

func TestNormalizeRawJSON(t *testing.T) {
	raw := json.RawMessage(`{"messages":[{"role":"user","content":"hi"}]}`)
	out, ok := Normalize(raw)
	if !ok {
		t.Fatal("expected raw JSON to normalize")
	}
	if len(out) != 1 || out[0].Content != "hi" {
		t.Fatalf("unexpected result: %v", out)
	}
}

func TestNormalizeSegments(t *testing.T) {
	shape := map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": []any{
				map[string]any{"type": "text", "text": "see screenshot"},
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://example.com/s.png"}},
			}},
		},
	}
	out, ok := Normalize(shape)
	if !ok {
		t.Fatal("expected segmented content to normalize")
	}
	if len(out[0].Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(out[0].Segments))
	}
	if out[0].Segments[1].Kind != SegmentImage {
		t.Errorf("expected image segment, got %v", out[0].Segments[1].Kind)
	}
	if out[0].Text() != "see screenshot" {
		t.Errorf("expected text flattening, got %q", out[0].Text())
	}
}

func TestNormalizeUnknownShape(t *testing.T) {
	if _, ok := Normalize(map[string]any{"prompt": "not a chat shape"}); ok {
		t.Error("expected unknown shape to fail detection")
	}
	if _, ok := Normalize(42); ok {
		t.Error("expected int input to fail detection")
	}
	if _, ok := Normalize(nil); ok {
		t.Error("expected nil input to fail detection")
	}
}

// Translating to a wire shape and normalizing back must preserve turn count
// and role ordering for every backend shape.
func TestWireShapeRoundTrip(t *testing.T) {
	msgs := []ChatMessage{
		SystemMessage("you enhance issues"),
		UserMessage("app crashed on launch"),
		AssistantMessage("which device?"),
		UserMessage("pixel 9"),
	}

	for _, pt := range AllProviders {
		shape := ToWireShape(pt, msgs)
		back, ok := Normalize(shape)
		if !ok {
			t.Fatalf("%s: round trip failed to normalize", pt)
		}
		if len(back) != len(msgs) {
			t.Fatalf("%s: expected %d messages, got %d", pt, len(msgs), len(back))
		}
		for i := range msgs {
			if back[i].Role != msgs[i].Role {
				t.Errorf("%s: role %d changed: %q -> %q", pt, i, msgs[i].Role, back[i].Role)
			}
			if back[i].Text() != msgs[i].Text() {
				t.Errorf("%s: text %d changed: %q -> %q", pt, i, msgs[i].Text(), back[i].Text())
			}
		}
	}
}

func TestParseProviderType(t *testing.T) {
	cases := map[string]ProviderType{
		"openai":    ProviderOpenAI,
		"GPT":       ProviderOpenAI,
		"claude":    ProviderAnthropic,
		"anthropic": ProviderAnthropic,
		"deepseek":  ProviderDeepSeek,
		"google":    ProviderGemini,
	}
	for in, want := range cases {
		got, err := ParseProviderType(in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", in, err)
		}
		if got != want {
			t.Errorf("%s: expected %v, got %v", in, want, got)
		}
	}

	if _, err := ParseProviderType("mistral"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
