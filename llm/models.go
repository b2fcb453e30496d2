// Package llm provides shared data models for LLM backends.
package llm

import "strings"

// SegmentKind identifies the type of a message segment.
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentImage SegmentKind = "image"
)

// Segment is a typed piece of message content. Backends that cannot carry a
// segment kind (for example image references) flatten to the text segments.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	ImageURL string      `json:"image_url,omitempty"`
}

// ChatMessage is one turn of the neutral intermediate form. Content holds
// plain text; Segments, when non-empty, holds typed content instead.
type ChatMessage struct {
	Role     string    `json:"role"` // system, user, assistant
	Content  string    `json:"content"`
	Segments []Segment `json:"segments,omitempty"`
}

// Text returns the plain-text rendering of the message: Content when set,
// otherwise the concatenated text segments.
func (m ChatMessage) Text() string {
	if m.Content != "" || len(m.Segments) == 0 {
		return m.Content
	}
	var sb strings.Builder
	for _, s := range m.Segments {
		if s.Kind == SegmentText {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// SystemMessage creates a system turn.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// UserMessage creates a user turn.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// AssistantMessage creates an assistant turn.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// Response is a raw completion from a backend.
type Response struct {
	Content string
	Usage   *TokenUsage
}

// TokenUsage contains token usage reported by a backend.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// ResponseFormatType defines the type of response format.
type ResponseFormatType string

const (
	ResponseFormatText       ResponseFormatType = "text"
	ResponseFormatJSONObject ResponseFormatType = "json_object"
)

// ResponseFormat specifies how the backend should format its response.
type ResponseFormat struct {
	Type ResponseFormatType `json:"type"`
}

// NewJSONObjectFormat creates a JSON object response format.
func NewJSONObjectFormat() *ResponseFormat {
	return &ResponseFormat{Type: ResponseFormatJSONObject}
}

// Default model identifiers per backend.
const (
	// ModelOpenAIGPT4o is GPT-4o: general-purpose flagship.
	ModelOpenAIGPT4o = "gpt-4o"
	// ModelOpenAIGPT4oMini is GPT-4o-mini: cheap and fast.
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
	// ModelAnthropicClaudeSonnet4 is Claude Sonnet 4: balanced performance.
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	// ModelAnthropicClaudeHaiku4 is Claude Haiku 4: fast and efficient.
	ModelAnthropicClaudeHaiku4 = "claude-haiku-4-20250514"
	// ModelDeepSeekChat is the DeepSeek general chat model.
	ModelDeepSeekChat = "deepseek-chat"
	// ModelGeminiFlash25 is Gemini 2.5 Flash: speed optimized.
	ModelGeminiFlash25 = "gemini-2.5-flash"
)
