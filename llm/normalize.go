// Shape detection and translation between backend-specific chat request
// shapes, routed through the neutral form.
//
// Every backend-specific shape is produced from, or parsed back into, exactly
// one []ChatMessage per call. Detection is best-effort: callers treat a false
// return as a signal to pass the original request through unchanged.

package llm

import (
	"encoding/json"
)

// Normalize attempts to convert an arbitrary chat-style input into the
// neutral form. Recognized inputs:
//   - []ChatMessage or ChatMessage (already neutral)
//   - string (a single user turn)
//   - raw JSON ([]byte or json.RawMessage) of any recognized map shape
//   - OpenAI-style map: {"messages": [{"role","content"}, ...]}
//   - Anthropic-style map: {"system": "...", "messages": [...]}
//   - Gemini-style map: {"contents": [{"role","parts"}, ...]}
//
// Returns false when the input shape is not recognized.
func Normalize(input any) ([]ChatMessage, bool) {
	switch v := input.(type) {
	case nil:
		return nil, false
	case []ChatMessage:
		out := make([]ChatMessage, len(v))
		copy(out, v)
		return out, true
	case ChatMessage:
		return []ChatMessage{v}, true
	case string:
		if v == "" {
			return nil, false
		}
		return []ChatMessage{UserMessage(v)}, true
	case json.RawMessage:
		return normalizeJSON([]byte(v))
	case []byte:
		return normalizeJSON(v)
	case map[string]any:
		return normalizeMap(v)
	case []any:
		return parseMessageList(v)
	default:
		return nil, false
	}
}

func normalizeJSON(raw []byte) ([]ChatMessage, bool) {
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err == nil {
		return normalizeMap(asMap)
	}
	var asList []any
	if err := json.Unmarshal(raw, &asList); err == nil {
		return parseMessageList(asList)
	}
	return nil, false
}

func normalizeMap(m map[string]any) ([]ChatMessage, bool) {
	if contents, ok := m["contents"].([]any); ok {
		return parseGeminiContents(m, contents)
	}

	rawMessages, ok := m["messages"].([]any)
	if !ok {
		return nil, false
	}

	messages, ok := parseMessageList(rawMessages)
	if !ok {
		return nil, false
	}

	// Anthropic-style shape carries the system turn at the top level.
	if system, ok := m["system"].(string); ok && system != "" {
		messages = append([]ChatMessage{SystemMessage(system)}, messages...)
	}

	return messages, true
}

func parseMessageList(items []any) ([]ChatMessage, bool) {
	if len(items) == 0 {
		return nil, false
	}

	messages := make([]ChatMessage, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		role, ok := entry["role"].(string)
		if !ok || role == "" {
			return nil, false
		}
		if role == "model" {
			role = "assistant"
		}

		msg := ChatMessage{Role: role}
		switch content := entry["content"].(type) {
		case string:
			msg.Content = content
		case []any:
			segments, ok := parseSegments(content)
			if !ok {
				return nil, false
			}
			msg.Segments = segments
		default:
			return nil, false
		}
		messages = append(messages, msg)
	}

	return messages, true
}

// parseSegments handles multi-part content in OpenAI or Anthropic block style.
func parseSegments(parts []any) ([]Segment, bool) {
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		block, ok := part.(map[string]any)
		if !ok {
			return nil, false
		}
		switch block["type"] {
		case "text":
			text, _ := block["text"].(string)
			segments = append(segments, Segment{Kind: SegmentText, Text: text})
		case "image_url":
			url := ""
			if img, ok := block["image_url"].(map[string]any); ok {
				url, _ = img["url"].(string)
			}
			segments = append(segments, Segment{Kind: SegmentImage, ImageURL: url})
		case "image":
			url := ""
			if src, ok := block["source"].(map[string]any); ok {
				url, _ = src["url"].(string)
			}
			segments = append(segments, Segment{Kind: SegmentImage, ImageURL: url})
		default:
			return nil, false
		}
	}
	if len(segments) == 0 {
		return nil, false
	}
	return segments, true
}

func parseGeminiContents(m map[string]any, contents []any) ([]ChatMessage, bool) {
	messages := make([]ChatMessage, 0, len(contents)+1)

	if si, ok := m["system_instruction"].(map[string]any); ok {
		if text := geminiPartsText(si["parts"]); text != "" {
			messages = append(messages, SystemMessage(text))
		}
	}

	for _, item := range contents {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		role, _ := entry["role"].(string)
		switch role {
		case "model":
			role = "assistant"
		case "", "user":
			role = "user"
		default:
			return nil, false
		}
		text := geminiPartsText(entry["parts"])
		if text == "" {
			return nil, false
		}
		messages = append(messages, ChatMessage{Role: role, Content: text})
	}

	if len(messages) == 0 {
		return nil, false
	}
	return messages, true
}

func geminiPartsText(parts any) string {
	list, ok := parts.([]any)
	if !ok {
		return ""
	}
	text := ""
	for _, p := range list {
		if block, ok := p.(map[string]any); ok {
			if t, ok := block["text"].(string); ok {
				text += t
			}
		}
	}
	return text
}

// ToWireShape renders the neutral form into the named backend's request map.
// The inverse of Normalize for each recognized shape: translating to a shape
// and normalizing back preserves turn count and role ordering.
func ToWireShape(p ProviderType, messages []ChatMessage) map[string]any {
	switch p {
	case ProviderAnthropic:
		return toAnthropicShape(messages)
	case ProviderGemini:
		return toGeminiShape(messages)
	default:
		return toOpenAIShape(messages)
	}
}

func toOpenAIShape(messages []ChatMessage) map[string]any {
	out := make([]any, 0, len(messages))
	for _, msg := range messages {
		entry := map[string]any{"role": msg.Role}
		if len(msg.Segments) > 0 {
			parts := make([]any, 0, len(msg.Segments))
			for _, seg := range msg.Segments {
				switch seg.Kind {
				case SegmentText:
					parts = append(parts, map[string]any{"type": "text", "text": seg.Text})
				case SegmentImage:
					parts = append(parts, map[string]any{
						"type":      "image_url",
						"image_url": map[string]any{"url": seg.ImageURL},
					})
				}
			}
			entry["content"] = parts
		} else {
			entry["content"] = msg.Content
		}
		out = append(out, entry)
	}
	return map[string]any{"messages": out}
}

func toAnthropicShape(messages []ChatMessage) map[string]any {
	shape := map[string]any{}
	out := make([]any, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			shape["system"] = msg.Text()
			continue
		}
		out = append(out, map[string]any{"role": msg.Role, "content": msg.Text()})
	}
	shape["messages"] = out
	return shape
}

func toGeminiShape(messages []ChatMessage) map[string]any {
	shape := map[string]any{}
	out := make([]any, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			shape["system_instruction"] = map[string]any{
				"parts": []any{map[string]any{"text": msg.Text()}},
			}
		case "assistant":
			out = append(out, map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": msg.Text()}},
			})
		default:
			out = append(out, map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": msg.Text()}},
			})
		}
	}
	shape["contents"] = out
	return shape
}
