// Backend factory: a closed enum over supported backends plus construction
// of the matching Provider implementation.

package llm

import (
	"fmt"
	"strings"
)

// ProviderType represents supported LLM backends.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI backend (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic backend (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek backend.
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini backend.
	ProviderGemini
)

// AllProviders lists every backend kind in canonical registry order.
var AllProviders = []ProviderType{ProviderOpenAI, ProviderAnthropic, ProviderDeepSeek, ProviderGemini}

// String returns the string representation of the backend type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this backend's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this backend.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIGPT4o
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderGemini:
		return ModelGeminiFlash25
	default:
		return ""
	}
}

// ParseProviderType parses a backend from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// NewProvider constructs the Provider implementation for the given backend.
func NewProvider(p ProviderType, apiKey, model string, maxTokens uint32, temperature float32) (Provider, error) {
	if model == "" {
		model = p.DefaultModel()
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}

	switch p {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderDeepSeek:
		return NewDeepSeekProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderGemini:
		return NewGeminiProvider(apiKey, model, maxTokens, temperature), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", p)
	}
}
