// Package cost provides pre-flight cost governance and the usage ledger.
//
// Rates are expressed in USD per 1000 tokens, split by direction, matching
// how the upstream price sheets quote them.
package cost

import "issueforge/llm"

// Rates holds the per-1K-token prices for one backend/model pair.
type Rates struct {
	InputPer1K  float64 `json:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k"`
}

// Known per-model rate overrides. Models missing here fall back to the
// backend default.
var modelRates = map[string]Rates{
	llm.ModelOpenAIGPT4o:            {InputPer1K: 0.0025, OutputPer1K: 0.01},
	llm.ModelOpenAIGPT4oMini:        {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	llm.ModelAnthropicClaudeSonnet4: {InputPer1K: 0.003, OutputPer1K: 0.015},
	llm.ModelAnthropicClaudeHaiku4:  {InputPer1K: 0.0008, OutputPer1K: 0.004},
	llm.ModelDeepSeekChat:           {InputPer1K: 0.00027, OutputPer1K: 0.0011},
	llm.ModelGeminiFlash25:          {InputPer1K: 0.0003, OutputPer1K: 0.0025},
}

// Per-backend defaults for models without an explicit entry.
var providerRates = map[llm.ProviderType]Rates{
	llm.ProviderOpenAI:    {InputPer1K: 0.0025, OutputPer1K: 0.01},
	llm.ProviderAnthropic: {InputPer1K: 0.003, OutputPer1K: 0.015},
	llm.ProviderDeepSeek:  {InputPer1K: 0.00027, OutputPer1K: 0.0011},
	llm.ProviderGemini:    {InputPer1K: 0.0003, OutputPer1K: 0.0025},
}

// RatesFor returns the rate table entry for a backend/model pair.
func RatesFor(provider llm.ProviderType, model string) Rates {
	if r, ok := modelRates[model]; ok {
		return r
	}
	if r, ok := providerRates[provider]; ok {
		return r
	}
	// Unknown backend: price conservatively at the most expensive tier.
	return Rates{InputPer1K: 0.003, OutputPer1K: 0.015}
}

// Cost computes the dollar cost of a token count against these rates.
func (r Rates) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*r.InputPer1K + float64(outputTokens)*r.OutputPer1K) / 1000
}
