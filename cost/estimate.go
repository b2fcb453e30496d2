// Pre-flight cost estimation and budget enforcement.
//
// The governor runs before every network attempt. Estimation failures never
// block traffic; only a confirmed budget overage does.

package cost

import (
	"errors"
	"fmt"
	"log/slog"

	"issueforge/llm"
)

// ErrLimitExceeded is returned when an estimated cost would break a budget
// ceiling. It is a policy stop, not a backend fault: the fallback chain must
// not retry other backends past it.
var ErrLimitExceeded = errors.New("cost limit exceeded")

// Fallback estimates used when token counting fails. Deliberately small and
// conservative so that counting failures do not block real traffic.
const (
	fallbackInputTokens  = 100
	fallbackOutputTokens = 30
)

// outputRatio is the assumed output/input token ratio when the counter does
// not provide an output estimate.
const outputRatio = 0.3

// Counter estimates token usage for a normalized request. Best-effort: a
// returned error makes the governor fall back to fixed estimates.
type Counter func(messages []llm.ChatMessage) (inputTokens, outputTokens int, err error)

// CharCounter is the default token counter: roughly four characters per
// token across the models in the registry.
func CharCounter(messages []llm.ChatMessage) (int, int, error) {
	chars := 0
	for _, m := range messages {
		chars += len(m.Role) + len(m.Text())
		for _, s := range m.Segments {
			if s.Kind == llm.SegmentImage {
				// Image references are billed as a flat token block.
				chars += 1000
			}
		}
	}
	input := chars / 4
	if input < 1 {
		input = 1
	}
	output := int(float64(input) * outputRatio)
	if output < 1 {
		output = 1
	}
	return input, output, nil
}

// Estimate is the pre-flight cost projection for one candidate attempt.
// Never persisted; recomputed immediately before every network attempt.
type Estimate struct {
	Provider     llm.ProviderType
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Limits configures budget enforcement.
type Limits struct {
	Enabled        bool
	MaxPerRunUSD   float64
	MaxPerMonthUSD float64
}

// Governor estimates the cost of candidate calls and enforces spending
// ceilings against the ledger.
type Governor struct {
	limits  Limits
	counter Counter
	logger  *slog.Logger
}

// NewGovernor creates a governor. A nil counter uses CharCounter; a nil
// logger uses slog.Default().
func NewGovernor(limits Limits, counter Counter, logger *slog.Logger) *Governor {
	if counter == nil {
		counter = CharCounter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Governor{limits: limits, counter: counter, logger: logger}
}

// Limits returns the configured budget ceilings.
func (g *Governor) Limits() Limits {
	return g.limits
}

// Estimate projects the cost of sending messages to the given backend/model
// at the given rates. Counting failures degrade to fixed fallback estimates
// and are logged.
func (g *Governor) Estimate(messages []llm.ChatMessage, provider llm.ProviderType, model string, rates Rates) Estimate {
	input, output, err := g.counter(messages)
	if err != nil || input <= 0 {
		if err != nil {
			g.logger.Warn("token counting failed, using fallback estimate",
				"provider", provider.String(), "error", err)
		}
		input, output = fallbackInputTokens, fallbackOutputTokens
	}
	if output <= 0 {
		output = int(float64(input) * outputRatio)
	}

	return Estimate{
		Provider:     provider,
		Model:        model,
		InputTokens:  input,
		OutputTokens: output,
		CostUSD:      rates.Cost(input, output),
	}
}

// Approve estimates the candidate call and enforces the per-run and
// per-month ceilings against the ledger. Returns ErrLimitExceeded (wrapped)
// when a ceiling would be broken. When governance is disabled the estimate is
// returned without any check.
func (g *Governor) Approve(messages []llm.ChatMessage, provider llm.ProviderType, model string, rates Rates, ledger *Ledger) (Estimate, error) {
	est := g.Estimate(messages, provider, model, rates)

	if !g.limits.Enabled {
		return est, nil
	}

	if g.limits.MaxPerRunUSD > 0 && est.CostUSD > g.limits.MaxPerRunUSD {
		return est, fmt.Errorf("%w: estimated $%.4f exceeds per-run ceiling $%.4f",
			ErrLimitExceeded, est.CostUSD, g.limits.MaxPerRunUSD)
	}

	if g.limits.MaxPerMonthUSD > 0 && ledger != nil {
		spent := ledger.MonthSpentUSD()
		if spent+est.CostUSD > g.limits.MaxPerMonthUSD {
			return est, fmt.Errorf("%w: $%.4f spent this month plus estimated $%.4f exceeds monthly ceiling $%.4f",
				ErrLimitExceeded, spent, est.CostUSD, g.limits.MaxPerMonthUSD)
		}
	}

	return est, nil
}
