// Package enhancer orchestrates issue enhancement across interchangeable
// LLM backends.
//
// The contract: Enhance never fails the caller. Backend selection, cost
// governance, the fallback chain and response parsing all happen behind it,
// and every failure mode degrades to a deterministic fallback result. Only
// the lower-level Request surfaces errors.
package enhancer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"issueforge/config"
	"issueforge/cost"
	"issueforge/llm"
	"issueforge/model"
)

// Options are the per-call knobs accepted by Enhance and Request.
type Options struct {
	// Provider names an explicit backend, bypassing selection.
	Provider string

	// Model overrides the profile's configured model.
	Model string

	// Timeout overrides the profile's per-attempt timeout.
	Timeout time.Duration

	// DisableFallback limits the chain to the selected backend only.
	DisableFallback bool

	// SkipCostCheck bypasses the cost governor for this call.
	SkipCostCheck bool

	// PreferCheapest selects the backend with the lowest estimated cost.
	PreferCheapest bool
}

// ProviderFactory constructs the transport for a backend profile. Injectable
// so tests can substitute stubs without touching the network.
type ProviderFactory func(profile config.ProviderProfile, model string, maxTokens uint32, temperature float32) (llm.Provider, error)

func defaultFactory(profile config.ProviderProfile, model string, maxTokens uint32, temperature float32) (llm.Provider, error) {
	return llm.NewProvider(profile.Provider, profile.APIKey, model, maxTokens, temperature)
}

type providerKey struct {
	provider llm.ProviderType
	model    string
}

// Enhancer is the orchestrator. Construct once via New and share; all state
// behind it is either immutable or mutex-guarded.
type Enhancer struct {
	settings config.Settings
	registry *config.Registry
	governor *cost.Governor
	ledger   *cost.Ledger
	factory  ProviderFactory
	logger   *slog.Logger

	skipStartupCheck bool

	mu        sync.Mutex
	providers map[providerKey]llm.Provider
}

// Option configures an Enhancer at construction.
type Option func(*Enhancer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enhancer) { e.logger = logger }
}

// WithProviderFactory replaces backend construction, used to inject stub
// transports in tests.
func WithProviderFactory(factory ProviderFactory) Option {
	return func(e *Enhancer) { e.factory = factory }
}

// WithTokenCounter replaces the governor's token counter.
func WithTokenCounter(counter cost.Counter) Option {
	return func(e *Enhancer) {
		e.governor = cost.NewGovernor(e.settings.Limits, counter, e.logger)
	}
}

// WithoutStartupCheck skips the fail-fast credential check so diagnostic
// callers (health reporting) can construct an orchestrator against an
// unusable registry.
func WithoutStartupCheck() Option {
	return func(e *Enhancer) { e.skipStartupCheck = true }
}

// New creates an orchestrator from settings and the backend registry.
// Fails fast when the feature is enabled but no backend has a credential:
// that is a deployment mistake, not a runtime condition to degrade around.
func New(settings config.Settings, registry *config.Registry, opts ...Option) (*Enhancer, error) {
	if registry == nil {
		registry = config.NewRegistry()
	}

	e := &Enhancer{
		settings:  settings,
		registry:  registry,
		ledger:    cost.NewLedger(),
		logger:    slog.Default(),
		factory:   defaultFactory,
		providers: make(map[providerKey]llm.Provider),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.governor == nil {
		e.governor = cost.NewGovernor(settings.Limits, nil, e.logger)
	}

	if !e.skipStartupCheck && settings.Enabled && len(registry.Available()) == 0 {
		return nil, fmt.Errorf("enhancement enabled but no backend has a usable profile: %w", ErrNoProviderConfigured)
	}

	return e, nil
}

// Enhance produces a structured enhancement for the feedback record.
// Total: it always returns a well-formed result, substituting the
// deterministic fallback when the feature is disabled or every backend
// failed.
func (e *Enhancer) Enhance(ctx context.Context, req model.EnhancementRequest, opts Options) model.EnhancementResult {
	start := time.Now()

	if !e.settings.Enabled {
		e.logger.Info("enhancement disabled, using fallback result")
		return fallbackResult(req, time.Since(start))
	}

	messages := BuildMessages(req)

	outcome, err := e.executeChain(ctx, messages, opts)
	if err != nil {
		e.logger.Warn("enhancement degraded to fallback", "error", err)
		return fallbackResult(req, time.Since(start))
	}

	result := synthesize(req, outcome.Response.Content, e.logger)
	result.Metadata = model.ResultMetadata{
		Provider:       outcome.Provider.String(),
		Model:          outcome.Model,
		ProcessingTime: time.Since(start),
		CostUSD:        outcome.CostUSD,
	}
	return result
}

// RawResult is the outcome of a successful low-level Request.
type RawResult struct {
	Response llm.Response
	Provider llm.ProviderType
	Model    string
	CostUSD  float64
}

// Request is the lower-level entry point used by Enhance. It accepts any
// input Normalize recognizes (neutral messages, a plain prompt string, or a
// backend-specific map shape) and returns the raw backend response.
//
// Unlike Enhance it surfaces errors: ErrDisabled, ErrNoProviderConfigured,
// cost.ErrLimitExceeded, or *AllProvidersError.
func (e *Enhancer) Request(ctx context.Context, input any, opts Options) (RawResult, error) {
	if !e.settings.Enabled {
		return RawResult{}, ErrDisabled
	}

	messages, ok := llm.Normalize(input)
	if !ok {
		// Translation is a quality-of-service optimization, not a
		// correctness requirement: pass the original through as-is.
		e.logger.Warn("could not detect request shape, passing through unchanged")
		messages = []llm.ChatMessage{llm.UserMessage(fmt.Sprintf("%v", input))}
	}

	return e.executeChain(ctx, messages, opts)
}

// UsageStats returns a snapshot of the usage ledger.
func (e *Enhancer) UsageStats() cost.Snapshot {
	return e.ledger.Snapshot()
}

// providerFor returns the cached transport for a backend/model pair,
// constructing it on first use.
func (e *Enhancer) providerFor(profile config.ProviderProfile, modelName string) (llm.Provider, error) {
	key := providerKey{provider: profile.Provider, model: modelName}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.providers[key]; ok {
		return p, nil
	}

	p, err := e.factory(profile, modelName, e.settings.MaxTokens, e.settings.Temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s provider: %w", profile.Provider, err)
	}
	e.providers[key] = p
	return p, nil
}
