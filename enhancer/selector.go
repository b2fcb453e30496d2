// Backend selection.

package enhancer

import (
	"fmt"
	"math"

	"issueforge/config"
	"issueforge/llm"
)

// Uniform token estimate used to compare backend prices when the caller
// prefers the cheapest backend. The comparison only needs a common yardstick.
const (
	uniformInputTokens  = 1000
	uniformOutputTokens = 300
)

// selectBackend picks the target backend for a call:
//  1. an explicitly named backend wins unconditionally
//  2. no credentialed backend at all is ErrNoProviderConfigured
//  3. a single credentialed backend is used as-is
//  4. prefer-cheapest picks the minimum estimated cost, ties breaking
//     toward the configured primary, then registry order
//  5. otherwise the configured primary, falling back to registry order
func (e *Enhancer) selectBackend(opts Options) (llm.ProviderType, error) {
	if opts.Provider != "" {
		p, err := llm.ParseProviderType(opts.Provider)
		if err != nil {
			return 0, err
		}
		return p, nil
	}

	available := e.registry.Available()
	if len(available) == 0 {
		return 0, ErrNoProviderConfigured
	}
	if len(available) == 1 {
		return available[0], nil
	}

	if opts.PreferCheapest {
		return e.cheapestOf(available), nil
	}

	for _, p := range available {
		if p == e.settings.Primary {
			return p, nil
		}
	}
	return available[0], nil
}

// cheapestOf returns the backend with the lowest estimated cost for a
// uniform token estimate. available is in registry order, so keeping the
// first strict minimum already implements the registry-order tie-break; the
// primary is preferred among exact ties.
func (e *Enhancer) cheapestOf(available []llm.ProviderType) llm.ProviderType {
	best := available[0]
	bestCost := math.Inf(1)

	for _, p := range available {
		profile, ok := e.registry.Profile(p)
		if !ok {
			continue
		}
		c := profile.Rates.Cost(uniformInputTokens, uniformOutputTokens)
		if c < bestCost || (c == bestCost && p == e.settings.Primary && best != e.settings.Primary) {
			best = p
			bestCost = c
		}
	}
	return best
}

// profileFor resolves the registry profile for a backend, applying the
// caller's model override.
func (e *Enhancer) profileFor(p llm.ProviderType, opts Options) (config.ProviderProfile, string, error) {
	profile, ok := e.registry.Profile(p)
	if !ok {
		return config.ProviderProfile{}, "", fmt.Errorf("no profile registered for backend %s", p)
	}
	modelName := profile.Model
	if opts.Model != "" {
		modelName = opts.Model
	}
	if modelName == "" {
		modelName = p.DefaultModel()
	}
	return profile, modelName, nil
}
