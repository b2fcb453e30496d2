// Fallback chain executor.
//
// Attempts are strictly sequential: a financial commitment to candidate N+1
// must not be made while candidate N's cost is still unresolved.

package enhancer

import (
	"context"
	"errors"
	"fmt"

	"issueforge/config"
	"issueforge/cost"
	"issueforge/llm"
)

// executeChain runs selection, cost governance, transport and ledger
// accounting across the ordered candidate list.
func (e *Enhancer) executeChain(ctx context.Context, messages []llm.ChatMessage, opts Options) (RawResult, error) {
	selected, err := e.selectBackend(opts)
	if err != nil {
		return RawResult{}, err
	}

	candidates := e.buildCandidates(selected, opts)

	var lastErr error
	attempts := 0
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			// Caller-level deadline aborts the whole chain, not just
			// the in-flight attempt.
			lastErr = ctx.Err()
			break
		}

		profile, modelName, err := e.profileFor(candidate, opts)
		if err != nil {
			lastErr = err
			continue
		}

		if !opts.SkipCostCheck {
			est, err := e.governor.Approve(messages, candidate, modelName, profile.Rates, e.ledger)
			if err != nil {
				if errors.Is(err, cost.ErrLimitExceeded) {
					// A budget overage is a policy violation independent of
					// which backend would have served it: fatal for the
					// whole chain.
					return RawResult{}, err
				}
				lastErr = err
				continue
			}
			e.logger.Debug("cost estimate approved",
				"provider", candidate.String(), "model", modelName,
				"input_tokens", est.InputTokens, "estimated_cost_usd", est.CostUSD)
		}

		attempts++
		result, err := e.attempt(ctx, profile, modelName, messages, opts)
		if err != nil {
			if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				// The caller aborted mid-attempt. Not the backend's fault,
				// so its success rate takes no hit.
				lastErr = ctx.Err()
				break
			}
			e.ledger.RecordFailure(candidate.String())
			lastErr = fmt.Errorf("%s: %w", candidate, err)

			if e.settings.AbortOnAuthError && isAuthError(err) {
				// Credential rejections abort the whole chain; retrying an
				// equally-unverified credential elsewhere is assumed
				// low-value. Configurable via ABORT_ON_AUTH_ERROR.
				e.logger.Warn("authentication failure, aborting fallback chain",
					"provider", candidate.String(), "error", err)
				return RawResult{}, &AllProvidersError{Attempts: attempts, LastErr: lastErr}
			}

			e.logger.Warn("backend attempt failed, advancing chain",
				"provider", candidate.String(), "error", err)
			continue
		}

		actualCost := e.actualCost(profile, modelName, result.Usage, messages, candidate)
		tokens := int64(0)
		if result.Usage != nil {
			tokens = int64(result.Usage.TotalTokens)
		}
		e.ledger.RecordSuccess(candidate.String(), tokens, actualCost)

		return RawResult{
			Response: result,
			Provider: candidate,
			Model:    modelName,
			CostUSD:  actualCost,
		}, nil
	}

	return RawResult{}, &AllProvidersError{Attempts: attempts, LastErr: lastErr}
}

// buildCandidates produces the ordered, deduplicated candidate list: the
// selected backend first, then the configured fallback order.
func (e *Enhancer) buildCandidates(selected llm.ProviderType, opts Options) []llm.ProviderType {
	if opts.DisableFallback {
		return []llm.ProviderType{selected}
	}

	seen := map[llm.ProviderType]bool{selected: true}
	candidates := []llm.ProviderType{selected}
	for _, p := range e.settings.FallbackOrder {
		if seen[p] {
			continue
		}
		profile, ok := e.registry.Profile(p)
		if !ok || !profile.HasCredential() {
			continue
		}
		seen[p] = true
		candidates = append(candidates, p)
	}
	return candidates
}

// attempt runs one candidate to completion under its timeout, retrying
// transient failures up to the profile's retry budget. The ledger is not
// touched here: accounting happens once per completed attempt, not per
// retry sub-step.
func (e *Enhancer) attempt(ctx context.Context, profile config.ProviderProfile, modelName string, messages []llm.ChatMessage, opts Options) (llm.Response, error) {
	provider, err := e.providerFor(profile, modelName)
	if err != nil {
		return llm.Response{}, err
	}

	timeout := profile.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	var lastErr error
	for try := 0; try <= profile.MaxRetries; try++ {
		if ctx.Err() != nil {
			return llm.Response{}, ctx.Err()
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		resp, err := provider.ChatWithFormat(attemptCtx, messages, llm.NewJSONObjectFormat())
		cancel()
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if isAuthError(err) {
			// No point retrying a rejected credential.
			break
		}
	}
	return llm.Response{}, lastErr
}

// actualCost prices a completed call: reported usage when the backend
// provides it, the pre-flight estimate otherwise.
func (e *Enhancer) actualCost(profile config.ProviderProfile, modelName string, usage *llm.TokenUsage, messages []llm.ChatMessage, candidate llm.ProviderType) float64 {
	if usage != nil {
		return profile.Rates.Cost(int(usage.PromptTokens), int(usage.CompletionTokens))
	}
	return e.governor.Estimate(messages, candidate, modelName, profile.Rates).CostUSD
}
