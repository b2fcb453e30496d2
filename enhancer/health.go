// Networkless health checks: credential presence and superficial shape,
// never a paid call.

package enhancer

import (
	"strings"
	"time"

	"issueforge/config"
	"issueforge/llm"
	"issueforge/model"
)

// HealthCheck reports per-backend and aggregate health without spending
// budget. Each configured backend is validated locally: credential present,
// credential shape plausible, model configured.
//
// Probes are independent of each other; a deployment that extends them to
// real connectivity checks should fan them out concurrently.
func (e *Enhancer) HealthCheck() model.HealthSnapshot {
	backends := make(map[string]model.BackendHealth)
	passing := 0

	for _, profile := range e.registry.Profiles() {
		start := time.Now()
		health := probeProfile(profile)
		health.ResponseTime = time.Since(start)
		backends[profile.Provider.String()] = health
		if health.Available && health.Authenticated {
			passing++
		}
	}

	status := aggregateStatus(passing, e.settings.Enabled)

	limits := e.governor.Limits()
	remaining := limits.MaxPerMonthUSD - e.ledger.MonthSpentUSD()
	if remaining < 0 {
		remaining = 0
	}

	return model.HealthSnapshot{
		Status:         status,
		Backends:       backends,
		RunBudgetUSD:   limits.MaxPerRunUSD,
		MonthBudgetUSD: limits.MaxPerMonthUSD,
		MonthRemaining: remaining,
	}
}

// probeProfile validates one profile locally.
func probeProfile(profile config.ProviderProfile) model.BackendHealth {
	if !profile.HasCredential() {
		return model.BackendHealth{Error: "no credential configured"}
	}
	if profile.Model == "" {
		return model.BackendHealth{Available: true, Error: "no model configured"}
	}
	if !credentialShapeOK(profile.Provider, profile.APIKey) {
		return model.BackendHealth{Available: true, Error: "credential has unexpected shape"}
	}
	return model.BackendHealth{Available: true, Authenticated: true}
}

// credentialShapeOK performs a superficial prefix/length check. It proves
// nothing about validity; it catches swapped or truncated keys.
func credentialShapeOK(p llm.ProviderType, key string) bool {
	key = strings.TrimSpace(key)
	switch p {
	case llm.ProviderAnthropic:
		return strings.HasPrefix(key, "sk-ant-")
	case llm.ProviderOpenAI, llm.ProviderDeepSeek:
		return strings.HasPrefix(key, "sk-")
	case llm.ProviderGemini:
		return len(key) >= 16
	default:
		return len(key) >= 8
	}
}

// aggregateStatus folds per-backend results into an overall state. A
// disabled feature is degraded, never unhealthy: the capability is optional
// to the surrounding workflow.
func aggregateStatus(passing int, enabled bool) model.HealthState {
	if !enabled {
		return model.HealthDegraded
	}
	switch {
	case passing == 0:
		return model.HealthUnhealthy
	case passing == 1:
		return model.HealthDegraded
	default:
		return model.HealthHealthy
	}
}
