// Package config provides application settings loaded from environment variables.
//
// Settings are created via Load() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Per-backend profile lookup (credential, model, rates, timeout)

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"issueforge/cost"
	"issueforge/llm"
)

// ProviderProfile is the static per-backend configuration. Loaded once per
// process and treated as immutable afterwards. The credential is opaque:
// presence-checked, never validated cryptographically.
type ProviderProfile struct {
	Provider   llm.ProviderType
	APIKey     string
	Model      string
	Rates      cost.Rates
	Timeout    time.Duration
	MaxRetries int
}

// HasCredential reports whether the profile carries a non-empty credential.
func (p ProviderProfile) HasCredential() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// Registry holds the backend profiles in canonical registry order.
type Registry struct {
	profiles []ProviderProfile
}

// NewRegistry creates a registry from the given profiles, preserving order.
func NewRegistry(profiles ...ProviderProfile) *Registry {
	return &Registry{profiles: profiles}
}

// Profile returns the profile for a backend.
func (r *Registry) Profile(p llm.ProviderType) (ProviderProfile, bool) {
	for _, profile := range r.profiles {
		if profile.Provider == p {
			return profile, true
		}
	}
	return ProviderProfile{}, false
}

// Profiles returns all profiles in registry order.
func (r *Registry) Profiles() []ProviderProfile {
	out := make([]ProviderProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Available returns the backends with a non-empty credential, in registry order.
func (r *Registry) Available() []llm.ProviderType {
	var out []llm.ProviderType
	for _, profile := range r.profiles {
		if profile.HasCredential() {
			out = append(out, profile.Provider)
		}
	}
	return out
}

// Settings holds orchestrator configuration.
type Settings struct {
	// Enabled gates the whole enhancement feature. When false the
	// orchestrator answers every call with the deterministic fallback.
	Enabled bool

	// Primary is the preferred backend when the caller names none.
	Primary llm.ProviderType

	// FallbackOrder lists the backends tried after the selected one.
	FallbackOrder []llm.ProviderType

	MaxTokens   uint32
	Temperature float32

	// Limits configures the cost governor.
	Limits cost.Limits

	// AbortOnAuthError stops the whole fallback chain on a credential
	// rejection instead of advancing to the next backend.
	AbortOnAuthError bool
}

// Load reads settings and the backend registry from environment variables.
func Load() (Settings, *Registry, error) {
	enabled, err := getEnvBool("ENHANCER_ENABLED", true)
	if err != nil {
		return Settings{}, nil, err
	}

	primaryName := os.Getenv("LLM_PROVIDER")
	if primaryName == "" {
		primaryName = "anthropic"
	}
	primary, err := llm.ParseProviderType(primaryName)
	if err != nil {
		return Settings{}, nil, fmt.Errorf("invalid LLM_PROVIDER: %w", err)
	}

	fallbackOrder, err := parseFallbackOrder(os.Getenv("LLM_FALLBACK_PROVIDERS"), primary)
	if err != nil {
		return Settings{}, nil, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, nil, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.3)
	if err != nil {
		return Settings{}, nil, err
	}

	costChecks, err := getEnvBool("COST_CHECKS_ENABLED", true)
	if err != nil {
		return Settings{}, nil, err
	}

	maxPerRun, err := getEnvFloat64("MAX_COST_PER_RUN", 0.50)
	if err != nil {
		return Settings{}, nil, err
	}

	maxPerMonth, err := getEnvFloat64("MAX_COST_PER_MONTH", 50.0)
	if err != nil {
		return Settings{}, nil, err
	}

	abortOnAuth, err := getEnvBool("ABORT_ON_AUTH_ERROR", true)
	if err != nil {
		return Settings{}, nil, err
	}

	var profiles []ProviderProfile
	for _, p := range llm.AllProviders {
		profile, err := loadProfile(p)
		if err != nil {
			return Settings{}, nil, err
		}
		profiles = append(profiles, profile)
	}

	settings := Settings{
		Enabled:       enabled,
		Primary:       primary,
		FallbackOrder: fallbackOrder,
		MaxTokens:     maxTokens,
		Temperature:   float32(temperature),
		Limits: cost.Limits{
			Enabled:        costChecks,
			MaxPerRunUSD:   maxPerRun,
			MaxPerMonthUSD: maxPerMonth,
		},
		AbortOnAuthError: abortOnAuth,
	}

	return settings, NewRegistry(profiles...), nil
}

// loadProfile reads one backend's profile from the environment.
func loadProfile(p llm.ProviderType) (ProviderProfile, error) {
	prefix := strings.ToUpper(p.String())

	model := os.Getenv(prefix + "_MODEL")
	if model == "" {
		model = p.DefaultModel()
	}

	timeoutSec, err := getEnvInt(prefix+"_TIMEOUT_SECONDS", 60)
	if err != nil {
		return ProviderProfile{}, err
	}

	maxRetries, err := getEnvInt(prefix+"_MAX_RETRIES", 2)
	if err != nil {
		return ProviderProfile{}, err
	}

	rates := cost.RatesFor(p, model)
	if v, err := getEnvFloat64(prefix+"_INPUT_COST_PER_1K", rates.InputPer1K); err != nil {
		return ProviderProfile{}, err
	} else {
		rates.InputPer1K = v
	}
	if v, err := getEnvFloat64(prefix+"_OUTPUT_COST_PER_1K", rates.OutputPer1K); err != nil {
		return ProviderProfile{}, err
	} else {
		rates.OutputPer1K = v
	}

	return ProviderProfile{
		Provider:   p,
		APIKey:     os.Getenv(p.EnvVar()),
		Model:      model,
		Rates:      rates,
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: maxRetries,
	}, nil
}

// parseFallbackOrder parses the comma-separated fallback list. An empty value
// defaults to every other backend in registry order.
func parseFallbackOrder(raw string, primary llm.ProviderType) ([]llm.ProviderType, error) {
	if strings.TrimSpace(raw) == "" {
		var out []llm.ProviderType
		for _, p := range llm.AllProviders {
			if p != primary {
				out = append(out, p)
			}
		}
		return out, nil
	}

	var out []llm.ProviderType
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, err := llm.ParseProviderType(name)
		if err != nil {
			return nil, fmt.Errorf("invalid LLM_FALLBACK_PROVIDERS entry: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}
