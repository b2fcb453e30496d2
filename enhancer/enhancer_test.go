package enhancer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"issueforge/config"
	"issueforge/cost"
	"issueforge/llm"
	"issueforge/model"
)

// stubProvider is a scripted transport that records invocations.
type stubProvider struct {
	mu       sync.Mutex
	name     string
	model    string
	response string
	err      error
	wait     bool // block until the attempt context expires
	calls    int
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Model() string { return s.model }

func (s *stubProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.Response, error) {
	return s.ChatWithFormat(ctx, messages, nil)
}

func (s *stubProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, _ *llm.ResponseFormat) (llm.Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.wait {
		<-ctx.Done()
		return llm.Response{}, ctx.Err()
	}
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{
		Content: s.response,
		Usage:   &llm.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubFactory wires stub transports in place of real SDK clients.
func stubFactory(stubs map[llm.ProviderType]*stubProvider) ProviderFactory {
	return func(profile config.ProviderProfile, model string, _ uint32, _ float32) (llm.Provider, error) {
		stub, ok := stubs[profile.Provider]
		if !ok {
			return nil, errors.New("no stub for " + profile.Provider.String())
		}
		return stub, nil
	}
}

func testSettings(primary llm.ProviderType, fallback ...llm.ProviderType) config.Settings {
	return config.Settings{
		Enabled:          true,
		Primary:          primary,
		FallbackOrder:    fallback,
		MaxTokens:        1024,
		Temperature:      0.3,
		Limits:           cost.Limits{Enabled: false},
		AbortOnAuthError: true,
	}
}

func profile(p llm.ProviderType, key string, rates cost.Rates) config.ProviderProfile {
	return config.ProviderProfile{
		Provider: p,
		APIKey:   key,
		Model:    p.DefaultModel(),
		Rates:    rates,
		Timeout:  5 * time.Second,
	}
}

// newTestEnhancer builds an Enhancer directly, bypassing New's fail-fast
// construction check so degenerate registries can be exercised too.
func newTestEnhancer(settings config.Settings, registry *config.Registry, stubs map[llm.ProviderType]*stubProvider) *Enhancer {
	e := &Enhancer{
		settings:  settings,
		registry:  registry,
		ledger:    cost.NewLedger(),
		logger:    slog.Default(),
		factory:   stubFactory(stubs),
		providers: make(map[providerKey]llm.Provider),
	}
	e.governor = cost.NewGovernor(settings.Limits, nil, e.logger)
	return e
}

func crashRequest() model.EnhancementRequest {
	return model.EnhancementRequest{
		Title:       "App crashes on startup",
		Description: "The app dies immediately after the splash screen.",
		Kind:        model.FeedbackCrash,
		Crash: &model.CrashContext{
			TraceLines: []string{"NullPointerException at MainActivity.onCreate"},
			Device:     "Pixel 9",
			OSVersion:  "Android 16",
		},
	}
}

func TestNewFailsFastWhenEnabledWithoutCredentials(t *testing.T) {
	registry := config.NewRegistry(profile(llm.ProviderOpenAI, "", cost.Rates{}))
	if _, err := New(testSettings(llm.ProviderOpenAI), registry); err == nil {
		t.Fatal("expected construction to fail with no usable backend")
	}
}

func TestNewWithoutStartupCheck(t *testing.T) {
	registry := config.NewRegistry(profile(llm.ProviderOpenAI, "", cost.Rates{}))
	e, err := New(testSettings(llm.ProviderOpenAI), registry, WithoutStartupCheck())
	if err != nil {
		t.Fatalf("diagnostic construction must succeed: %v", err)
	}
	if snap := e.HealthCheck(); snap.Status != model.HealthUnhealthy {
		t.Errorf("expected unhealthy, got %v", snap.Status)
	}
}

func TestNewSucceedsWhenDisabled(t *testing.T) {
	settings := testSettings(llm.ProviderOpenAI)
	settings.Enabled = false
	if _, err := New(settings, config.NewRegistry()); err != nil {
		t.Fatalf("disabled orchestrator must construct: %v", err)
	}
}

func TestEnhanceAlwaysResolvesWellFormed(t *testing.T) {
	requests := []model.EnhancementRequest{
		crashRequest(),
		{Title: strings.Repeat("long ", 100), Kind: model.FeedbackGeneral},
		{Kind: model.FeedbackPerformance, Description: "scrolling is slow"},
		{},
	}

	stub := &stubProvider{name: "anthropic", response: "not json at all"}
	registry := config.NewRegistry(profile(llm.ProviderAnthropic, "sk-ant-test", cost.Rates{InputPer1K: 0.003, OutputPer1K: 0.015}))
	e := newTestEnhancer(testSettings(llm.ProviderAnthropic), registry, map[llm.ProviderType]*stubProvider{llm.ProviderAnthropic: stub})

	for i, req := range requests {
		result := e.Enhance(context.Background(), req, Options{})
		if len(result.Title) > 200 {
			t.Errorf("request %d: title exceeds 200 chars", i)
		}
		if len(result.Description) > 5000 {
			t.Errorf("request %d: description exceeds 5000 chars", i)
		}
		if !model.ValidPriority(result.Priority) {
			t.Errorf("request %d: invalid priority %q", i, result.Priority)
		}
		if len(result.Labels) > 15 {
			t.Errorf("request %d: too many labels: %d", i, len(result.Labels))
		}
		if result.Analysis.Confidence < 0 || result.Analysis.Confidence > 1 {
			t.Errorf("request %d: confidence out of range: %f", i, result.Analysis.Confidence)
		}
	}
}

func TestSelectorPicksOnlyCredentialedBackend(t *testing.T) {
	// Primary (openai) has no credential; anthropic does.
	stub := &stubProvider{name: "anthropic", response: `{"enhancedTitle":"X","priority":"high","labels":["bug"]}`}
	registry := config.NewRegistry(
		profile(llm.ProviderOpenAI, "", cost.Rates{}),
		profile(llm.ProviderAnthropic, "sk-ant-test", cost.Rates{}),
	)
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI, llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderAnthropic: stub})

	result := e.Enhance(context.Background(), crashRequest(), Options{})
	if result.Metadata.Provider != "anthropic" {
		t.Errorf("expected anthropic selected, got %q", result.Metadata.Provider)
	}
	if result.Title != "X" {
		t.Errorf("expected enhanced title X, got %q", result.Title)
	}
	if result.Priority != model.PriorityHigh {
		t.Errorf("expected priority high, got %q", result.Priority)
	}
	if stub.callCount() != 1 {
		t.Errorf("expected exactly one transport call, got %d", stub.callCount())
	}
}

func TestExplicitProviderWinsUnconditionally(t *testing.T) {
	gemini := &stubProvider{name: "gemini", response: `{"enhancedTitle":"G"}`}
	anthropic := &stubProvider{name: "anthropic", response: `{"enhancedTitle":"A"}`}
	registry := config.NewRegistry(
		profile(llm.ProviderAnthropic, "sk-ant-test", cost.Rates{}),
		profile(llm.ProviderGemini, "gemini-key-0123456789", cost.Rates{}),
	)
	e := newTestEnhancer(testSettings(llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderGemini: gemini, llm.ProviderAnthropic: anthropic})

	result := e.Enhance(context.Background(), crashRequest(), Options{Provider: "gemini"})
	if result.Metadata.Provider != "gemini" {
		t.Errorf("expected explicit gemini, got %q", result.Metadata.Provider)
	}
	if anthropic.callCount() != 0 {
		t.Errorf("primary must not be called, got %d calls", anthropic.callCount())
	}
}

func TestPreferCheapestSelectsLowestRates(t *testing.T) {
	// A: input $0.0015 / output $0.002, B: input $0.0005 / output $0.0015.
	a := &stubProvider{name: "openai", response: `{"enhancedTitle":"A"}`}
	b := &stubProvider{name: "deepseek", response: `{"enhancedTitle":"B"}`}
	registry := config.NewRegistry(
		profile(llm.ProviderOpenAI, "sk-a", cost.Rates{InputPer1K: 0.0015, OutputPer1K: 0.002}),
		profile(llm.ProviderDeepSeek, "sk-b", cost.Rates{InputPer1K: 0.0005, OutputPer1K: 0.0015}),
	)
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI, llm.ProviderDeepSeek), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: a, llm.ProviderDeepSeek: b})

	result := e.Enhance(context.Background(), crashRequest(), Options{PreferCheapest: true})
	if result.Metadata.Provider != "deepseek" {
		t.Errorf("expected cheapest backend deepseek, got %q", result.Metadata.Provider)
	}
	if a.callCount() != 0 {
		t.Errorf("expensive backend must not be called, got %d", a.callCount())
	}
}

func TestCostLimitBlocksTransport(t *testing.T) {
	stub := &stubProvider{name: "openai", response: "{}"}
	settings := testSettings(llm.ProviderOpenAI)
	settings.Limits = cost.Limits{Enabled: true, MaxPerRunUSD: 0.0000001}

	registry := config.NewRegistry(profile(llm.ProviderOpenAI, "sk-test", cost.Rates{InputPer1K: 0.0025, OutputPer1K: 0.01}))
	e := newTestEnhancer(settings, registry, map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: stub})

	_, err := e.Request(context.Background(), strings.Repeat("describe this crash ", 200), Options{})
	if !errors.Is(err, cost.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if stub.callCount() != 0 {
		t.Errorf("expected zero transport invocations, got %d", stub.callCount())
	}
}

func TestSkipCostCheckBypassesGovernor(t *testing.T) {
	stub := &stubProvider{name: "openai", response: "{}"}
	settings := testSettings(llm.ProviderOpenAI)
	settings.Limits = cost.Limits{Enabled: true, MaxPerRunUSD: 0.0000001}

	registry := config.NewRegistry(profile(llm.ProviderOpenAI, "sk-test", cost.Rates{InputPer1K: 0.0025, OutputPer1K: 0.01}))
	e := newTestEnhancer(settings, registry, map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: stub})

	if _, err := e.Request(context.Background(), "hello", Options{SkipCostCheck: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.callCount() != 1 {
		t.Errorf("expected one transport call, got %d", stub.callCount())
	}
}

func TestFallbackChainAdvancesOnGenericError(t *testing.T) {
	a := &stubProvider{name: "openai", err: errors.New("connection reset by peer")}
	b := &stubProvider{name: "anthropic", response: `{"enhancedTitle":"rescued","priority":"medium"}`}
	registry := config.NewRegistry(
		profile(llm.ProviderOpenAI, "sk-a", cost.Rates{}),
		profile(llm.ProviderAnthropic, "sk-ant-b", cost.Rates{InputPer1K: 0.003, OutputPer1K: 0.015}),
	)
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI, llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: a, llm.ProviderAnthropic: b})

	result := e.Enhance(context.Background(), crashRequest(), Options{})
	if result.Metadata.Provider != "anthropic" {
		t.Fatalf("expected fallback to anthropic, got %q", result.Metadata.Provider)
	}

	snap := e.UsageStats()
	oa := snap.Providers["openai"]
	if oa.Requests != 1 || oa.Successes != 0 || oa.Tokens != 0 || oa.CostUSD != 0 {
		t.Errorf("openai failure must be recorded without usage: %+v", oa)
	}
	an := snap.Providers["anthropic"]
	if an.Successes != 1 || an.Tokens != 150 {
		t.Errorf("anthropic success not credited: %+v", an)
	}
}

func TestTimeoutAdvancesChain(t *testing.T) {
	slow := &stubProvider{name: "openai", wait: true}
	fast := &stubProvider{name: "anthropic", response: `{"enhancedTitle":"rescued"}`}

	pa := profile(llm.ProviderOpenAI, "sk-a", cost.Rates{})
	pa.Timeout = 10 * time.Millisecond
	registry := config.NewRegistry(pa, profile(llm.ProviderAnthropic, "sk-ant-b", cost.Rates{}))
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI, llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: slow, llm.ProviderAnthropic: fast})

	result, err := e.Request(context.Background(), "hello", Options{})
	if err != nil {
		t.Fatalf("expected chain to advance past the timed-out backend: %v", err)
	}
	if result.Provider != llm.ProviderAnthropic {
		t.Errorf("expected anthropic to serve, got %v", result.Provider)
	}
	if slow.callCount() != 1 {
		t.Errorf("expected one attempt against the slow backend, got %d", slow.callCount())
	}

	oa := e.UsageStats().Providers["openai"]
	if oa.Requests != 1 || oa.Successes != 0 {
		t.Errorf("timeout must be booked as one failed attempt: %+v", oa)
	}
}

func TestCallerAbortNotBookedToBackend(t *testing.T) {
	slow := &stubProvider{name: "openai", wait: true}
	registry := config.NewRegistry(profile(llm.ProviderOpenAI, "sk-a", cost.Rates{}))
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: slow})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := e.Request(ctx, "hello", Options{}); err == nil {
		t.Fatal("expected caller deadline to fail the request")
	}

	if got := e.UsageStats().Providers["openai"].Requests; got != 0 {
		t.Errorf("caller abort must not dent the backend's ledger, got %d requests", got)
	}
}

func TestRetryBudgetPerCandidate(t *testing.T) {
	a := &stubProvider{name: "openai", err: errors.New("temporary network glitch")}
	p := profile(llm.ProviderOpenAI, "sk-a", cost.Rates{})
	p.MaxRetries = 2
	registry := config.NewRegistry(p)
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: a})

	_, err := e.Request(context.Background(), "hello", Options{})
	var all *AllProvidersError
	if !errors.As(err, &all) {
		t.Fatalf("expected AllProvidersError, got %v", err)
	}
	if a.callCount() != 3 {
		t.Errorf("expected initial call plus 2 retries, got %d", a.callCount())
	}

	// Retries are sub-steps: the ledger sees exactly one completed attempt.
	if got := e.UsageStats().Providers["openai"].Requests; got != 1 {
		t.Errorf("expected one ledger entry, got %d", got)
	}
}

func TestAuthFailureAbortsChain(t *testing.T) {
	a := &stubProvider{name: "openai", err: errors.New("401 Unauthorized: incorrect API key provided")}
	b := &stubProvider{name: "anthropic", response: "{}"}
	registry := config.NewRegistry(
		profile(llm.ProviderOpenAI, "sk-a", cost.Rates{}),
		profile(llm.ProviderAnthropic, "sk-ant-b", cost.Rates{}),
	)
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI, llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: a, llm.ProviderAnthropic: b})

	_, err := e.Request(context.Background(), "hello", Options{})
	var all *AllProvidersError
	if !errors.As(err, &all) {
		t.Fatalf("expected AllProvidersError, got %v", err)
	}
	if b.callCount() != 0 {
		t.Errorf("auth failure must abort the chain before anthropic, got %d calls", b.callCount())
	}
}

func TestAuthAbortPolicyConfigurable(t *testing.T) {
	a := &stubProvider{name: "openai", err: errors.New("401 Unauthorized")}
	b := &stubProvider{name: "anthropic", response: "{}"}
	settings := testSettings(llm.ProviderOpenAI, llm.ProviderAnthropic)
	settings.AbortOnAuthError = false

	registry := config.NewRegistry(
		profile(llm.ProviderOpenAI, "sk-a", cost.Rates{}),
		profile(llm.ProviderAnthropic, "sk-ant-b", cost.Rates{}),
	)
	e := newTestEnhancer(settings, registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: a, llm.ProviderAnthropic: b})

	result, err := e.Request(context.Background(), "hello", Options{})
	if err != nil {
		t.Fatalf("expected chain to advance past auth failure: %v", err)
	}
	if result.Provider != llm.ProviderAnthropic {
		t.Errorf("expected anthropic to serve, got %v", result.Provider)
	}
}

func TestDisableFallbackLimitsChain(t *testing.T) {
	a := &stubProvider{name: "openai", err: errors.New("boom")}
	b := &stubProvider{name: "anthropic", response: "{}"}
	registry := config.NewRegistry(
		profile(llm.ProviderOpenAI, "sk-a", cost.Rates{}),
		profile(llm.ProviderAnthropic, "sk-ant-b", cost.Rates{}),
	)
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI, llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: a, llm.ProviderAnthropic: b})

	_, err := e.Request(context.Background(), "hello", Options{DisableFallback: true})
	if err == nil {
		t.Fatal("expected failure with fallback disabled")
	}
	if b.callCount() != 0 {
		t.Errorf("fallback backend must not be tried, got %d calls", b.callCount())
	}
}

func TestAllProvidersFailedYieldsFallbackResult(t *testing.T) {
	a := &stubProvider{name: "openai", err: errors.New("service unavailable")}
	b := &stubProvider{name: "anthropic", err: errors.New("overloaded")}
	registry := config.NewRegistry(
		profile(llm.ProviderOpenAI, "sk-a", cost.Rates{}),
		profile(llm.ProviderAnthropic, "sk-ant-b", cost.Rates{}),
	)
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI, llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: a, llm.ProviderAnthropic: b})

	result := e.Enhance(context.Background(), crashRequest(), Options{})
	if result.Metadata.Provider != "fallback" {
		t.Errorf("expected fallback provider tag, got %q", result.Metadata.Provider)
	}
	if result.Metadata.CostUSD != 0 {
		t.Errorf("fallback result must cost exactly 0, got %f", result.Metadata.CostUSD)
	}
	if result.Priority != model.PriorityHigh {
		t.Errorf("crash fallback should be high priority, got %q", result.Priority)
	}
}

func TestFallbackResultClampsLongFields(t *testing.T) {
	req := model.EnhancementRequest{
		Title:       strings.Repeat("t", 500),
		Description: strings.Repeat("d", 10000),
		Kind:        model.FeedbackGeneral,
	}
	result := fallbackResult(req, time.Millisecond)
	if len(result.Title) > 200 {
		t.Errorf("fallback title exceeds 200 chars: %d", len(result.Title))
	}
	if len(result.Description) > 5000 {
		t.Errorf("fallback description exceeds 5000 chars: %d", len(result.Description))
	}
}

func TestEnhanceDisabledUsesFallback(t *testing.T) {
	settings := testSettings(llm.ProviderOpenAI)
	settings.Enabled = false
	e := newTestEnhancer(settings, config.NewRegistry(), nil)

	result := e.Enhance(context.Background(), crashRequest(), Options{})
	if result.Metadata.Provider != "fallback" {
		t.Errorf("expected fallback result when disabled, got %q", result.Metadata.Provider)
	}

	if _, err := e.Request(context.Background(), "hello", Options{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Request must surface ErrDisabled, got %v", err)
	}
}

func TestRequestNoProviderConfigured(t *testing.T) {
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI),
		config.NewRegistry(profile(llm.ProviderOpenAI, "", cost.Rates{})), nil)

	_, err := e.Request(context.Background(), "hello", Options{})
	if !errors.Is(err, ErrNoProviderConfigured) {
		t.Errorf("expected ErrNoProviderConfigured, got %v", err)
	}
}

func TestRequestAcceptsBackendShapes(t *testing.T) {
	stub := &stubProvider{name: "anthropic", response: "fine"}
	registry := config.NewRegistry(profile(llm.ProviderAnthropic, "sk-ant-x", cost.Rates{}))
	e := newTestEnhancer(testSettings(llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderAnthropic: stub})

	shape := map[string]any{
		"system":   "be terse",
		"messages": []any{map[string]any{"role": "user", "content": "hi"}},
	}
	result, err := e.Request(context.Background(), shape, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response.Content != "fine" {
		t.Errorf("unexpected content %q", result.Response.Content)
	}

	// Unrecognized shapes pass through instead of failing.
	if _, err := e.Request(context.Background(), map[string]any{"prompt": "odd shape"}, Options{}); err != nil {
		t.Errorf("pass-through input must not error: %v", err)
	}
}

func TestCallerDeadlineAbortsChain(t *testing.T) {
	a := &stubProvider{name: "openai", err: errors.New("slow failure")}
	b := &stubProvider{name: "anthropic", response: "{}"}
	registry := config.NewRegistry(
		profile(llm.ProviderOpenAI, "sk-a", cost.Rates{}),
		profile(llm.ProviderAnthropic, "sk-ant-b", cost.Rates{}),
	)
	e := newTestEnhancer(testSettings(llm.ProviderOpenAI, llm.ProviderAnthropic), registry,
		map[llm.ProviderType]*stubProvider{llm.ProviderOpenAI: a, llm.ProviderAnthropic: b})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Request(ctx, "hello", Options{})
	if err == nil {
		t.Fatal("expected cancelled context to abort the chain")
	}
	if b.callCount() != 0 {
		t.Errorf("cancelled chain must not reach fallback backend, got %d calls", b.callCount())
	}
}

func TestHealthCheckAggregation(t *testing.T) {
	cases := []struct {
		name     string
		enabled  bool
		keys     map[llm.ProviderType]string
		expected model.HealthState
	}{
		{"zero credentials enabled", true, map[llm.ProviderType]string{}, model.HealthUnhealthy},
		{"zero credentials disabled", false, map[llm.ProviderType]string{}, model.HealthDegraded},
		{"one credential", true, map[llm.ProviderType]string{llm.ProviderAnthropic: "sk-ant-good"}, model.HealthDegraded},
		{"two credentials", true, map[llm.ProviderType]string{
			llm.ProviderAnthropic: "sk-ant-good",
			llm.ProviderOpenAI:    "sk-good",
		}, model.HealthHealthy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var profiles []config.ProviderProfile
			for _, p := range llm.AllProviders {
				profiles = append(profiles, profile(p, tc.keys[p], cost.Rates{}))
			}
			settings := testSettings(llm.ProviderAnthropic)
			settings.Enabled = tc.enabled
			e := newTestEnhancer(settings, config.NewRegistry(profiles...), nil)

			snap := e.HealthCheck()
			if snap.Status != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, snap.Status)
			}
			if len(snap.Backends) != len(llm.AllProviders) {
				t.Errorf("expected a report per backend, got %d", len(snap.Backends))
			}
		})
	}
}

func TestHealthCheckFlagsBadCredentialShape(t *testing.T) {
	registry := config.NewRegistry(profile(llm.ProviderAnthropic, "totally-wrong-prefix", cost.Rates{}))
	e := newTestEnhancer(testSettings(llm.ProviderAnthropic), registry, nil)

	snap := e.HealthCheck()
	backend := snap.Backends["anthropic"]
	if !backend.Available || backend.Authenticated {
		t.Errorf("expected available but unauthenticated, got %+v", backend)
	}
	if backend.Error == "" {
		t.Error("expected an explanatory error for the failing check")
	}
}

func TestHealthCheckReportsBudget(t *testing.T) {
	settings := testSettings(llm.ProviderAnthropic)
	settings.Limits = cost.Limits{Enabled: true, MaxPerRunUSD: 1, MaxPerMonthUSD: 10}
	registry := config.NewRegistry(profile(llm.ProviderAnthropic, "sk-ant-x", cost.Rates{}))
	e := newTestEnhancer(settings, registry, nil)
	e.ledger.RecordSuccess("anthropic", 100, 4)

	snap := e.HealthCheck()
	if snap.MonthRemaining != 6 {
		t.Errorf("expected 6 remaining, got %f", snap.MonthRemaining)
	}
}
