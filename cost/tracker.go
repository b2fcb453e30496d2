// Usage ledger: running counters of tokens, cost and requests, global and
// per-backend. Process-lifetime scoped; durability is a collaborator concern.

package cost

import (
	"sync"
	"time"
)

// ProviderUsage holds the per-backend counters.
type ProviderUsage struct {
	Requests  int64   `json:"requests"`
	Successes int64   `json:"successes"`
	Tokens    int64   `json:"tokens"`
	CostUSD   float64 `json:"cost_usd"`
}

// SuccessRate returns the rolling success rate for this backend, or zero
// when it has never been attempted.
func (u ProviderUsage) SuccessRate() float64 {
	if u.Requests == 0 {
		return 0
	}
	return float64(u.Successes) / float64(u.Requests)
}

// Snapshot is a point-in-time copy of the ledger counters.
type Snapshot struct {
	TotalTokens   int64                    `json:"total_tokens"`
	TotalCostUSD  float64                  `json:"total_cost_usd"`
	TotalRequests int64                    `json:"total_requests"`
	Month         string                   `json:"month"`
	MonthTokens   int64                    `json:"month_tokens"`
	MonthCostUSD  float64                  `json:"month_cost_usd"`
	MonthRequests int64                    `json:"month_requests"`
	Providers     map[string]ProviderUsage `json:"providers"`
}

// Ledger accumulates usage counters. Counters never decrease and are updated
// exactly once per completed attempt (not per retry sub-step). Safe for
// concurrent callers.
type Ledger struct {
	mu sync.Mutex

	totalTokens   int64
	totalCostUSD  float64
	totalRequests int64

	month         string
	monthTokens   int64
	monthCostUSD  float64
	monthRequests int64

	providers map[string]ProviderUsage

	now func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		providers: make(map[string]ProviderUsage),
		now:       time.Now,
	}
}

// rollMonth resets the current-month window when the calendar month has
// changed since the last update. Callers must hold mu.
func (l *Ledger) rollMonth() {
	month := l.now().Format("2006-01")
	if l.month != month {
		l.month = month
		l.monthTokens = 0
		l.monthCostUSD = 0
		l.monthRequests = 0
	}
}

// RecordSuccess credits a completed successful attempt to the backend.
func (l *Ledger) RecordSuccess(provider string, tokens int64, costUSD float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollMonth()

	l.totalTokens += tokens
	l.totalCostUSD += costUSD
	l.totalRequests++
	l.monthTokens += tokens
	l.monthCostUSD += costUSD
	l.monthRequests++

	u := l.providers[provider]
	u.Requests++
	u.Successes++
	u.Tokens += tokens
	u.CostUSD += costUSD
	l.providers[provider] = u
}

// RecordFailure records a completed terminal failure for the backend.
// Failures count as requests but credit no tokens or cost.
func (l *Ledger) RecordFailure(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollMonth()

	l.totalRequests++
	l.monthRequests++

	u := l.providers[provider]
	u.Requests++
	l.providers[provider] = u
}

// MonthSpentUSD returns the dollars spent in the current calendar month.
func (l *Ledger) MonthSpentUSD() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollMonth()
	return l.monthCostUSD
}

// Snapshot returns a copy of all counters.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollMonth()

	providers := make(map[string]ProviderUsage, len(l.providers))
	for name, u := range l.providers {
		providers[name] = u
	}

	return Snapshot{
		TotalTokens:   l.totalTokens,
		TotalCostUSD:  l.totalCostUSD,
		TotalRequests: l.totalRequests,
		Month:         l.month,
		MonthTokens:   l.monthTokens,
		MonthCostUSD:  l.monthCostUSD,
		MonthRequests: l.monthRequests,
		Providers:     providers,
	}
}
