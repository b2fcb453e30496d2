package cost

import (
	"sync"
	"testing"
	"time"
)

func TestLedgerRecordSuccess(t *testing.T) {
	l := NewLedger()
	l.RecordSuccess("anthropic", 500, 0.01)
	l.RecordSuccess("anthropic", 300, 0.005)

	snap := l.Snapshot()
	if snap.TotalTokens != 800 {
		t.Errorf("expected 800 total tokens, got %d", snap.TotalTokens)
	}
	if snap.TotalRequests != 2 {
		t.Errorf("expected 2 requests, got %d", snap.TotalRequests)
	}
	if snap.MonthCostUSD != snap.TotalCostUSD {
		t.Errorf("month cost %f should equal total cost %f in a fresh ledger",
			snap.MonthCostUSD, snap.TotalCostUSD)
	}

	u := snap.Providers["anthropic"]
	if u.Successes != 2 || u.Requests != 2 {
		t.Errorf("unexpected provider usage: %+v", u)
	}
	if u.SuccessRate() != 1.0 {
		t.Errorf("expected success rate 1.0, got %f", u.SuccessRate())
	}
}

func TestLedgerFailureCreditsNoUsage(t *testing.T) {
	l := NewLedger()
	l.RecordFailure("openai")
	l.RecordSuccess("anthropic", 100, 0.002)

	snap := l.Snapshot()
	if snap.TotalRequests != 2 {
		t.Errorf("expected 2 requests, got %d", snap.TotalRequests)
	}

	oa := snap.Providers["openai"]
	if oa.Tokens != 0 || oa.CostUSD != 0 {
		t.Errorf("failure must not credit usage: %+v", oa)
	}
	if oa.SuccessRate() != 0 {
		t.Errorf("expected 0 success rate, got %f", oa.SuccessRate())
	}
	if rate := snap.Providers["anthropic"].SuccessRate(); rate != 1.0 {
		t.Errorf("expected anthropic success rate 1.0, got %f", rate)
	}
}

func TestLedgerMonthRollover(t *testing.T) {
	l := NewLedger()
	current := time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	l.RecordSuccess("gemini", 1000, 0.5)
	if got := l.MonthSpentUSD(); got != 0.5 {
		t.Fatalf("expected 0.5 spent, got %f", got)
	}

	current = time.Date(2026, 8, 1, 0, 0, 1, 0, time.UTC)
	if got := l.MonthSpentUSD(); got != 0 {
		t.Errorf("expected month window reset, got %f", got)
	}

	snap := l.Snapshot()
	if snap.TotalCostUSD != 0.5 {
		t.Errorf("total counters must never decrease, got %f", snap.TotalCostUSD)
	}
	if snap.Month != "2026-08" {
		t.Errorf("expected month 2026-08, got %q", snap.Month)
	}
}

func TestLedgerConcurrentUpdates(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RecordSuccess("openai", 10, 0.001)
			l.RecordFailure("anthropic")
		}()
	}
	wg.Wait()

	snap := l.Snapshot()
	if snap.TotalRequests != 100 {
		t.Errorf("expected 100 requests, got %d", snap.TotalRequests)
	}
	if snap.TotalTokens != 500 {
		t.Errorf("expected 500 tokens, got %d", snap.TotalTokens)
	}
}
