// Package model provides domain types shared across packages.
package model

import "time"

// FeedbackKind classifies the incoming feedback record.
type FeedbackKind string

const (
	FeedbackCrash       FeedbackKind = "crash"
	FeedbackGeneral     FeedbackKind = "general"
	FeedbackPerformance FeedbackKind = "performance"
)

// Priority is the triage priority assigned to an enhanced issue.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidPriority reports whether p is one of the known priority values.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// CrashContext carries the technical context attached to a crash report.
type CrashContext struct {
	TraceLines []string `json:"trace_lines,omitempty"`
	Device     string   `json:"device,omitempty"`
	OSVersion  string   `json:"os_version,omitempty"`
}

// CodeSnippet is a ranked codebase-context fragment attached to a request.
type CodeSnippet struct {
	Path      string  `json:"path"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// ChangeDiff is a recent-change diff attached to a request.
type ChangeDiff struct {
	Path      string    `json:"path"`
	Diff      string    `json:"diff"`
	Committed time.Time `json:"committed,omitempty"`
}

// EnhancementRequest is a structured feedback record to be enhanced.
// Treat as immutable once constructed.
type EnhancementRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Kind        FeedbackKind  `json:"kind"`
	Crash       *CrashContext `json:"crash,omitempty"`
	Snippets    []CodeSnippet `json:"snippets,omitempty"`
	Diffs       []ChangeDiff  `json:"diffs,omitempty"`
}

// Analysis is the structured root-cause block of an enhanced issue.
type Analysis struct {
	RootCause          string   `json:"root_cause"`
	AffectedComponents []string `json:"affected_components"`
	SuggestedFix       string   `json:"suggested_fix"`
	Confidence         float64  `json:"confidence"` // 0.0 - 1.0
}

// ResultMetadata records how an enhancement was produced.
type ResultMetadata struct {
	Provider       string        `json:"provider"`
	Model          string        `json:"model,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	CostUSD        float64       `json:"cost_usd"`
}

// EnhancementResult is the enriched issue returned to the caller.
// Always well-formed: Title is at most 200 characters, Description at most
// 5000, Labels at most 15 deduplicated entries, and Priority is a valid enum
// value. Errors are never propagated as the result.
type EnhancementResult struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    Priority       `json:"priority"`
	Labels      []string       `json:"labels"`
	Analysis    Analysis       `json:"analysis"`
	Metadata    ResultMetadata `json:"metadata"`
}

// HealthState is the aggregate health of the orchestrator.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// BackendHealth reports the networkless health of a single backend.
type BackendHealth struct {
	Available     bool          `json:"available"`
	Authenticated bool          `json:"authenticated"`
	ResponseTime  time.Duration `json:"response_time,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// HealthSnapshot is the answer to a health-check query.
type HealthSnapshot struct {
	Status         HealthState              `json:"status"`
	Backends       map[string]BackendHealth `json:"backends"`
	RunBudgetUSD   float64                  `json:"run_budget_usd"`
	MonthBudgetUSD float64                  `json:"month_budget_usd"`
	MonthRemaining float64                  `json:"month_remaining_usd"`
}
