// Deterministic full-outage fallback. Built only from the original request,
// with no network access, so Enhance can always return something usable.

package enhancer

import (
	"fmt"
	"strings"
	"time"

	"issueforge/model"
)

const fallbackProviderTag = "fallback"

// fallbackConfidence is intentionally low: the result is a placeholder for
// human triage, not an analysis.
const fallbackConfidence = 0.3

// fallbackResult produces the deterministic result used when the feature is
// disabled or every backend failed.
func fallbackResult(req model.EnhancementRequest, elapsed time.Duration) model.EnhancementResult {
	var sb strings.Builder
	sb.WriteString("Automated fallback enhancement (no model backend was available).\n\n")
	fmt.Fprintf(&sb, "Original report (%s):\n%s\n", req.Kind, req.Description)

	if req.Crash != nil && len(req.Crash.TraceLines) > 0 {
		fmt.Fprintf(&sb, "\nCrash context attached: %d trace lines", len(req.Crash.TraceLines))
		if req.Crash.Device != "" {
			fmt.Fprintf(&sb, " on %s", req.Crash.Device)
		}
		sb.WriteString(".\n")
	}
	if len(req.Snippets) > 0 {
		fmt.Fprintf(&sb, "Codebase context attached: %d snippets.\n", len(req.Snippets))
	}
	if len(req.Diffs) > 0 {
		fmt.Fprintf(&sb, "Recent changes attached: %d diffs.\n", len(req.Diffs))
	}
	sb.WriteString("\nThis issue needs manual triage.")

	priority := model.PriorityMedium
	if req.Kind == model.FeedbackCrash {
		priority = model.PriorityHigh
	}

	labels := []string{"auto-fallback", "needs-triage"}
	if req.Kind == model.FeedbackCrash {
		labels = append(labels, "crash")
	}

	title := req.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Untriaged %s report", req.Kind)
	}

	return model.EnhancementResult{
		Title:       truncate(title, maxTitleChars),
		Description: truncate(sb.String(), maxDescriptionOut),
		Priority:    priority,
		Labels:      labels,
		Analysis: model.Analysis{
			RootCause:  "Not analyzed (fallback path)",
			Confidence: fallbackConfidence,
		},
		Metadata: model.ResultMetadata{
			Provider:       fallbackProviderTag,
			ProcessingTime: elapsed,
			CostUSD:        0,
		},
	}
}
