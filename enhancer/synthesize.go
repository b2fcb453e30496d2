// Response synthesis: strict structured parsing of model output with a
// heuristic fallback. Neither path ever fails; a parse failure degrades
// result quality, not correctness.

package enhancer

import (
	"log/slog"
	"strings"

	"issueforge/internal/jsonutil"
	"issueforge/model"
)

// Field bounds for a well-formed result.
const (
	maxTitleChars       = 200
	maxDescriptionOut   = 5000
	maxLabels           = 15
	heuristicTitleChars = 100
)

// rawEnhancement mirrors the JSON schema requested from the model. Both the
// canonical enhancedTitle/enhancedDescription keys and the shorter
// title/description variants some models produce are accepted.
type rawEnhancement struct {
	EnhancedTitle       string   `json:"enhancedTitle"`
	Title               string   `json:"title"`
	EnhancedDescription string   `json:"enhancedDescription"`
	Description         string   `json:"description"`
	Priority            string   `json:"priority"`
	Labels              []string `json:"labels"`
	Analysis            struct {
		RootCause          string   `json:"rootCause"`
		AffectedComponents []string `json:"affectedComponents"`
		SuggestedFix       string   `json:"suggestedFix"`
		Confidence         float64  `json:"confidence"`
	} `json:"analysis"`
}

// synthesize parses raw model output into a result, falling back to
// heuristic extraction when the output is not well-formed. Metadata is left
// for the caller to fill.
func synthesize(req model.EnhancementRequest, content string, logger *slog.Logger) model.EnhancementResult {
	var raw rawEnhancement
	if err := jsonutil.ExtractObject(content, &raw); err != nil {
		logger.Warn("structured parse failed, using heuristic extraction", "error", err)
		return heuristicResult(req, content)
	}

	title := raw.EnhancedTitle
	if title == "" {
		title = raw.Title
	}
	if strings.TrimSpace(title) == "" {
		title = req.Title
	}

	description := raw.EnhancedDescription
	if description == "" {
		description = raw.Description
	}
	if strings.TrimSpace(description) == "" {
		description = req.Description
	}

	priority := model.Priority(strings.ToLower(strings.TrimSpace(raw.Priority)))
	if !model.ValidPriority(priority) {
		priority = inferPriority(content, req.Kind)
	}

	labels := raw.Labels
	if len(labels) == 0 {
		labels = seedLabels(req, content)
	}

	confidence := raw.Analysis.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.EnhancementResult{
		Title:       truncate(title, maxTitleChars),
		Description: truncate(description, maxDescriptionOut),
		Priority:    priority,
		Labels:      dedupeLabels(labels),
		Analysis: model.Analysis{
			RootCause:          raw.Analysis.RootCause,
			AffectedComponents: raw.Analysis.AffectedComponents,
			SuggestedFix:       raw.Analysis.SuggestedFix,
			Confidence:         confidence,
		},
	}
}

// heuristicResult extracts what it can from free-form model output.
func heuristicResult(req model.EnhancementRequest, content string) model.EnhancementResult {
	title := req.Title
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		title = line
		break
	}

	description := strings.TrimSpace(content)
	if description == "" {
		description = req.Description
	}

	return model.EnhancementResult{
		Title:       truncate(title, heuristicTitleChars),
		Description: truncate(description, maxDescriptionOut),
		Priority:    inferPriority(content, req.Kind),
		Labels:      dedupeLabels(seedLabels(req, content)),
		Analysis: model.Analysis{
			RootCause:  "Not determined (unstructured model output)",
			Confidence: 0.4,
		},
	}
}

// inferPriority scans output text for severity keywords.
func inferPriority(content string, kind model.FeedbackKind) model.Priority {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "critical") || strings.Contains(lower, "urgent"):
		return model.PriorityUrgent
	case strings.Contains(lower, "high priority") || strings.Contains(lower, "crash") || kind == model.FeedbackCrash:
		return model.PriorityHigh
	default:
		return model.PriorityMedium
	}
}

// seedLabels derives a base label set from the request and output text.
func seedLabels(req model.EnhancementRequest, content string) []string {
	labels := []string{"ai-enhanced"}
	lower := strings.ToLower(content + " " + req.Title + " " + req.Description)

	if req.Kind == model.FeedbackCrash || strings.Contains(lower, "crash") {
		labels = append(labels, "crash", "bug")
	}
	if strings.Contains(lower, " ui") || strings.Contains(lower, "layout") || strings.Contains(lower, "screen") {
		labels = append(labels, "ui")
	}
	if req.Kind == model.FeedbackPerformance || strings.Contains(lower, "slow") || strings.Contains(lower, "performance") {
		labels = append(labels, "performance")
	}
	return labels
}

// dedupeLabels removes duplicates (case-insensitive, first occurrence wins)
// and enforces the label cap.
func dedupeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		key := strings.ToLower(label)
		if label == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, label)
		if len(out) == maxLabels {
			break
		}
	}
	return out
}
