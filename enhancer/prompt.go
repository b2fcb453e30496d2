// Prompt composition for enhancement requests.
//
// Templates are plain versioned constants. Each context section is truncated
// to a fixed character budget to bound payload size.

package enhancer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"issueforge/llm"
	"issueforge/model"
)

// PromptVersion identifies the template revision in play.
const PromptVersion = "v2"

const systemPrompt = `You are an issue triage assistant for a software team.
Given a feedback record (crash report or free-text feedback) plus optional
crash traces, codebase context and recent changes, you produce a clearer,
actionable issue description.

Respond with a single JSON object using exactly these keys:
{
  "enhancedTitle": "concise title, max 200 chars",
  "enhancedDescription": "structured description with reproduction hints",
  "priority": "urgent|high|medium|low",
  "labels": ["up to 15 short labels"],
  "analysis": {
    "rootCause": "most likely root cause",
    "affectedComponents": ["files or modules likely involved"],
    "suggestedFix": "concrete suggestion",
    "confidence": 0.0
  }
}`

// Character budgets per prompt section.
const (
	maxDescriptionChars = 4000
	maxTraceLines       = 30
	maxTraceChars       = 2000
	maxSnippets         = 5
	maxSnippetChars     = 1200
	maxDiffs            = 3
	maxDiffChars        = 1500
)

// BuildMessages converts an EnhancementRequest into the neutral form: a
// system turn plus one user turn composed from the record and its context.
func BuildMessages(req model.EnhancementRequest) []llm.ChatMessage {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Feedback (%s)\n", req.Kind)
	fmt.Fprintf(&sb, "Title: %s\n", req.Title)
	fmt.Fprintf(&sb, "Description:\n%s\n", truncate(req.Description, maxDescriptionChars))

	if req.Crash != nil {
		sb.WriteString("\n## Crash Context\n")
		if req.Crash.Device != "" {
			fmt.Fprintf(&sb, "Device: %s\n", req.Crash.Device)
		}
		if req.Crash.OSVersion != "" {
			fmt.Fprintf(&sb, "OS: %s\n", req.Crash.OSVersion)
		}
		if len(req.Crash.TraceLines) > 0 {
			lines := req.Crash.TraceLines
			if len(lines) > maxTraceLines {
				lines = lines[:maxTraceLines]
			}
			fmt.Fprintf(&sb, "Trace:\n%s\n", truncate(strings.Join(lines, "\n"), maxTraceChars))
		}
	}

	if len(req.Snippets) > 0 {
		sb.WriteString("\n## Codebase Context\n")
		for _, snippet := range topSnippets(req.Snippets, maxSnippets) {
			fmt.Fprintf(&sb, "--- %s (relevance %.2f)\n%s\n",
				snippet.Path, snippet.Relevance, truncate(snippet.Content, maxSnippetChars))
		}
	}

	if len(req.Diffs) > 0 {
		sb.WriteString("\n## Recent Changes\n")
		for _, diff := range recentDiffs(req.Diffs, maxDiffs) {
			fmt.Fprintf(&sb, "--- %s\n%s\n", diff.Path, truncate(diff.Diff, maxDiffChars))
		}
	}

	return []llm.ChatMessage{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(sb.String()),
	}
}

// topSnippets returns the n most relevant snippets, relevance descending.
func topSnippets(snippets []model.CodeSnippet, n int) []model.CodeSnippet {
	sorted := make([]model.CodeSnippet, len(snippets))
	copy(sorted, snippets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Relevance > sorted[j].Relevance
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// recentDiffs returns the n most recent diffs, newest first.
func recentDiffs(diffs []model.ChangeDiff, n int) []model.ChangeDiff {
	sorted := make([]model.ChangeDiff, len(diffs))
	copy(sorted, diffs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Committed.After(sorted[j].Committed)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// truncate clamps s to at most max bytes, marker included, cutting back to a
// rune boundary so the result is always valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	const marker = "\n[truncated]"

	cut := max
	if cut > len(marker) {
		cut = max - len(marker)
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	out := s[:cut]
	if len(out)+len(marker) <= max {
		out += marker
	}
	return out
}
