// Package jsonutil extracts JSON objects from LLM output.
//
// Models often wrap JSON in markdown fences or surround it with commentary.
// This package finds the object and unmarshals it.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractObject finds the JSON object in response and unmarshals it into out.
// Handled patterns:
// 1. Pure JSON response
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. JSON object embedded in text - first '{' to last '}'
//
// Limitations: objects only, simple brace matching.
func ExtractObject(response string, out any) error {
	jsonStr, err := extract(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

func extract(response string) (string, error) {
	response = stripCodeFences(response)

	var probe any
	if err := json.Unmarshal([]byte(response), &probe); err == nil {
		return response, nil
	}

	start := strings.Index(response, "{")
	if start != -1 {
		end := strings.LastIndex(response, "}")
		if end != -1 && end > start {
			candidate := response[start : end+1]
			if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
				return candidate, nil
			}
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// stripCodeFences removes markdown code block markers.
func stripCodeFences(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}
