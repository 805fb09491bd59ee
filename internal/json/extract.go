// Package json extracts structured JSON from model responses.
//
// The classifier and generator both ask for JSON answers, but models
// routinely wrap them in markdown fences or surround them with prose.
// This package digs the object out before unmarshalling.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extract finds and returns the JSON object portion of a response string.
// Handles three shapes: a pure JSON response, JSON inside ```json fences,
// and a JSON object embedded in surrounding text (first '{' to last '}').
//
// Only objects are handled, not arrays, and brace matching is textual; a
// brace inside a string value can defeat it. Good enough for the small
// fixed-schema answers this program requests.
func Extract(response string) (string, error) {
	response = stripFences(response)

	var probe interface{}
	if err := json.Unmarshal([]byte(response), &probe); err == nil {
		return response, nil
	}

	start := strings.Index(response, "{")
	if start != -1 {
		end := strings.LastIndex(response, "}")
		if end > start {
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
	return "", fmt.Errorf("no valid JSON object in response: %q", preview)
}

// Unmarshal extracts the JSON portion of a response and decodes it into T.
func Unmarshal[T any](response string) (T, error) {
	var result T
	raw, err := Extract(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// stripFences removes a markdown code fence wrapping, if present.
func stripFences(response string) string {
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
