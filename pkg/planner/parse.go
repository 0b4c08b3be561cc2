package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripMarkdownFence extracts the JSON body from a ```json ... ``` or
// ``` ... ``` fenced response, or returns the trimmed text unchanged if
// there's no fence.
func stripMarkdownFence(response string) string {
	if idx := strings.Index(response, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}
	if idx := strings.Index(response, "```"); idx != -1 {
		start := idx + len("```")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}
	return strings.TrimSpace(response)
}

type planEnvelope struct {
	Steps []Step `json:"steps"`
}

// parsePlanResponse parses an LLM response into a step list, accepting
// either {"steps": [...]} or a bare JSON array.
func parsePlanResponse(response string) ([]Step, error) {
	jsonStr := stripMarkdownFence(response)

	var envelope planEnvelope
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err == nil && envelope.Steps != nil {
		return envelope.Steps, nil
	}

	var steps []Step
	if err := json.Unmarshal([]byte(jsonStr), &steps); err == nil {
		return steps, nil
	}

	return nil, fmt.Errorf("invalid plan format: %s", truncate(jsonStr, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
