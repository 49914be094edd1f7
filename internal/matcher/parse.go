// File path: internal/matcher/parse.go
package matcher

import (
	"encoding/json"
	"fmt"
	"strings"
)

type selectionResponse struct {
	matchedIndex int
	confidence   float64
	reasoning    string
}

type rawSelection struct {
	MatchedIndex int     `json:"matched_index"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// parseSelection parses and validates the first LLM call's response.
// Anything not parseable as JSON, or matched_index outside [1..n], or
// confidence outside [0,1], is a MatchError.
func parseSelection(raw string, catalogSize int) (selectionResponse, error) {
	var parsed rawSelection
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return selectionResponse{}, MatchError{Reason: fmt.Sprintf("unparseable selection response: %v", err)}
	}
	if parsed.MatchedIndex < 1 || parsed.MatchedIndex > catalogSize {
		return selectionResponse{}, MatchError{Reason: fmt.Sprintf("matched_index %d out of range [1,%d]", parsed.MatchedIndex, catalogSize)}
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return selectionResponse{}, MatchError{Reason: fmt.Sprintf("confidence %f out of range [0,1]", parsed.Confidence)}
	}
	return selectionResponse{
		matchedIndex: parsed.MatchedIndex,
		confidence:   parsed.Confidence,
		reasoning:    parsed.Reasoning,
	}, nil
}

// parseParams parses the second LLM call's parameter-extraction response: a
// flat JSON object of parameter name to scalar value.
func parseParams(raw string) (map[string]interface{}, error) {
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &params); err != nil {
		return nil, MatchError{Reason: fmt.Sprintf("unparseable parameter response: %v", err)}
	}
	return params, nil
}

// extractJSONObject trims chat-model wrapper text (code fences, leading
// commentary) down to the first top-level { ... } object, since models
// reliably comply with "reply with JSON only" imperfectly.
func extractJSONObject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return trimmed
	}
	return trimmed[start : end+1]
}
