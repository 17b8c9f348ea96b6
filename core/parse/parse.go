// Package parse decodes free-form model output into typed values. Models
// asked for strict JSON still wrap it in code fences, trailing commas, or
// single quotes often enough that a plain json.Unmarshal is too brittle, so
// failed decodes get one repair pass with jsonrepair before giving up.
package parse

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// As parses content into a value of type T. Standard JSON unmarshaling is
// tried first; on failure the content is repaired with jsonrepair and
// unmarshaling is retried once. A failure of both passes is reported as a
// single error: callers treat an unparseable payload and a schema-invalid
// one identically.
//
// Example:
//
//	suggestion, err := parse.As[Suggestion](`{value: "now", reason: 'closest'}`)
func As[T any](content string) (T, error) {
	var result T

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to parse content as %T: %w (repair also failed: %v)", result, err, repairErr)
	}

	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("failed to parse repaired content as %T: %w", result, err)
	}

	return result, nil
}
