// File path: internal/recipe/types.go
package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies the operation a Step performs. The set is closed; any
// unrecognized value is rejected at load time (see validateKind).
type Kind string

const (
	KindQuery         Kind = "QUERY"
	KindGenerateDML   Kind = "GENERATE_DML"
	KindReturnSuccess Kind = "RETURN_SUCCESS"
	KindReturnError   Kind = "RETURN_ERROR"
)

// DMLKind identifies the statement shape a GENERATE_DML step produces.
type DMLKind string

const (
	DMLUpdate DMLKind = "UPDATE"
	DMLInsert DMLKind = "INSERT"
	DMLDelete DMLKind = "DELETE"
)

// KV is a single named template value. A slice of KV (rather than a Go map)
// preserves the declaration order of a recipe's SET/INSERT value maps, which
// the interpreter needs to render DML parameters in left-to-right source
// order.
type KV struct {
	Name     string
	Template string
}

// orderedStringMap decodes a JSON object into a slice of KV, preserving key
// order. encoding/json's map decoding does not guarantee order, so field
// order here is recovered by walking the object's tokens directly.
type orderedStringMap []KV

func (m *orderedStringMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	var out orderedStringMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("value for key %q: %w", key, err)
		}
		out = append(out, KV{Name: key, Template: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Branch describes a control-flow transition out of a QUERY step, optionally
// gated by a predicate.
type Branch struct {
	Condition *string `json:"condition,omitempty"`
	NextStep  *int    `json:"next_step"`
	ElseStep  *int    `json:"else_step,omitempty"`
}

// Step is a single node in a recipe's control-flow graph.
// Only the fields relevant to Operation are populated by the loader; the
// zero value of the others is never inspected.
type Step struct {
	StepNum   int  `json:"step"`
	Operation Kind `json:"operation"`

	// QUERY
	Table        string   `json:"table,omitempty"`
	Where        string   `json:"where,omitempty"`
	OutputFields []string `json:"output_fields,omitempty"`
	OnSuccess    *Branch  `json:"on_success,omitempty"`
	OnFailure    *Branch  `json:"on_failure,omitempty"`

	// GENERATE_DML
	DMLType  DMLKind          `json:"type,omitempty"`
	Set      orderedStringMap `json:"set,omitempty"`
	Values   orderedStringMap `json:"values,omitempty"`
	NextStep *int             `json:"next_step,omitempty"`

	// RETURN_SUCCESS / RETURN_ERROR
	Message string `json:"message,omitempty"`
}

// Recipe is an immutable, versioned change recipe.
type Recipe struct {
	WorkOrderType string `json:"work_order_type"`
	Description   string `json:"description"`
	Steps         []Step `json:"steps"`

	// EntryStep is the lowest-numbered step, computed at load time.
	EntryStep int `json:"-"`
}

// StepByNum returns the step with the given number, or false if absent.
func (r *Recipe) StepByNum(n int) (Step, bool) {
	for _, s := range r.Steps {
		if s.StepNum == n {
			return s, true
		}
	}
	return Step{}, false
}
