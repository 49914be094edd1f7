// File path: internal/eval/eval_test.go
package eval

import (
	"strings"
	"testing"
)

func TestEvalComparisons(t *testing.T) {
	ctx := MapContext{"customerID": "0002-ORFBO", "age": 42.0, "flag": true}

	cases := []struct {
		name string
		expr string
		want bool
	}{
		{"string eq true", `{customerID} == '0002-ORFBO'`, true},
		{"string eq false", `{customerID} == 'other'`, false},
		{"numeric gt", `{age} > 10`, true},
		{"numeric lt false", `{age} < 10`, false},
		{"null neq value", `{missing} != {age}`, true},
		{"null eq null", `{missing} == null`, true},
		{"bool eq", `{flag} == true`, true},
		{"and", `{age} > 10 and {flag} == true`, true},
		{"or short circuit", `{age} < 10 or {flag} == true`, true},
		{"not", `not {flag} == false`, true},
		{"in membership", `{customerID} in ['a', '0002-ORFBO', 'b']`, true},
		{"not in", `{customerID} not in ['a', 'b']`, true},
		{"empty list always false", `{customerID} in []`, false},
		{"parens", `({age} > 10 and {flag} == true) or {flag} == false`, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Eval(c.expr, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("Eval(%q) = %v, want %v", c.expr, got, c.want)
			}
		})
	}
}

func TestEvalCrossTypeOrderingFails(t *testing.T) {
	ctx := MapContext{"a": "5", "b": 5.0}
	_, err := Eval(`{a} > {b}`, ctx)
	if err == nil {
		t.Fatal("expected EvalError for cross-type ordering")
	}
	if _, ok := err.(EvalError); !ok {
		t.Fatalf("expected EvalError, got %T", err)
	}
}

func TestEvalCrossTypeEqualityIsFalse(t *testing.T) {
	ctx := MapContext{"a": "5", "b": 5.0}
	got, err := Eval(`{a} == {b}`, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatal("cross-type equality must be false")
	}
}

func TestEvalUnresolvedVariableIsNull(t *testing.T) {
	got, err := Eval(`{nonexistent} == null`, MapContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatal("unresolved variable should equal null")
	}
}

func TestEvalRejectsHostileInput(t *testing.T) {
	inputs := []string{
		`__import__('os').system('rm -rf /')`,
		`{a}; DROP TABLE users`,
		`eval("1+1")`,
		strings.Repeat("(", 3000),
	}
	for _, in := range inputs {
		if _, err := Eval(in, MapContext{}); err == nil {
			t.Fatalf("expected EvalError for hostile input %q", in)
		}
	}
}

func TestEvalOversizeInputRejected(t *testing.T) {
	huge := "{a} == '" + strings.Repeat("x", MaxInputBytes+10) + "'"
	_, err := Eval(huge, MapContext{"a": "y"})
	if err == nil {
		t.Fatal("expected EvalError for oversize input")
	}
}

func TestEvalIllegalTokenIsError(t *testing.T) {
	_, err := Eval(`{a} ~ {b}`, MapContext{})
	if err == nil {
		t.Fatal("expected EvalError for illegal token")
	}
}

func TestEvalBareIdentifierRejected(t *testing.T) {
	if _, err := Eval(`foo == 1`, MapContext{}); err == nil {
		t.Fatal("bare identifiers are not part of the grammar")
	}
}
