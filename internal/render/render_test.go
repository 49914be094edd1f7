// File path: internal/render/render_test.go
package render

import "testing"

type mapCtx map[string]interface{}

func (m mapCtx) Lookup(name string) (interface{}, bool) {
	v, ok := m[name]
	return v, ok
}

func TestRenderSQLLiteralEscapesQuotes(t *testing.T) {
	ctx := mapCtx{"customerID": "x'; DROP TABLE users;--"}
	got, err := Render("{customerID}", ctx, SQLLiteral, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `'x''; DROP TABLE users;--'`
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderSQLLiteralTypes(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil", nil, "NULL"},
		{"bool true", true, "TRUE"},
		{"bool false", false, "FALSE"},
		{"int", 42, "42"},
		{"float whole", 42.0, "42"},
		{"float frac", 42.5, "42.5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := mapCtx{"v": c.value}
			got, err := Render("{v}", ctx, SQLLiteral, false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("Render() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestRenderSQLLiteralRejectsControlChars(t *testing.T) {
	ctx := mapCtx{"v": "line1\nline2"}
	if _, err := Render("{v}", ctx, SQLLiteral, false); err == nil {
		t.Fatal("expected error for embedded newline")
	}
}

func TestRenderSQLIdentifierRejectsInvalid(t *testing.T) {
	ctx := mapCtx{"table": "customers; DROP TABLE x"}
	if _, err := Render("{table}", ctx, SQLIdentifier, false); err == nil {
		t.Fatal("expected error for invalid identifier")
	}
}

func TestRenderSQLIdentifierAcceptsValid(t *testing.T) {
	ctx := mapCtx{"table": "customers"}
	got, err := Render("{table}", ctx, SQLIdentifier, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "customers" {
		t.Fatalf("Render() = %q, want customers", got)
	}
}

func TestRenderMissingVariableFails(t *testing.T) {
	_, err := Render("{missing}", mapCtx{}, Raw, false)
	if err == nil {
		t.Fatal("expected RenderError")
	}
	if _, ok := err.(RenderError); !ok {
		t.Fatalf("expected RenderError, got %T", err)
	}
}

func TestRenderMissingVariableTolerated(t *testing.T) {
	got, err := Render("hello {missing}", mapCtx{}, Raw, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello {missing}" {
		t.Fatalf("Render() = %q, want placeholder left intact", got)
	}
}

func TestRenderMultipleSubstitutions(t *testing.T) {
	ctx := mapCtx{"a": "1", "b": "2"}
	got, err := Render("{a}-{b}-{a}", ctx, Raw, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1-2-1" {
		t.Fatalf("Render() = %q, want 1-2-1", got)
	}
}
