// File path: internal/render/render.go
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Mode selects how a substituted value is formatted.
type Mode int

const (
	// Raw substitutes the value's string form verbatim. Used only for
	// log/message payloads, never for SQL.
	Raw Mode = iota
	// SQLLiteral substitutes a SQL literal: single-quoted strings with the
	// quote doubled, decimal numbers, TRUE/FALSE, NULL.
	SQLLiteral
	// SQLIdentifier rejects the value unless it matches
	// [A-Za-z_][A-Za-z0-9_]*.
	SQLIdentifier
)

// Context is the read view of the interpreter's variable context.
type Context interface {
	Lookup(name string) (interface{}, bool)
}

// RenderError reports a missing variable during rendering. RETURN_ERROR
// messages are the one caller that tolerates this and substitutes the
// placeholder text instead of failing.
type RenderError struct {
	Missing string
}

func (e RenderError) Error() string {
	return fmt.Sprintf("render: missing variable %q", e.Missing)
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Render substitutes every {name} occurrence in template using mode. When a
// referenced key is absent from ctx, Render fails with RenderError unless
// tolerateMissing is set, in which case the placeholder text is left as-is.
func Render(template string, ctx Context, mode Mode, tolerateMissing bool) (string, error) {
	var firstErr error
	result := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := match[1 : len(match)-1]
		value, ok := ctx.Lookup(name)
		if !ok {
			if tolerateMissing {
				return match
			}
			firstErr = RenderError{Missing: name}
			return match
		}
		rendered, err := formatValue(value, mode)
		if err != nil {
			firstErr = err
			return match
		}
		return rendered
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func formatValue(value interface{}, mode Mode) (string, error) {
	switch mode {
	case Raw:
		return rawString(value), nil
	case SQLLiteral:
		return sqlLiteral(value)
	case SQLIdentifier:
		s := rawString(value)
		if !identifierRe.MatchString(s) {
			return "", fmt.Errorf("render: %q is not a valid SQL identifier", s)
		}
		return s, nil
	default:
		return "", fmt.Errorf("render: unknown mode %d", mode)
	}
}

func rawString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case float32:
		return formatNumber(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// sqlLiteral is the ONLY path by which external data reaches a SQL string
// as a value; identifiers go through SQLIdentifier validation instead. It
// escapes single quotes and rejects control characters that could break
// out of the surrounding statement.
func sqlLiteral(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case float64:
		return formatNumber(v), nil
	case float32:
		return formatNumber(float64(v)), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case string:
		if err := rejectControlChars(v); err != nil {
			return "", err
		}
		escaped := strings.ReplaceAll(v, "'", "''")
		return "'" + escaped + "'", nil
	default:
		return "", fmt.Errorf("render: unsupported scalar type %T", value)
	}
}

func rejectControlChars(s string) error {
	for _, r := range s {
		if r == 0 || r == '\r' || r == '\n' {
			return fmt.Errorf("render: control character not permitted in SQL literal")
		}
	}
	return nil
}
