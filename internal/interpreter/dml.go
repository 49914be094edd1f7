// File path: internal/interpreter/dml.go
package interpreter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/orderflow/workorder-engine/internal/model"
	"github.com/orderflow/workorder-engine/internal/recipe"
	"github.com/orderflow/workorder-engine/internal/render"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// buildDmlRecord renders one GENERATE_DML step into both its literal and
// parameterized forms. Parameters are appended in left-to-right occurrence
// order: SET/VALUES first (in their declared order), WHERE second.
func buildDmlRecord(step *recipe.Step, vars *VarContext) (model.DmlRecord, error) {
	table, err := render.Render(step.Table, vars, render.SQLIdentifier, false)
	if err != nil {
		return model.DmlRecord{}, err
	}

	switch step.DMLType {
	case recipe.DMLUpdate:
		return buildUpdate(step, vars, table)
	case recipe.DMLInsert:
		return buildInsert(step, vars, table)
	case recipe.DMLDelete:
		return buildDelete(step, vars, table)
	default:
		return model.DmlRecord{}, fmt.Errorf("interpreter: unrecognized dml type %q at step %d", step.DMLType, step.StepNum)
	}
}

func buildUpdate(step *recipe.Step, vars *VarContext, table string) (model.DmlRecord, error) {
	var setLiteral, setTemplate []string
	var params []model.KV
	for _, kv := range step.Set {
		literal, err := render.Render(kv.Template, vars, render.SQLLiteral, false)
		if err != nil {
			return model.DmlRecord{}, err
		}
		setLiteral = append(setLiteral, fmt.Sprintf("%s = %s", kv.Name, literal))
		if !placeholderRe.MatchString(kv.Template) {
			setTemplate = append(setTemplate, fmt.Sprintf("%s = %s", kv.Name, literal))
			continue
		}
		varName := templateVarName(kv.Template)
		value, ok := vars.Lookup(varName)
		if !ok {
			return model.DmlRecord{}, fmt.Errorf("interpreter: missing variable %q at step %d", varName, step.StepNum)
		}
		setTemplate = append(setTemplate, fmt.Sprintf("%s = ?", kv.Name))
		params = append(params, model.KV{Name: varName, Value: value})
	}
	whereLiteral, err := render.Render(step.Where, vars, render.SQLLiteral, false)
	if err != nil {
		return model.DmlRecord{}, err
	}
	whereTemplate, whereParams, err := parameterizeWhere(step.Where, vars)
	if err != nil {
		return model.DmlRecord{}, err
	}
	params = append(params, whereParams...)

	rendered := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(setLiteral, ", "), whereLiteral)
	tmpl := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(setTemplate, ", "), whereTemplate)
	return model.DmlRecord{
		Kind:        recipe.DMLUpdate,
		Table:       table,
		RenderedSQL: rendered,
		TemplateSQL: tmpl,
		Parameters:  params,
	}, nil
}

func buildInsert(step *recipe.Step, vars *VarContext, table string) (model.DmlRecord, error) {
	var columns []string
	var literals []string
	var placeholders []string
	var params []model.KV
	for _, kv := range step.Values {
		literal, err := render.Render(kv.Template, vars, render.SQLLiteral, false)
		if err != nil {
			return model.DmlRecord{}, err
		}
		columns = append(columns, kv.Name)
		literals = append(literals, literal)
		if !placeholderRe.MatchString(kv.Template) {
			placeholders = append(placeholders, literal)
			continue
		}
		varName := templateVarName(kv.Template)
		value, ok := vars.Lookup(varName)
		if !ok {
			return model.DmlRecord{}, fmt.Errorf("interpreter: missing variable %q at step %d", varName, step.StepNum)
		}
		placeholders = append(placeholders, "?")
		params = append(params, model.KV{Name: varName, Value: value})
	}
	rendered := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(literals, ", "))
	tmpl := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return model.DmlRecord{
		Kind:        recipe.DMLInsert,
		Table:       table,
		RenderedSQL: rendered,
		TemplateSQL: tmpl,
		Parameters:  params,
	}, nil
}

func buildDelete(step *recipe.Step, vars *VarContext, table string) (model.DmlRecord, error) {
	whereLiteral, err := render.Render(step.Where, vars, render.SQLLiteral, false)
	if err != nil {
		return model.DmlRecord{}, err
	}
	whereTemplate, whereParams, err := parameterizeWhere(step.Where, vars)
	if err != nil {
		return model.DmlRecord{}, err
	}
	rendered := fmt.Sprintf("DELETE FROM %s WHERE %s", table, whereLiteral)
	tmpl := fmt.Sprintf("DELETE FROM %s WHERE %s", table, whereTemplate)
	return model.DmlRecord{
		Kind:        recipe.DMLDelete,
		Table:       table,
		RenderedSQL: rendered,
		TemplateSQL: tmpl,
		Parameters:  whereParams,
	}, nil
}

// parameterizeWhere replaces every {name} occurrence in a WHERE template with
// a '?' placeholder, returning the resulting template text and the ordered
// parameter list.
func parameterizeWhere(template string, vars *VarContext) (string, []model.KV, error) {
	var params []model.KV
	var firstErr error
	tmpl := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := match[1 : len(match)-1]
		value, ok := vars.Lookup(name)
		if !ok {
			firstErr = fmt.Errorf("interpreter: missing variable %q in where clause", name)
			return match
		}
		params = append(params, model.KV{Name: name, Value: value})
		return "?"
	})
	if firstErr != nil {
		return "", nil, firstErr
	}
	return tmpl, params, nil
}

// templateVarName extracts the single {name} a SET/VALUES template is
// expected to consist of, for parameter capture. Recipes in this system
// author SET/VALUES templates as a bare {name} reference per value; a
// template with literal text around the placeholder still renders correctly
// but its parameter value is looked up by the first placeholder found.
func templateVarName(template string) string {
	loc := placeholderRe.FindStringSubmatch(template)
	if loc == nil {
		return ""
	}
	return loc[1]
}
