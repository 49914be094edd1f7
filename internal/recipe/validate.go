// File path: internal/recipe/validate.go
package recipe

import (
	"fmt"
	"strings"
)

// validate enforces every load-time invariant a recipe document must
// satisfy. The first failure aborts validation of that file; the caller
// decides whether to skip it or abort the whole load.
func validate(r *Recipe) error {
	if strings.TrimSpace(r.WorkOrderType) == "" {
		return fmt.Errorf("work_order_type must be non-empty")
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("recipe must declare at least one step")
	}

	seen := make(map[int]struct{}, len(r.Steps))
	for _, step := range r.Steps {
		if _, dup := seen[step.StepNum]; dup {
			return fmt.Errorf("duplicate step number %d", step.StepNum)
		}
		seen[step.StepNum] = struct{}{}

		if err := validateKind(step); err != nil {
			return fmt.Errorf("step %d: %w", step.StepNum, err)
		}
	}

	for _, step := range r.Steps {
		if err := validateJumps(step, seen); err != nil {
			return fmt.Errorf("step %d: %w", step.StepNum, err)
		}
	}

	return nil
}

func validateKind(step Step) error {
	switch step.Operation {
	case KindQuery:
		if strings.TrimSpace(step.Table) == "" {
			return fmt.Errorf("QUERY requires table")
		}
		if err := validateBranch(step.OnSuccess); err != nil {
			return fmt.Errorf("on_success: %w", err)
		}
		if err := validateBranch(step.OnFailure); err != nil {
			return fmt.Errorf("on_failure: %w", err)
		}
	case KindGenerateDML:
		if strings.TrimSpace(step.Table) == "" {
			return fmt.Errorf("GENERATE_DML requires table")
		}
		switch step.DMLType {
		case DMLUpdate:
			if len(step.Set) == 0 {
				return fmt.Errorf("UPDATE requires set")
			}
			if strings.TrimSpace(step.Where) == "" {
				return fmt.Errorf("UPDATE requires where")
			}
		case DMLInsert:
			if len(step.Values) == 0 {
				return fmt.Errorf("INSERT requires values")
			}
		case DMLDelete:
			if strings.TrimSpace(step.Where) == "" {
				return fmt.Errorf("DELETE requires where")
			}
		default:
			return fmt.Errorf("GENERATE_DML has unknown type %q", step.DMLType)
		}
	case KindReturnSuccess:
		// message optional
	case KindReturnError:
		if strings.TrimSpace(step.Message) == "" {
			return fmt.Errorf("RETURN_ERROR requires message")
		}
	default:
		return fmt.Errorf("unknown operation %q", step.Operation)
	}
	return nil
}

func validateBranch(b *Branch) error {
	if b == nil {
		return nil
	}
	if b.Condition != nil && b.ElseStep == nil {
		return fmt.Errorf("condition requires else_step")
	}
	return nil
}

func validateJumps(step Step, known map[int]struct{}) error {
	check := func(field string, n *int) error {
		if n == nil {
			return nil
		}
		if _, ok := known[*n]; !ok {
			return fmt.Errorf("%s references unknown step %d", field, *n)
		}
		return nil
	}
	switch step.Operation {
	case KindQuery:
		if step.OnSuccess != nil {
			if err := check("on_success.next_step", step.OnSuccess.NextStep); err != nil {
				return err
			}
			if err := check("on_success.else_step", step.OnSuccess.ElseStep); err != nil {
				return err
			}
		}
		if step.OnFailure != nil {
			if err := check("on_failure.next_step", step.OnFailure.NextStep); err != nil {
				return err
			}
			if err := check("on_failure.else_step", step.OnFailure.ElseStep); err != nil {
				return err
			}
		}
	case KindGenerateDML:
		if err := check("next_step", step.NextStep); err != nil {
			return err
		}
	}
	return nil
}
