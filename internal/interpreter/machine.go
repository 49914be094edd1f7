// File path: internal/interpreter/machine.go
package interpreter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/orderflow/workorder-engine/internal/common"
	"github.com/orderflow/workorder-engine/internal/eval"
	"github.com/orderflow/workorder-engine/internal/model"
	"github.com/orderflow/workorder-engine/internal/probe"
	"github.com/orderflow/workorder-engine/internal/recipe"
	"github.com/orderflow/workorder-engine/internal/render"
	"github.com/orderflow/workorder-engine/internal/telemetry"
)

// maxIterations bounds the number of steps a single run may execute, guarding
// against recipe cycles.
const maxIterations = 100

// Clock abstracts time.Now so trace timestamps can be faked in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production Clock backed by the runtime's wall clock.
var SystemClock Clock = systemClock{}

// Machine executes one recipe's step list against a seeded context. A
// Machine is constructed fresh per run and discarded afterward; it holds no
// state across calls to Run.
type Machine struct {
	probe probe.Probe
	clock Clock
}

// NewMachine builds an interpreter bound to a read-only SQL probe and a
// clock. Both are injected rather than global singletons.
func NewMachine(p probe.Probe, clock Clock) *Machine {
	if clock == nil {
		clock = SystemClock
	}
	return &Machine{probe: p, clock: clock}
}

// Run executes rec starting at its entry step, against a context seeded from
// upstream and matcher-extracted parameters, until a terminal step or an
// error condition is reached.
func (m *Machine) Run(ctx context.Context, rec *recipe.Recipe, upstream, matcherParams map[string]interface{}, probeDeadline time.Duration) model.RunOutcome {
	vars := NewVarContext()
	vars.Seed(upstream, matcherParams)

	var trace []model.TraceEntry
	var accumulator []model.DmlRecord

	current := rec.EntryStep
	hasCurrent := true

	for iterations := 0; ; iterations++ {
		if ctx.Err() != nil {
			return model.RunOutcome{
				Status:    model.StatusEngineError,
				Message:   "run cancelled",
				ErrorKind: model.ErrCancelled,
				Trace:     trace,
			}
		}
		if !hasCurrent {
			if len(accumulator) > 0 {
				return model.RunOutcome{
					Status:          model.StatusCompleted,
					DML:             accumulator,
					ContextSnapshot: vars.Snapshot(),
					Trace:           trace,
				}
			}
			return model.RunOutcome{
				Status:    model.StatusEngineError,
				ErrorKind: model.ErrNoDmlProduced,
				Message:   "recipe terminated without producing DML",
				Trace:     trace,
			}
		}
		if iterations >= maxIterations {
			telemetry.RecordIterationLimitTripped()
			return model.RunOutcome{
				Status:    model.StatusEngineError,
				ErrorKind: model.ErrIterationLimit,
				Message:   fmt.Sprintf("iteration cap of %d exceeded", maxIterations),
				Trace:     trace,
			}
		}

		step, ok := rec.StepByNum(current)
		if !ok {
			return model.RunOutcome{
				Status:    model.StatusEngineError,
				ErrorKind: model.ErrBadJump,
				Message:   fmt.Sprintf("step %d does not exist", current),
				AtStep:    intPtr(current),
				Trace:     trace,
			}
		}
		telemetry.RecordStepExecuted()

		switch step.Operation {
		case recipe.KindQuery:
			next, hasNext, outcome := m.runQuery(ctx, rec, &step, vars, &trace, probeDeadline)
			if outcome != nil {
				return *outcome
			}
			current, hasCurrent = next, hasNext

		case recipe.KindGenerateDML:
			next, hasNext, outcome := m.runGenerateDML(rec, &step, vars, &accumulator, &trace)
			if outcome != nil {
				return *outcome
			}
			current, hasCurrent = next, hasNext

		case recipe.KindReturnSuccess:
			msg, err := render.Render(step.Message, vars, render.Raw, false)
			if err != nil {
				msg = step.Message
			}
			m.appendTrace(&trace, step.StepNum, step.Operation, "return_success")
			_ = msg
			return model.RunOutcome{
				Status:          model.StatusCompleted,
				DML:             accumulator,
				ContextSnapshot: vars.Snapshot(),
				Trace:           trace,
			}

		case recipe.KindReturnError:
			msg, err := render.Render(step.Message, vars, render.Raw, true)
			if err != nil {
				common.Logger().Warn("interpreter: return_error render failed", "step", step.StepNum, "error", err)
				msg = step.Message
			}
			m.appendTrace(&trace, step.StepNum, step.Operation, "return_error")
			return model.RunOutcome{
				Status:  model.StatusUserError,
				Message: msg,
				AtStep:  intPtr(step.StepNum),
				Trace:   trace,
			}

		default:
			return model.RunOutcome{
				Status:    model.StatusEngineError,
				ErrorKind: model.ErrBadRecipe,
				Message:   fmt.Sprintf("unrecognized operation %q at step %d", step.Operation, step.StepNum),
				AtStep:    intPtr(step.StepNum),
				Trace:     trace,
			}
		}
	}
}

// runQuery executes one QUERY step: render WHERE, probe, commit output
// fields, and resolve the next step.
func (m *Machine) runQuery(ctx context.Context, rec *recipe.Recipe, step *recipe.Step, vars *VarContext, trace *[]model.TraceEntry, deadline time.Duration) (int, bool, *model.RunOutcome) {
	sqlText, renderErr := m.composeSelect(step, vars)
	if renderErr != nil {
		return 0, false, &model.RunOutcome{
			Status:    model.StatusEngineError,
			ErrorKind: model.ErrRenderError,
			Message:   renderErr.Error(),
			AtStep:    intPtr(step.StepNum),
			Trace:     *trace,
		}
	}

	result, probeErr := m.probe.Query(ctx, sqlText, deadline)
	if probeErr != nil || result.RowCount == 0 {
		m.appendTrace(trace, step.StepNum, step.Operation, "query_failed")
		if step.OnFailure != nil {
			next, hasNext, err := m.resolveBranch(step.OnFailure, vars)
			if err != nil {
				return 0, false, &model.RunOutcome{
					Status:    model.StatusEngineError,
					ErrorKind: model.ErrEvalError,
					Message:   err.Error(),
					AtStep:    intPtr(step.StepNum),
					Trace:     *trace,
				}
			}
			return next, hasNext, nil
		}
		detail := "probe returned no rows"
		if probeErr != nil {
			detail = probeErr.Error()
		}
		return 0, false, &model.RunOutcome{
			Status:    model.StatusEngineError,
			ErrorKind: model.ErrQueryFailed,
			Message:   detail,
			AtStep:    intPtr(step.StepNum),
			Trace:     *trace,
		}
	}

	if result.RowCount > 1 {
		m.appendTrace(trace, step.StepNum, step.Operation, "ambiguous_row_count")
		common.Logger().Warn("interpreter: query returned multiple rows, taking first", "step", step.StepNum, "table", step.Table, "row_count", result.RowCount)
	}

	row := result.Rows[0]
	for i, name := range step.OutputFields {
		if i < len(row) {
			vars.Set(name, row[i])
		} else {
			vars.Set(name, nil)
		}
	}
	m.appendTrace(trace, step.StepNum, step.Operation, "query_ok")

	if step.OnSuccess != nil {
		next, hasNext, err := m.resolveBranch(step.OnSuccess, vars)
		if err != nil {
			return 0, false, &model.RunOutcome{
				Status:    model.StatusEngineError,
				ErrorKind: model.ErrEvalError,
				Message:   err.Error(),
				AtStep:    intPtr(step.StepNum),
				Trace:     *trace,
			}
		}
		return next, hasNext, nil
	}
	if _, ok := rec.StepByNum(step.StepNum + 1); !ok {
		return 0, false, nil
	}
	return step.StepNum + 1, true, nil
}

// composeSelect builds the fully-rendered read-only query for a QUERY step.
// table and every output field must pass sql_identifier validation; where is
// substituted through sql_literal.
func (m *Machine) composeSelect(step *recipe.Step, vars *VarContext) (string, error) {
	table, err := render.Render(step.Table, vars, render.SQLIdentifier, false)
	if err != nil {
		return "", err
	}
	fields := make([]string, len(step.OutputFields))
	for i, f := range step.OutputFields {
		rendered, err := render.Render(f, vars, render.SQLIdentifier, false)
		if err != nil {
			return "", err
		}
		fields[i] = rendered
	}
	where, err := render.Render(step.Where, vars, render.SQLLiteral, false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(fields, ","), table, where), nil
}

// runGenerateDML renders one DML step into both literal and parameterized
// form and appends it to the accumulator.
func (m *Machine) runGenerateDML(rec *recipe.Recipe, step *recipe.Step, vars *VarContext, accumulator *[]model.DmlRecord, trace *[]model.TraceEntry) (int, bool, *model.RunOutcome) {
	dmlRec, err := buildDmlRecord(step, vars)
	if err != nil {
		return 0, false, &model.RunOutcome{
			Status:    model.StatusEngineError,
			ErrorKind: model.ErrRenderError,
			Message:   err.Error(),
			AtStep:    intPtr(step.StepNum),
			Trace:     *trace,
		}
	}
	*accumulator = append(*accumulator, dmlRec)
	m.appendTrace(trace, step.StepNum, step.Operation, "dml_generated")

	if step.NextStep != nil {
		return *step.NextStep, true, nil
	}
	if _, ok := rec.StepByNum(step.StepNum + 1); !ok {
		return 0, false, nil
	}
	return step.StepNum + 1, true, nil
}

// resolveBranch evaluates a Branch's optional condition and returns the
// chosen step number. The bool result reports whether there is a next step
// at all ("end" resolves to false).
func (m *Machine) resolveBranch(b *recipe.Branch, vars *VarContext) (int, bool, error) {
	var target *int
	if b.Condition == nil {
		target = b.NextStep
	} else {
		// Condition text is evaluated directly: {name} references are resolved
		// against vars during evaluation, not substituted beforehand the way
		// render.Render substitutes templates.
		truthy, err := eval.Eval(*b.Condition, vars)
		if err != nil {
			return 0, false, err
		}
		if truthy {
			target = b.NextStep
		} else {
			target = b.ElseStep
		}
	}
	if target == nil {
		return 0, false, nil
	}
	return *target, true, nil
}

func (m *Machine) appendTrace(trace *[]model.TraceEntry, stepNum int, op recipe.Kind, decision string) {
	*trace = append(*trace, model.TraceEntry{
		StepNumber: stepNum,
		Operation:  string(op),
		Decision:   decision,
		At:         m.clock.Now(),
	})
}

func intPtr(n int) *int { return &n }
