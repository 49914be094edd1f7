// File path: internal/dmlassembly/assemble_test.go
package dmlassembly

import (
	"testing"

	"github.com/orderflow/workorder-engine/internal/model"
	"github.com/orderflow/workorder-engine/internal/recipe"
)

func completedOutcome(dml ...model.DmlRecord) model.RunOutcome {
	return model.RunOutcome{
		Status: model.StatusCompleted,
		DML:    dml,
	}
}

func TestAssembleRejectsNonCompletedOutcome(t *testing.T) {
	outcome := model.RunOutcome{Status: model.StatusUserError, Message: "no"}
	_, err := Assemble("t1", "wo", "d", outcome)
	if err == nil {
		t.Fatal("expected an error for a non-Completed outcome")
	}
}

func TestAssembleLowRiskSingleTableUpdate(t *testing.T) {
	outcome := completedOutcome(model.DmlRecord{
		Kind:        recipe.DMLUpdate,
		Table:       "telco_customer",
		RenderedSQL: "UPDATE telco_customer SET MonthlyCharges = 80 WHERE customerID = 'x'",
	})
	artifact, err := Assemble("t1", "update_telco_customer", "d", outcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Risk != model.RiskLow {
		t.Fatalf("expected low risk, got %s", artifact.Risk)
	}
	if len(artifact.AffectedTables) != 1 || artifact.AffectedTables[0] != "telco_customer" {
		t.Fatalf("unexpected affected tables: %v", artifact.AffectedTables)
	}
}

func TestAssembleHighRiskEmptyWhere(t *testing.T) {
	outcome := completedOutcome(model.DmlRecord{
		Kind:        recipe.DMLUpdate,
		Table:       "t_marine_order",
		RenderedSQL: "UPDATE t_marine_order SET status = 'cancelled' WHERE ",
	})
	artifact, err := Assemble("t1", "wo", "d", outcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Risk != model.RiskHigh {
		t.Fatalf("expected high risk for empty WHERE, got %s", artifact.Risk)
	}
}

func TestAssembleHighRiskNoComparisonToken(t *testing.T) {
	outcome := completedOutcome(model.DmlRecord{
		Kind:        recipe.DMLUpdate,
		Table:       "t_marine_order",
		RenderedSQL: "UPDATE t_marine_order SET status = 'cancelled' WHERE true",
	})
	artifact, err := Assemble("t1", "wo", "d", outcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Risk != model.RiskHigh {
		t.Fatalf("expected high risk for a WHERE with no comparison token, got %s", artifact.Risk)
	}
}

func TestAssembleMediumRiskDelete(t *testing.T) {
	outcome := completedOutcome(model.DmlRecord{
		Kind:        recipe.DMLDelete,
		Table:       "t_check_status_change",
		RenderedSQL: "DELETE FROM t_check_status_change WHERE order_id = 'E1'",
	})
	artifact, err := Assemble("t1", "wo", "d", outcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Risk != model.RiskMedium {
		t.Fatalf("expected medium risk for a well-formed DELETE, got %s", artifact.Risk)
	}
}

func TestAssembleMediumRiskUpdateSpanningMultipleTables(t *testing.T) {
	outcome := completedOutcome(
		model.DmlRecord{
			Kind:        recipe.DMLUpdate,
			Table:       "r_electronic_container_order",
			RenderedSQL: "UPDATE r_electronic_container_order SET status = 'cancelled' WHERE id = 'E1'",
		},
		model.DmlRecord{
			Kind:        recipe.DMLUpdate,
			Table:       "t_marine_order",
			RenderedSQL: "UPDATE t_marine_order SET status = 'cancelled' WHERE id = 'M1'",
		},
	)
	artifact, err := Assemble("t1", "cancel_marine_order", "d", outcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Risk != model.RiskMedium {
		t.Fatalf("expected medium risk for an UPDATE spanning two tables, got %s", artifact.Risk)
	}
	want := []string{"r_electronic_container_order", "t_marine_order"}
	if len(artifact.AffectedTables) != 2 || artifact.AffectedTables[0] != want[0] || artifact.AffectedTables[1] != want[1] {
		t.Fatalf("unexpected affected tables, got %v want first-seen order %v", artifact.AffectedTables, want)
	}
}

func TestAssembleLowRiskUpdateRepeatingSameTable(t *testing.T) {
	outcome := completedOutcome(
		model.DmlRecord{
			Kind:        recipe.DMLUpdate,
			Table:       "t_marine_order",
			RenderedSQL: "UPDATE t_marine_order SET status = 'cancelled' WHERE id = 'M1'",
		},
		model.DmlRecord{
			Kind:        recipe.DMLUpdate,
			Table:       "t_marine_order",
			RenderedSQL: "UPDATE t_marine_order SET note = 'x' WHERE id = 'M1'",
		},
	)
	artifact, err := Assemble("t1", "wo", "d", outcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Risk != model.RiskLow {
		t.Fatalf("expected low risk when every UPDATE targets the same table, got %s", artifact.Risk)
	}
	if len(artifact.AffectedTables) != 1 {
		t.Fatalf("expected a single distinct affected table, got %v", artifact.AffectedTables)
	}
}

func TestAssembleLowRiskInsertOnly(t *testing.T) {
	outcome := completedOutcome(model.DmlRecord{
		Kind:        recipe.DMLInsert,
		Table:       "t_check_status_change",
		RenderedSQL: "INSERT INTO t_check_status_change (order_id, old_status, new_status) VALUES ('E1', '0', 'cancelled')",
	})
	artifact, err := Assemble("t1", "wo", "d", outcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Risk != model.RiskLow {
		t.Fatalf("expected low risk for an INSERT-only accumulator, got %s", artifact.Risk)
	}
}

func TestAssembleHighRiskWinsOverMedium(t *testing.T) {
	outcome := completedOutcome(
		model.DmlRecord{
			Kind:        recipe.DMLDelete,
			Table:       "t_check_status_change",
			RenderedSQL: "DELETE FROM t_check_status_change WHERE 1",
		},
	)
	artifact, err := Assemble("t1", "wo", "d", outcome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Risk != model.RiskHigh {
		t.Fatalf("a DELETE with no comparison token must classify as high, not medium, got %s", artifact.Risk)
	}
}

func TestAffectedTablesPreservesFirstSeenOrder(t *testing.T) {
	got := affectedTables([]model.DmlRecord{
		{Table: "b"},
		{Table: "a"},
		{Table: "b"},
		{Table: "c"},
	})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSortedTablesIsLexicalAndDoesNotMutateInput(t *testing.T) {
	in := []string{"t_marine_order", "r_electronic_container_order", "t_check_status_change"}
	out := SortedTables(in)
	want := []string{"r_electronic_container_order", "t_check_status_change", "t_marine_order"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
	if in[0] != "t_marine_order" {
		t.Fatalf("SortedTables must not mutate its input, got %v", in)
	}
}
