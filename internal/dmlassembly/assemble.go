// File path: internal/dmlassembly/assemble.go
package dmlassembly

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/orderflow/workorder-engine/internal/model"
	"github.com/orderflow/workorder-engine/internal/recipe"
	"github.com/orderflow/workorder-engine/internal/telemetry"
)

// comparisonTokenRe matches a bare comparison operator or the LIKE or IN
// keyword, used to detect a WHERE clause that carries no real predicate.
var comparisonTokenRe = regexp.MustCompile(`(?i)[=<>]|\blike\b|\bin\b`)

// Assemble finalizes a Completed RunOutcome into the reviewable artifact
// handed to the email layer. It is only meaningful for a Completed outcome;
// callers must check outcome.Status first.
func Assemble(taskID, recipeType, description string, outcome model.RunOutcome) (model.DmlArtifact, error) {
	if outcome.Status != model.StatusCompleted {
		return model.DmlArtifact{}, fmt.Errorf("dmlassembly: cannot assemble a %s outcome", outcome.Status)
	}

	artifact := model.DmlArtifact{
		TaskID:          taskID,
		RecipeType:      recipeType,
		Description:     description,
		DML:             outcome.DML,
		ContextSnapshot: outcome.ContextSnapshot,
		AffectedTables:  affectedTables(outcome.DML),
		Risk:            classifyRisk(outcome.DML),
	}
	telemetry.RecordDML(string(artifact.Risk))
	return artifact, nil
}

// affectedTables collects the distinct table names touched by the
// accumulator, in first-seen order.
func affectedTables(dml []model.DmlRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range dml {
		if seen[rec.Table] {
			continue
		}
		seen[rec.Table] = true
		out = append(out, rec.Table)
	}
	return out
}

// classifyRisk scans the whole accumulator and returns the highest risk
// tier that applies: an unconditional or non-comparison WHERE is high; any
// DELETE or an UPDATE spanning more than one table is medium; otherwise low.
func classifyRisk(dml []model.DmlRecord) model.RiskLevel {
	tables := make(map[string]bool)
	updateTableCount := 0
	for _, rec := range dml {
		if rec.Kind == recipe.DMLUpdate {
			if !tables[rec.Table] {
				tables[rec.Table] = true
				updateTableCount++
			}
		}
	}

	for _, rec := range dml {
		if rec.Kind != recipe.DMLUpdate && rec.Kind != recipe.DMLDelete {
			continue
		}
		if isHighRisk(rec) {
			return model.RiskHigh
		}
	}

	for _, rec := range dml {
		if rec.Kind == recipe.DMLDelete {
			return model.RiskMedium
		}
	}
	if updateTableCount > 1 {
		return model.RiskMedium
	}
	return model.RiskLow
}

func isHighRisk(rec model.DmlRecord) bool {
	where := whereClause(rec.RenderedSQL)
	if strings.TrimSpace(where) == "" {
		return true
	}
	return !comparisonTokenRe.MatchString(where)
}

// whereClause extracts the text following the last "WHERE" keyword in a
// rendered statement. rendered is always produced by this core's own
// renderer, so a plain case-insensitive split is sufficient.
func whereClause(rendered string) string {
	idx := strings.LastIndex(strings.ToUpper(rendered), "WHERE")
	if idx < 0 {
		return ""
	}
	return rendered[idx+len("WHERE"):]
}

// SortedTables returns affected tables in lexical order, useful when a
// caller needs a stable presentation independent of accumulation order.
func SortedTables(tables []string) []string {
	out := append([]string(nil), tables...)
	sort.Strings(out)
	return out
}
