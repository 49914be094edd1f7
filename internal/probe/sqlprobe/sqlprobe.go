// File path: internal/probe/sqlprobe/sqlprobe.go
package sqlprobe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/orderflow/workorder-engine/internal/common"
	"github.com/orderflow/workorder-engine/internal/probe"
	"github.com/orderflow/workorder-engine/internal/telemetry"
)

// SQLProbe implements probe.Probe over a pooled sqlx.DB. The driver and DSN
// are the caller's concern — Open only configures the connection pool on an
// already-constructed *sqlx.DB.
type SQLProbe struct {
	db  *sqlx.DB
	cfg Config
}

// Open configures pool limits on db and returns a read-only probe over it.
// db must already be connected to the target catalog with whatever driver
// the caller chose.
func Open(db *sqlx.DB, cfg Config) (*SQLProbe, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlprobe: nil db")
	}
	cfg.applyDefaults()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return &SQLProbe{db: db, cfg: cfg}, nil
}

// Query executes sqlText, which must already be a fully rendered, read-only
// SELECT statement. The probe does not reinterpret placeholders and does
// not reject or rewrite the text beyond the read-only boundary check below.
func (p *SQLProbe) Query(ctx context.Context, sqlText string, deadline time.Duration) (probe.QueryResult, error) {
	if !isReadOnly(sqlText) {
		return probe.QueryResult{}, probe.Error{Reason: "statement is not a read-only SELECT"}
	}
	if deadline <= 0 {
		deadline = p.cfg.DefaultDeadline
	}
	queryCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	rows, err := p.db.QueryxContext(queryCtx, sqlText)
	telemetry.RecordProbeCall(time.Since(start))
	if err != nil {
		common.Logger().Warn("probe: query failed", "error", err)
		return probe.QueryResult{}, probe.Error{Reason: err.Error()}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return probe.QueryResult{}, probe.Error{Reason: err.Error()}
	}

	var result probe.QueryResult
	result.Columns = columns
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return probe.QueryResult{}, probe.Error{Reason: err.Error()}
		}
		result.Rows = append(result.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		return probe.QueryResult{}, probe.Error{Reason: err.Error()}
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// isReadOnly enforces the SELECT-only boundary the contract requires. It is
// a coarse guard, not a SQL parser: the core is trusted to compose the
// statement, so this only catches accidental or malicious non-SELECT text
// reaching the probe.
func isReadOnly(sqlText string) bool {
	trimmed := strings.TrimSpace(sqlText)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSpace(trimmed)
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "select")
}

// normalizeRow converts driver-specific byte-slice representations (common
// for TEXT/VARCHAR columns under database/sql) into plain strings so scalar
// values match what the interpreter's context expects.
func normalizeRow(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			out[i] = string(b)
			continue
		}
		out[i] = v
	}
	return out
}
