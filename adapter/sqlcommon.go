package adapter

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/statement"
)

// Queryer is the subset of *sql.DB / *sql.Conn / *sql.Tx used by
// ExecBatch, so adapters can run a batch against whichever of those they
// hold a cancellation-aware handle on.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecBatch splits text into statements and runs each in turn against q,
// producing one NormalizedResult per statement per the spec's result
// normalization rule: a non-SELECT with no rows still synthesizes a single
// empty result, and an UNKNOWN-classified statement that produced rows is
// reconciled to SELECT.
//
// collapse, when true, merges every non-SELECT statement's outcome into a
// single trailing result instead of one result per statement — SQL
// Server's batch semantics, the one documented exemption from
// "one result per statement".
func ExecBatch(ctx context.Context, q Queryer, text string, collapse bool) ([]NormalizedResult, error) {
	stmts := statement.Split(text)
	results := make([]NormalizedResult, 0, len(stmts))

	var collapsedAffected int64
	sawCollapsed := false

	for i, stmt := range stmts {
		if stmt.Type == statement.Select || looksLikeRowProducing(stmt.Type) {
			rows, err := q.QueryContext(ctx, stmt.Text)
			if err != nil {
				return nil, &apperrors.QueryError{StatementIndex: i, Err: err}
			}
			fields, out, err := ScanRows(rows)
			rows.Close()
			if err != nil {
				return nil, &apperrors.QueryError{StatementIndex: i, Err: err}
			}
			cmd := statement.ReconcileUnknown(stmt.Type, len(out) > 0)
			n := int64(len(out))
			results = append(results, NormalizedResult{
				Command:  string(cmd),
				Rows:     out,
				Fields:   fields,
				RowCount: &n,
			})
			continue
		}

		res, err := q.ExecContext(ctx, stmt.Text)
		if err != nil {
			return nil, &apperrors.QueryError{StatementIndex: i, Err: err}
		}
		affected, _ := res.RowsAffected()

		if collapse {
			collapsedAffected += affected
			sawCollapsed = true
			continue
		}

		results = append(results, NormalizedResult{
			Command:      string(stmt.Type),
			AffectedRows: &affected,
		})
	}

	if collapse && sawCollapsed {
		results = append(results, NormalizedResult{
			Command:      "BATCH",
			AffectedRows: &collapsedAffected,
		})
	}

	return results, nil
}

// looksLikeRowProducing treats EXPLAIN as row-producing alongside SELECT;
// every other classified type is assumed to be a side-effecting command.
func looksLikeRowProducing(t statement.Type) bool {
	return t == statement.Explain
}

// ScanRows drains rows into the normalized Field/Row shape, converting
// driver-native byte slices to strings so callers never have to special
// case []byte vs string across dialects.
func ScanRows(rows *sql.Rows) ([]Field, []Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	fields := make([]Field, len(cols))
	for i, c := range cols {
		fields[i] = Field{Name: c}
	}
	// ColumnTypes is best-effort: not every driver/query shape supports it,
	// so a failure here just leaves DatabaseType empty rather than failing
	// the scan.
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			if i < len(fields) {
				fields[i].DatabaseType = ct.DatabaseTypeName()
			}
		}
	}

	var out []Row
	for rows.Next() {
		scanDest := make([]any, len(cols))
		raw := make([]any, len(cols))
		for i := range raw {
			scanDest[i] = &raw[i]
		}
		if err := rows.Scan(scanDest...); err != nil {
			return nil, nil, err
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(raw[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return fields, out, nil
}

// normalizeValue converts a driver-returned []byte to string. Every other
// type (int64, float64, bool, time.Time, nil) is returned as-is.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// QuoteIdentifier implements the spec's wrapIdentifier rule for a single
// open/close quote pair: "*" passes through unquoted, an embedded quote
// character is doubled, and a trailing "[n]" array suffix (if present) is
// preserved unquoted after the quoted base name.
func QuoteIdentifier(name string, open, close byte) string {
	if name == "*" {
		return name
	}

	base, suffix := name, ""
	if idx := strings.LastIndexByte(name, '['); idx > 0 && strings.HasSuffix(name, "]") {
		base, suffix = name[:idx], name[idx:]
	}

	var b strings.Builder
	b.WriteByte(open)
	for i := 0; i < len(base); i++ {
		b.WriteByte(base[i])
		if base[i] == close {
			b.WriteByte(close)
		}
	}
	b.WriteByte(close)
	b.WriteString(suffix)
	return b.String()
}
