package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
)

// ListDatabases reports the single file this adapter is connected to:
// SQLite has no concept of multiple databases per connection beyond
// ATTACH, which this gateway does not expose.
func (a *Adapter) ListDatabases(ctx context.Context, filter string) ([]string, error) {
	if a.path == "" {
		return nil, nil
	}
	if filter != "" && !strings.Contains(a.path, filter) {
		return nil, nil
	}
	return []string{a.path}, nil
}

// ListSchemas always returns NotSupportedError: SQLite has no schema
// concept, per the dialect-variant table.
func (a *Adapter) ListSchemas(ctx context.Context, filter string) ([]string, error) {
	return nil, &apperrors.NotSupportedError{Operation: "listSchemas", Dialect: string(dialect.SQLite)}
}

func (a *Adapter) listTables(ctx context.Context, db *sql.DB) ([]adapter.TableRef, error) {
	return a.listRelations(ctx, db, "table")
}

func (a *Adapter) listRelations(ctx context.Context, db *sql.DB, kind string) ([]adapter.TableRef, error) {
	query := `SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name`
	rows, err := db.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.TableRef
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, adapter.TableRef{Name: name})
	}
	return out, rows.Err()
}

func (a *Adapter) ListTables(ctx context.Context, schema string) ([]adapter.TableRef, error) {
	db, err := a.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return a.listTables(ctx, db)
}

func (a *Adapter) ListViews(ctx context.Context, schema string) ([]adapter.TableRef, error) {
	db, err := a.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return a.listRelations(ctx, db, "view")
}

// ListRoutines always returns an empty list: SQLite has no stored
// procedures or functions, per the dialect-variant table.
func (a *Adapter) ListRoutines(ctx context.Context, schema string) ([]adapter.Routine, error) {
	return nil, nil
}

func (a *Adapter) ListTableColumns(ctx context.Context, table string) ([]adapter.Column, error) {
	db, err := a.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(table))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.Column
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt *string
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		out = append(out, adapter.Column{
			Name:         name,
			DataType:     colType,
			Nullable:     notNull == 0,
			DefaultValue: dflt,
			IsPrimaryKey: pk > 0,
		})
	}
	return out, rows.Err()
}

func (a *Adapter) ListTableTriggers(ctx context.Context, table string) ([]string, error) {
	db, err := a.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `SELECT name FROM sqlite_master WHERE type = 'trigger' AND tbl_name = ? ORDER BY name`
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (a *Adapter) ListTableIndexes(ctx context.Context, table, schema string) ([]adapter.Index, error) {
	db, err := a.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := fmt.Sprintf("PRAGMA index_list(%s)", quoteLiteral(table))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.Index
	for rows.Next() {
		var seq int
		var name string
		var unique, partial int
		var origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		cols, err := a.indexColumns(ctx, db, name)
		if err != nil {
			return nil, err
		}
		out = append(out, adapter.Index{
			Name:      name,
			Columns:   cols,
			IsUnique:  unique == 1,
			IsPrimary: origin == "pk",
		})
	}
	return out, rows.Err()
}

func (a *Adapter) indexColumns(ctx context.Context, db *sql.DB, index string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", quoteLiteral(index))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var seqno, cid int
		var name string
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (a *Adapter) GetTableReferences(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	db, err := a.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteLiteral(table))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.ForeignKey
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		out = append(out, adapter.ForeignKey{
			ConstraintName:   fmt.Sprintf("fk_%s_%d", table, id),
			Column:           from,
			ReferencedTable:  refTable,
			ReferencedColumn: to,
		})
	}
	return out, rows.Err()
}

// GetTableKeys returns the same foreign-key rows as GetTableReferences:
// SQLite's PRAGMA foreign_key_list draws no further distinction.
func (a *Adapter) GetTableKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	return a.GetTableReferences(ctx, table)
}

func (a *Adapter) GetTableCreateScript(ctx context.Context, table string) (string, error) {
	return a.masterSQL(ctx, "table", table)
}

func (a *Adapter) GetViewCreateScript(ctx context.Context, view string) (string, error) {
	return a.masterSQL(ctx, "view", view)
}

// GetRoutineCreateScript always returns NotSupportedError: SQLite has no
// stored routines.
func (a *Adapter) GetRoutineCreateScript(ctx context.Context, name, routineType string) (string, error) {
	return "", &apperrors.NotSupportedError{Operation: "getRoutineCreateScript", Dialect: string(dialect.SQLite)}
}

func (a *Adapter) masterSQL(ctx context.Context, kind, name string) (string, error) {
	db, err := a.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	var ddl string
	query := `SELECT sql FROM sqlite_master WHERE type = ? AND name = ?`
	if err := db.QueryRowContext(ctx, query, kind, name).Scan(&ddl); err != nil {
		return "", err
	}
	return ddl, nil
}

func (a *Adapter) GetQuerySelectTop(table, schema string, limit int) (string, error) {
	if limit <= 0 {
		limit = 1000
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", a.WrapIdentifier(table), limit), nil
}

// GetTableSelectScript builds an explicit column-enumeration SELECT
// rather than SELECT *, so the script reflects the table's actual shape
// at the time it was generated. The <condition> placeholder belongs to
// the non-SELECT script builders below, not here.
func (a *Adapter) GetTableSelectScript(ctx context.Context, table, schema string) (string, error) {
	cols, err := a.ListTableColumns(ctx, table)
	if err != nil {
		return "", err
	}
	return buildSelectScript(a, cols, table), nil
}

func buildSelectScript(a *Adapter, cols []adapter.Column, table string) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = a.WrapIdentifier(c.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s;", strings.Join(names, ", "), a.WrapIdentifier(table))
}

func (a *Adapter) GetTableInsertScript(table string, columns []string) (string, error) {
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		names[i] = a.WrapIdentifier(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s)\nVALUES (%s)",
		a.WrapIdentifier(table), strings.Join(names, ", "), strings.Join(placeholders, ", ")), nil
}

func (a *Adapter) GetTableUpdateScript(table string, columns []string) (string, error) {
	var sets []string
	for _, c := range columns {
		sets = append(sets, fmt.Sprintf("%s = ?", a.WrapIdentifier(c)))
	}
	return fmt.Sprintf("UPDATE %s\nSET %s\nWHERE <condition>", a.WrapIdentifier(table), strings.Join(sets, ", ")), nil
}

func (a *Adapter) GetTableDeleteScript(table string) (string, error) {
	return fmt.Sprintf("DELETE FROM %s\nWHERE <condition>", a.WrapIdentifier(table)), nil
}

// quoteLiteral embeds a name as a single-quoted SQL string literal,
// doubling any embedded quote. PRAGMA statements cannot take bound
// parameters, so table/index names are safely inlined as literals
// instead of identifiers (the teacher's sqlite adapter does the same for
// PRAGMA table_info).
func quoteLiteral(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
