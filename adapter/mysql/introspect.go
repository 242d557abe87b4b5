package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlectron/sqlectron-core/adapter"
)

func (a *Adapter) ListDatabases(ctx context.Context, filter string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SHOW DATABASES")
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
		if filter == "" || strings.Contains(name, filter) {
			out = append(out, name)
		}
	}
	return out, rows.Err()
}

// ListSchemas returns the same result as ListDatabases: MySQL/MariaDB has
// no separate schema concept — "schema" and "database" are synonyms.
func (a *Adapter) ListSchemas(ctx context.Context, filter string) ([]string, error) {
	return a.ListDatabases(ctx, filter)
}

func (a *Adapter) listRelations(ctx context.Context, schema, kind string) ([]adapter.TableRef, error) {
	if schema == "" {
		schema = a.database
	}
	query := `SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = ? ORDER BY table_name`
	rows, err := a.db.QueryContext(ctx, query, schema, kind)
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
	return a.listRelations(ctx, schema, "BASE TABLE")
}

func (a *Adapter) ListViews(ctx context.Context, schema string) ([]adapter.TableRef, error) {
	return a.listRelations(ctx, schema, "VIEW")
}

func (a *Adapter) ListRoutines(ctx context.Context, schema string) ([]adapter.Routine, error) {
	if schema == "" {
		schema = a.database
	}
	query := `SELECT routine_name, routine_type FROM information_schema.routines
		WHERE routine_schema = ? ORDER BY routine_name`
	rows, err := a.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.Routine
	for rows.Next() {
		var r adapter.Routine
		if err := rows.Scan(&r.Name, &r.Type); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (a *Adapter) ListTableColumns(ctx context.Context, table string) ([]adapter.Column, error) {
	query := `SELECT column_name, data_type, is_nullable, column_default, column_key, extra
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`
	rows, err := a.db.QueryContext(ctx, query, a.database, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.Column
	for rows.Next() {
		var col adapter.Column
		var nullable, key string
		var def *string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def, &key, &col.Extra); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		col.DefaultValue = def
		col.IsPrimaryKey = key == "PRI"
		out = append(out, col)
	}
	return out, rows.Err()
}

func (a *Adapter) ListTableTriggers(ctx context.Context, table string) ([]string, error) {
	query := `SELECT trigger_name FROM information_schema.triggers
		WHERE trigger_schema = ? AND event_object_table = ? ORDER BY trigger_name`
	rows, err := a.db.QueryContext(ctx, query, a.database, table)
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
	if schema == "" {
		schema = a.database
	}
	query := `SELECT index_name, non_unique, column_name FROM information_schema.statistics
		WHERE table_schema = ? AND table_name = ? ORDER BY index_name, seq_in_index`
	rows, err := a.db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]*adapter.Index{}
	var order []string
	for rows.Next() {
		var name string
		var nonUnique int
		var column string
		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return nil, err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &adapter.Index{Name: name, IsUnique: nonUnique == 0, IsPrimary: name == "PRIMARY"}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]adapter.Index, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

func (a *Adapter) GetTableReferences(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	query := `SELECT constraint_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ? AND referenced_table_name IS NOT NULL`
	rows, err := a.db.QueryContext(ctx, query, a.database, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.ForeignKey
	for rows.Next() {
		var fk adapter.ForeignKey
		if err := rows.Scan(&fk.ConstraintName, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, err
		}
		out = append(out, fk)
	}
	return out, rows.Err()
}

// GetTableKeys returns the same foreign-key rows as GetTableReferences;
// MySQL's information_schema draws no distinction between "references"
// and "keys" beyond the caller's intent.
func (a *Adapter) GetTableKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	return a.GetTableReferences(ctx, table)
}

func (a *Adapter) GetTableCreateScript(ctx context.Context, table string) (string, error) {
	var name, ddl string
	query := fmt.Sprintf("SHOW CREATE TABLE %s", a.WrapIdentifier(table))
	if err := a.db.QueryRowContext(ctx, query).Scan(&name, &ddl); err != nil {
		return "", err
	}
	return ddl, nil
}

func (a *Adapter) GetViewCreateScript(ctx context.Context, view string) (string, error) {
	var name, ddl, charset, collation string
	query := fmt.Sprintf("SHOW CREATE VIEW %s", a.WrapIdentifier(view))
	if err := a.db.QueryRowContext(ctx, query).Scan(&name, &ddl, &charset, &collation); err != nil {
		return "", err
	}
	return ddl, nil
}

func (a *Adapter) GetRoutineCreateScript(ctx context.Context, name, routineType string) (string, error) {
	var routineName, sqlMode, ddl, charset, collation, dbCollation string
	query := fmt.Sprintf("SHOW CREATE %s %s", strings.ToUpper(routineType), a.WrapIdentifier(name))
	row := a.db.QueryRowContext(ctx, query)
	if err := row.Scan(&routineName, &sqlMode, &ddl, &charset, &collation, &dbCollation); err != nil {
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
