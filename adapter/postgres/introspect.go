package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlectron/sqlectron-core/adapter"
)

func (a *Adapter) ListDatabases(ctx context.Context, filter string) ([]string, error) {
	query := "SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname"
	rows, err := a.db.QueryContext(ctx, query)
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

func (a *Adapter) ListSchemas(ctx context.Context, filter string) ([]string, error) {
	query := `SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		ORDER BY schema_name`
	rows, err := a.db.QueryContext(ctx, query)
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

func (a *Adapter) listRelations(ctx context.Context, schema, kind string) ([]adapter.TableRef, error) {
	if schema == "" {
		schema = "public"
	}
	query := `SELECT table_schema, table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = $2
		ORDER BY table_name`
	rows, err := a.db.QueryContext(ctx, query, schema, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.TableRef
	for rows.Next() {
		var ref adapter.TableRef
		if err := rows.Scan(&ref.Schema, &ref.Name); err != nil {
			return nil, err
		}
		out = append(out, ref)
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
		schema = "public"
	}
	query := `SELECT routine_name, routine_type FROM information_schema.routines
		WHERE routine_schema = $1 ORDER BY routine_name`
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
	query := `SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
		COALESCE(pk.is_pk, false) AS is_pk
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			WHERE tc.table_name = $1 AND tc.constraint_type = 'PRIMARY KEY'
		) pk ON pk.column_name = c.column_name
		WHERE c.table_name = $1
		ORDER BY c.ordinal_position`
	rows, err := a.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.Column
	for rows.Next() {
		var col adapter.Column
		var nullable string
		var def *string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def, &col.IsPrimaryKey); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		col.DefaultValue = def
		out = append(out, col)
	}
	return out, rows.Err()
}

func (a *Adapter) ListTableTriggers(ctx context.Context, table string) ([]string, error) {
	query := `SELECT trigger_name FROM information_schema.triggers
		WHERE event_object_table = $1 GROUP BY trigger_name ORDER BY trigger_name`
	rows, err := a.db.QueryContext(ctx, query, table)
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
		schema = "public"
	}
	query := `SELECT i.relname AS index_name, ix.indisunique, ix.indisprimary, a.attname
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relname = $1 AND n.nspname = $2
		ORDER BY i.relname, a.attnum`
	rows, err := a.db.QueryContext(ctx, query, table, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]*adapter.Index{}
	var order []string
	for rows.Next() {
		var name, column string
		var unique, primary bool
		if err := rows.Scan(&name, &unique, &primary, &column); err != nil {
			return nil, err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &adapter.Index{Name: name, IsUnique: unique, IsPrimary: primary}
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

// GetTableReferences lists the foreign keys defined on table that point
// outward to other tables.
func (a *Adapter) GetTableReferences(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	return a.listForeignKeys(ctx, table)
}

// GetTableKeys lists the same foreign-key constraints as GetTableReferences;
// the spec draws the distinction at the caller's intent (outgoing
// references vs. "what constrains this table"), not at the SQL shape.
func (a *Adapter) GetTableKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	return a.listForeignKeys(ctx, table)
}

func (a *Adapter) listForeignKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	query := `SELECT tc.constraint_name, kcu.column_name, ccu.table_name AS referenced_table, ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
		JOIN information_schema.constraint_column_usage ccu ON tc.constraint_name = ccu.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1
		ORDER BY tc.constraint_name`
	rows, err := a.db.QueryContext(ctx, query, table)
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

func (a *Adapter) GetTableCreateScript(ctx context.Context, table string) (string, error) {
	cols, err := a.ListTableColumns(ctx, table)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", a.WrapIdentifier(table))
	for i, c := range cols {
		fmt.Fprintf(&b, "  %s %s", a.WrapIdentifier(c.Name), c.DataType)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if c.DefaultValue != nil {
			fmt.Fprintf(&b, " DEFAULT %s", *c.DefaultValue)
		}
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String(), nil
}

func (a *Adapter) GetViewCreateScript(ctx context.Context, view string) (string, error) {
	var def string
	query := `SELECT definition FROM pg_views WHERE viewname = $1`
	if err := a.db.QueryRowContext(ctx, query, view).Scan(&def); err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE VIEW %s AS\n%s", a.WrapIdentifier(view), def), nil
}

func (a *Adapter) GetRoutineCreateScript(ctx context.Context, name, routineType string) (string, error) {
	var def string
	query := `SELECT pg_get_functiondef(p.oid)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE p.proname = $1 AND n.nspname = 'public'`
	if err := a.db.QueryRowContext(ctx, query, name).Scan(&def); err != nil {
		return "", err
	}
	return def, nil
}

func (a *Adapter) GetQuerySelectTop(table, schema string, limit int) (string, error) {
	if limit <= 0 {
		limit = 1000
	}
	ref := a.WrapIdentifier(table)
	if schema != "" {
		ref = a.WrapIdentifier(schema) + "." + ref
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", ref, limit), nil
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
	return buildSelectScript(a, cols, table, schema), nil
}

func buildSelectScript(a *Adapter, cols []adapter.Column, table, schema string) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = a.WrapIdentifier(c.Name)
	}

	ref := a.WrapIdentifier(table)
	if schema != "" {
		ref = a.WrapIdentifier(schema) + "." + ref
	}
	return fmt.Sprintf("SELECT %s FROM %s;", strings.Join(names, ", "), ref)
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
