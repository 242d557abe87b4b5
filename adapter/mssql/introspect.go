package mssql

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlectron/sqlectron-core/adapter"
)

func (a *Adapter) ListDatabases(ctx context.Context, filter string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT name FROM sys.databases ORDER BY name")
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
	rows, err := a.db.QueryContext(ctx, "SELECT schema_name FROM information_schema.schemata ORDER BY schema_name")
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
		schema = "dbo"
	}
	query := `SELECT table_schema, table_name FROM information_schema.tables
		WHERE table_schema = @p1 AND table_type = @p2 ORDER BY table_name`
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
		schema = "dbo"
	}
	query := `SELECT routine_name, routine_type FROM information_schema.routines
		WHERE routine_schema = @p1 ORDER BY routine_name`
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
		CASE WHEN pk.column_name IS NOT NULL THEN 1 ELSE 0 END AS is_pk
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
			WHERE tc.table_name = @p1 AND tc.constraint_type = 'PRIMARY KEY'
		) pk ON pk.column_name = c.column_name
		WHERE c.table_name = @p1
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
		var isPK int
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def, &isPK); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		col.DefaultValue = def
		col.IsPrimaryKey = isPK == 1
		out = append(out, col)
	}
	return out, rows.Err()
}

// ListTableTriggers uses sp_helptrigger: SQL Server exposes trigger
// metadata through this stored procedure rather than information_schema,
// per spec.md §4.5.
func (a *Adapter) ListTableTriggers(ctx context.Context, table string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf("EXEC sp_helptrigger %s", a.WrapIdentifier(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	nameIdx := 0
	for i, c := range cols {
		if strings.EqualFold(c, "trigger_name") {
			nameIdx = i
		}
	}

	var out []string
	for rows.Next() {
		dest := make([]any, len(cols))
		raw := make([]any, len(cols))
		for i := range dest {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if name, ok := raw[nameIdx].(string); ok {
			out = append(out, name)
		}
	}
	return out, rows.Err()
}

// ListTableIndexes uses sp_helpindex for the same reason ListTableTriggers
// uses sp_helptrigger.
func (a *Adapter) ListTableIndexes(ctx context.Context, table, schema string) ([]adapter.Index, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf("EXEC sp_helpindex %s", a.WrapIdentifier(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adapter.Index
	for rows.Next() {
		var indexName, indexDescription, indexKeys string
		if err := rows.Scan(&indexName, &indexDescription, &indexKeys); err != nil {
			return nil, err
		}
		out = append(out, adapter.Index{
			Name:      indexName,
			Columns:   strings.Split(indexKeys, ", "),
			IsUnique:  strings.Contains(indexDescription, "unique"),
			IsPrimary: strings.Contains(indexDescription, "clustered, unique, primary key"),
		})
	}
	return out, rows.Err()
}

func (a *Adapter) GetTableReferences(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	query := `SELECT fk.name, pc.name, rt.name, rc.name
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE fk.parent_object_id = OBJECT_ID(@p1)`
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

// GetTableKeys returns the same foreign-key rows as GetTableReferences.
func (a *Adapter) GetTableKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	return a.GetTableReferences(ctx, table)
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
	if err := a.db.QueryRowContext(ctx, "SELECT OBJECT_DEFINITION(OBJECT_ID(@p1))", view).Scan(&def); err != nil {
		return "", err
	}
	return def, nil
}

func (a *Adapter) GetRoutineCreateScript(ctx context.Context, name, routineType string) (string, error) {
	var def string
	if err := a.db.QueryRowContext(ctx, "SELECT OBJECT_DEFINITION(OBJECT_ID(@p1))", name).Scan(&def); err != nil {
		return "", err
	}
	return def, nil
}

// GetQuerySelectTop uses SQL Server's TOP keyword instead of LIMIT, per
// the dialect-variant table.
func (a *Adapter) GetQuerySelectTop(table, schema string, limit int) (string, error) {
	if limit <= 0 {
		limit = 1000
	}
	ref := a.WrapIdentifier(table)
	if schema != "" {
		ref = a.WrapIdentifier(schema) + "." + ref
	}
	return fmt.Sprintf("SELECT TOP %d * FROM %s", limit, ref), nil
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
