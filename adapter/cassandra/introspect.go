package cassandra

import (
	"context"
	"strings"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
)

// keyspacesTable, tablesTable, and columnsTable pick the v3+
// system_schema.* names or the legacy v2 system.schema_* names based on
// the version detected at Connect, per spec.md §4.5's Cassandra
// introspection rule.
func (a *Adapter) keyspacesTable() string {
	if a.isV3 {
		return "system_schema.keyspaces"
	}
	return "system.schema_keyspaces"
}

func (a *Adapter) tablesTable() string {
	if a.isV3 {
		return "system_schema.tables"
	}
	return "system.schema_columnfamilies"
}

func (a *Adapter) columnsTable() string {
	if a.isV3 {
		return "system_schema.columns"
	}
	return "system.schema_columns"
}

func (a *Adapter) keyspaceNameColumn() string {
	if a.isV3 {
		return "keyspace_name"
	}
	return "keyspace_name"
}

func (a *Adapter) tableNameColumn() string {
	if a.isV3 {
		return "table_name"
	}
	return "columnfamily_name"
}

func (a *Adapter) ListDatabases(ctx context.Context, filter string) ([]string, error) {
	return a.ListSchemas(ctx, filter)
}

func (a *Adapter) ListSchemas(ctx context.Context, filter string) ([]string, error) {
	query := "SELECT " + a.keyspaceNameColumn() + " FROM " + a.keyspacesTable()
	iter := a.session.Query(query).WithContext(ctx).Iter()

	var out []string
	var name string
	for iter.Scan(&name) {
		if filter == "" || strings.Contains(name, filter) {
			out = append(out, name)
		}
	}
	return out, iter.Close()
}

func (a *Adapter) ListTables(ctx context.Context, schema string) ([]adapter.TableRef, error) {
	if schema == "" {
		schema = a.keyspace
	}
	query := "SELECT " + a.tableNameColumn() + " FROM " + a.tablesTable() + " WHERE " + a.keyspaceNameColumn() + " = ?"
	iter := a.session.Query(query, schema).WithContext(ctx).Iter()

	var out []adapter.TableRef
	var name string
	for iter.Scan(&name) {
		out = append(out, adapter.TableRef{Schema: schema, Name: name})
	}
	return out, iter.Close()
}

// ListViews always returns NotSupportedError: materialized views exist in
// Cassandra but are not part of this gateway's introspection contract.
func (a *Adapter) ListViews(ctx context.Context, schema string) ([]adapter.TableRef, error) {
	return nil, &apperrors.NotSupportedError{Operation: "listViews", Dialect: string(dialect.Cassandra)}
}

// ListRoutines always returns an empty list: Cassandra has no stored
// procedures or functions reachable through CQL in the sense the other
// dialects expose, per the dialect-variant table.
func (a *Adapter) ListRoutines(ctx context.Context, schema string) ([]adapter.Routine, error) {
	return nil, nil
}

func (a *Adapter) ListTableColumns(ctx context.Context, table string) ([]adapter.Column, error) {
	query := "SELECT column_name, type, kind FROM " + a.columnsTable() +
		" WHERE " + a.keyspaceNameColumn() + " = ? AND " + a.tableNameColumn() + " = ?"
	iter := a.session.Query(query, a.keyspace, table).WithContext(ctx).Iter()

	var out []adapter.Column
	var name, colType, kind string
	for iter.Scan(&name, &colType, &kind) {
		out = append(out, adapter.Column{
			Name:         name,
			DataType:     colType,
			Nullable:     kind != "partition_key" && kind != "clustering",
			IsPrimaryKey: kind == "partition_key" || kind == "clustering",
		})
	}
	return out, iter.Close()
}

// ListTableTriggers always returns NotSupportedError: Cassandra has no
// trigger concept this gateway surfaces, per the dialect-variant table.
func (a *Adapter) ListTableTriggers(ctx context.Context, table string) ([]string, error) {
	return nil, &apperrors.NotSupportedError{Operation: "listTableTriggers", Dialect: string(dialect.Cassandra)}
}

func (a *Adapter) ListTableIndexes(ctx context.Context, table, schema string) ([]adapter.Index, error) {
	if !a.isV3 {
		return nil, &apperrors.NotSupportedError{Operation: "listTableIndexes", Dialect: string(dialect.Cassandra)}
	}
	query := "SELECT index_name FROM system_schema.indexes WHERE keyspace_name = ? AND table_name = ?"
	iter := a.session.Query(query, a.keyspace, table).WithContext(ctx).Iter()

	var out []adapter.Index
	var name string
	for iter.Scan(&name) {
		out = append(out, adapter.Index{Name: name})
	}
	return out, iter.Close()
}

// GetTableReferences always returns an empty list: Cassandra has no
// foreign-key constraints.
func (a *Adapter) GetTableReferences(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	return nil, nil
}

// GetTableKeys always returns NotSupportedError and no key columns;
// Cassandra's partition and clustering columns are reported through
// ListTableColumns' IsPrimaryKey flag.
func (a *Adapter) GetTableKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	return nil, &apperrors.NotSupportedError{Operation: "getTableKeys", Dialect: string(dialect.Cassandra)}
}

func (a *Adapter) GetTableCreateScript(ctx context.Context, table string) (string, error) {
	meta, err := a.session.KeyspaceMetadata(a.keyspace)
	if err != nil {
		return "", err
	}
	tm, ok := meta.Tables[table]
	if !ok {
		return "", &apperrors.ValidationError{Field: "table", Validator: "exists", Message: table}
	}
	return tm.Name, nil
}

// GetViewCreateScript always returns NotSupportedError: this gateway does
// not introspect Cassandra materialized views.
func (a *Adapter) GetViewCreateScript(ctx context.Context, view string) (string, error) {
	return "", &apperrors.NotSupportedError{Operation: "getViewCreateScript", Dialect: string(dialect.Cassandra)}
}

// GetRoutineCreateScript always returns NotSupportedError: Cassandra has
// no stored routines.
func (a *Adapter) GetRoutineCreateScript(ctx context.Context, name, routineType string) (string, error) {
	return "", &apperrors.NotSupportedError{Operation: "getRoutineCreateScript", Dialect: string(dialect.Cassandra)}
}

func (a *Adapter) GetQuerySelectTop(table, schema string, limit int) (string, error) {
	if limit <= 0 {
		limit = 1000
	}
	ref := a.WrapIdentifier(table)
	if schema != "" {
		ref = a.WrapIdentifier(schema) + "." + ref
	}
	return "SELECT * FROM " + ref + " LIMIT " + itoa(limit), nil
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
	return "SELECT " + strings.Join(names, ", ") + " FROM " + ref + ";"
}

func (a *Adapter) GetTableInsertScript(table string, columns []string) (string, error) {
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		names[i] = a.WrapIdentifier(c)
		placeholders[i] = "?"
	}
	return "INSERT INTO " + a.WrapIdentifier(table) + " (" + strings.Join(names, ", ") + ")\nVALUES (" + strings.Join(placeholders, ", ") + ")", nil
}

func (a *Adapter) GetTableUpdateScript(table string, columns []string) (string, error) {
	var sets []string
	for _, c := range columns {
		sets = append(sets, a.WrapIdentifier(c)+" = ?")
	}
	return "UPDATE " + a.WrapIdentifier(table) + "\nSET " + strings.Join(sets, ", ") + "\nWHERE <condition>", nil
}

func (a *Adapter) GetTableDeleteScript(table string) (string, error) {
	return "DELETE FROM " + a.WrapIdentifier(table) + "\nWHERE <condition>", nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
