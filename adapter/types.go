// Package adapter defines the uniform contract every dialect
// implementation satisfies (the "Driver Adapter" of the spec) along with
// the shapes it produces: normalized query results, introspection
// records, and the capability table a caller can branch on instead of
// type-switching on dialect.
package adapter

import (
	"context"

	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/version"
)

// Row is one normalized result row: column name to value.
type Row map[string]any

// Field is a normalized result column descriptor.
type Field struct {
	Name string
	// DatabaseType is the driver-reported column type name (e.g. lib/pq's
	// "DATE"/"TIMESTAMP"/"TIMESTAMPTZ"), when the underlying driver exposes
	// one via sql.ColumnType.DatabaseTypeName. Empty when unavailable or
	// not needed — only PostgreSQL's temporal reformatting currently reads
	// it.
	DatabaseType string
}

// NormalizedResult is the dialect-independent shape returned from
// ExecuteQuery for each statement in a batch.
type NormalizedResult struct {
	Command      string
	Rows         []Row
	Fields       []Field
	RowCount     *int64
	AffectedRows *int64
}

// TableRef identifies a table or view, optionally schema-qualified.
type TableRef struct {
	Schema string
	Name   string
}

// Column describes one column of a table.
type Column struct {
	Name         string
	DataType     string
	Nullable     bool
	DefaultValue *string
	IsPrimaryKey bool
	Extra        string
}

// Index describes one index on a table.
type Index struct {
	Name      string
	Columns   []string
	IsUnique  bool
	IsPrimary bool
}

// ForeignKey describes one foreign-key reference from a table.
type ForeignKey struct {
	ConstraintName   string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// Routine describes a stored procedure or function.
type Routine struct {
	Name string
	Type string // "PROCEDURE" or "FUNCTION"
}

// Features reports which spec dialect-variant behaviors an adapter
// supports, operationalizing the spec's dialect-variant table as data a
// caller can branch on directly instead of type-switching on dialect key.
type Features struct {
	SchemaQualifiedTables bool
	Triggers              bool
	Routines              bool
	MultiStatementBatch   bool
	CollapsesBatchResults bool // true only for SQL Server
	Cancellation          bool
	DateAsString          bool
	LimitKeyword          string // "LIMIT" or "TOP"
}

// Outcome is the lifecycle state of a query handle.
type Outcome string

const (
	Pending  Outcome = "pending"
	Running  Outcome = "running"
	Done     Outcome = "done"
	Canceled Outcome = "canceled"
	Failed   Outcome = "failed"
)

// Adapter is the uniform contract every dialect satisfies. Operation
// names follow the spec's abstract naming; each either returns data or an
// error — no operation returns partial results silently. Connect, query
// execution and unsupported operations use package apperrors' types;
// introspection methods return the driver's error as is.
type Adapter interface {
	// Connect opens a pooled connection to descriptor's server/database,
	// probing liveness with a trivial version query.
	Connect(ctx context.Context, descriptor dialect.Descriptor, database string) (version.Info, error)
	Disconnect(ctx context.Context) error

	ListDatabases(ctx context.Context, filter string) ([]string, error)
	ListSchemas(ctx context.Context, filter string) ([]string, error)
	ListTables(ctx context.Context, schema string) ([]TableRef, error)
	ListViews(ctx context.Context, schema string) ([]TableRef, error)
	ListRoutines(ctx context.Context, schema string) ([]Routine, error)
	ListTableColumns(ctx context.Context, table string) ([]Column, error)
	ListTableTriggers(ctx context.Context, table string) ([]string, error)
	ListTableIndexes(ctx context.Context, table, schema string) ([]Index, error)

	GetTableReferences(ctx context.Context, table string) ([]ForeignKey, error)
	GetTableKeys(ctx context.Context, table string) ([]ForeignKey, error)

	GetTableCreateScript(ctx context.Context, table string) (string, error)
	GetViewCreateScript(ctx context.Context, view string) (string, error)
	GetRoutineCreateScript(ctx context.Context, name, routineType string) (string, error)

	GetQuerySelectTop(table, schema string, limit int) (string, error)
	GetTableSelectScript(ctx context.Context, table, schema string) (string, error)
	GetTableInsertScript(table string, columns []string) (string, error)
	GetTableUpdateScript(table string, columns []string) (string, error)
	GetTableDeleteScript(table string) (string, error)

	Query(ctx context.Context, text string) (*Handle, error)
	ExecuteQuery(ctx context.Context, text string) ([]NormalizedResult, error)

	TruncateAllTables(ctx context.Context) error

	WrapIdentifier(name string) string

	Capabilities() Features
}
