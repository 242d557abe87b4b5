// Package cassandra implements adapter.Adapter for Apache Cassandra
// using github.com/gocql/gocql. Cassandra has no database/sql driver, so
// this adapter talks to gocql's own Session/Query/Iter API directly
// rather than sharing the database/sql-based helpers the other five
// dialects use.
package cassandra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/statement"
	coreversion "github.com/sqlectron/sqlectron-core/version"
)

func init() {
	adapter.Register(dialect.Cassandra, func() adapter.Adapter { return New() })
}

// schemaV3Floor is the release version at which Cassandra switched its
// internal schema tables from system.schema_* to system_schema.*.
const schemaV3Floor = "3.0"

// Adapter connects to one Cassandra keyspace over a gocql session.
type Adapter struct {
	session  *gocql.Session
	keyspace string
	isV3     bool
}

// New constructs an unconnected Cassandra adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Connect(ctx context.Context, d dialect.Descriptor, database string) (coreversion.Info, error) {
	keyspace := database
	if keyspace == "" {
		keyspace = d.Database
	}

	cluster := gocql.NewCluster(d.Host)
	if d.Port != 0 {
		cluster.Port = d.Port
	}
	if keyspace != "" {
		cluster.Keyspace = keyspace
	}
	if d.User != "" || d.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{Username: d.User, Password: d.Password}
	}
	cluster.Timeout = 30 * time.Second
	cluster.ConnectTimeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return coreversion.Info{}, &apperrors.ConnectError{Dialect: string(dialect.Cassandra), Err: err}
	}

	var release string
	if err := session.Query("SELECT release_version FROM system.local").WithContext(ctx).Scan(&release); err != nil {
		session.Close()
		return coreversion.Info{}, &apperrors.ConnectError{Dialect: string(dialect.Cassandra), Err: err}
	}

	a.session = session
	a.keyspace = keyspace
	// A release string without a numeric major version cannot be placed
	// before 3.0, so it selects the v3 schema tables.
	a.isV3 = true
	if major, _, _ := strings.Cut(release, "."); major != "" {
		if _, err := strconv.Atoi(major); err == nil {
			a.isV3 = coreversion.AtLeast(release, schemaV3Floor)
		}
	}

	return coreversion.Info{Name: "Apache Cassandra", Version: release, String: release}, nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	if a.session != nil {
		a.session.Close()
	}
	return nil
}

// Query runs text synchronously through ExecuteQuery and returns a handle
// that has already finished with its results or error (multi-statement
// text fails with NotSupportedError: Cassandra has no batch query support
// through this gateway). The handle's registered cancel function returns
// NotSupportedError, as CQL has no server-side request-cancellation hook;
// since the handle is finished by the time Query returns, Cancel on it
// returns QueryNotReadyError.
func (a *Adapter) Query(ctx context.Context, text string) (*adapter.Handle, error) {
	handle := adapter.NewHandle(text)
	handle.Register(func() error {
		return &apperrors.NotSupportedError{Operation: "cancel", Dialect: string(dialect.Cassandra)}
	})

	results, err := a.ExecuteQuery(ctx, text)
	handle.Finish(results, err)
	return handle, nil
}

func (a *Adapter) ExecuteQuery(ctx context.Context, text string) ([]adapter.NormalizedResult, error) {
	stmts := statement.Split(text)
	if len(stmts) > 1 {
		return nil, &apperrors.NotSupportedError{Operation: "multi-statement batch", Dialect: string(dialect.Cassandra)}
	}
	if len(stmts) == 0 {
		return nil, nil
	}
	stmt := stmts[0]

	if a.session == nil {
		return nil, &apperrors.ConnectError{Dialect: string(dialect.Cassandra), Err: fmt.Errorf("not connected")}
	}
	q := a.session.Query(stmt.Text).WithContext(ctx)

	if stmt.Type != statement.Select {
		if err := q.Exec(); err != nil {
			return nil, &apperrors.QueryError{Err: err}
		}
		var zero int64
		return []adapter.NormalizedResult{{Command: string(stmt.Type), AffectedRows: &zero}}, nil
	}

	iter := q.Iter()
	cols := iter.Columns()
	fields := make([]adapter.Field, len(cols))
	for i, c := range cols {
		fields[i] = adapter.Field{Name: c.Name}
	}

	var rows []adapter.Row
	for {
		row := make(map[string]any)
		if !iter.MapScan(row) {
			break
		}
		rows = append(rows, adapter.Row(row))
	}
	if err := iter.Close(); err != nil {
		return nil, &apperrors.QueryError{Err: err}
	}

	n := int64(len(rows))
	cmd := statement.ReconcileUnknown(stmt.Type, len(rows) > 0)
	return []adapter.NormalizedResult{{Command: string(cmd), Rows: rows, Fields: fields, RowCount: &n}}, nil
}

func (a *Adapter) TruncateAllTables(ctx context.Context) error {
	tables, err := a.ListTables(ctx, a.keyspace)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if err := a.session.Query(fmt.Sprintf("TRUNCATE %s", a.WrapIdentifier(t.Name))).WithContext(ctx).Exec(); err != nil {
			return err
		}
	}
	return nil
}

// WrapIdentifier quotes name using Cassandra's double-quote identifier
// syntax, matching PostgreSQL/Redshift/SQLite per the dialect table.
func (a *Adapter) WrapIdentifier(name string) string {
	return adapter.QuoteIdentifier(name, '"', '"')
}

func (a *Adapter) Capabilities() adapter.Features {
	return adapter.Features{
		SchemaQualifiedTables: false,
		Triggers:              false,
		Routines:              false,
		MultiStatementBatch:   false,
		Cancellation:          false,
		LimitKeyword:          "LIMIT",
	}
}
