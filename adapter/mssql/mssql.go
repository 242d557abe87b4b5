// Package mssql implements adapter.Adapter for Microsoft SQL Server
// using github.com/microsoft/go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/version"
)

func init() {
	adapter.Register(dialect.SQLServer, func() adapter.Adapter { return New() })
}

// Adapter connects to one SQL Server instance and database over a pooled
// database/sql connection.
type Adapter struct {
	db *sql.DB
}

// New constructs an unconnected SQL Server adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Connect(ctx context.Context, d dialect.Descriptor, database string) (version.Info, error) {
	if database == "" {
		database = d.Database
	}
	if database == "" {
		database = dialect.CLIENTS[dialect.SQLServer].DefaultDatabase
	}

	q := url.Values{}
	q.Set("database", database)
	if d.SSL {
		q.Set("encrypt", "true")
	} else {
		q.Set("encrypt", "disable")
	}
	// requestTimeout=∞ per spec.md §5: no per-request timeout is set, so a
	// query runs until the context passed to it is canceled. "dial
	// timeout" 0 removes the deadline on dialing the server as well.
	q.Set("dial timeout", "0")

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		User:     url.UserPassword(d.User, d.Password),
		RawQuery: q.Encode(),
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.SQLServer), Err: err}
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	var raw string
	if err := db.QueryRowContext(ctx, "SELECT @@VERSION").Scan(&raw); err != nil {
		db.Close()
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.SQLServer), Err: err}
	}

	a.db = db

	return version.Info{Name: "Microsoft SQL Server", Version: parseMSSQLVersionNumber(raw), String: raw}, nil
}

func parseMSSQLVersionNumber(banner string) string {
	const marker = "Microsoft SQL Server "
	idx := indexOf(banner, marker)
	if idx < 0 {
		return banner
	}
	rest := banner[idx+len(marker):]
	end := 0
	for end < len(rest) && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	if end == 0 {
		return banner
	}
	return rest[:end]
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Query runs text asynchronously. Cancellation relies on go-mssqldb's own
// request-level cancel, triggered by canceling the context passed to
// QueryContext/ExecContext, per the dialect-variant table's
// "request.cancel()" entry.
func (a *Adapter) Query(ctx context.Context, text string) (*adapter.Handle, error) {
	runCtx, cancel := context.WithCancel(ctx)

	handle := adapter.NewHandle(text)
	handle.Register(func() error {
		cancel()
		return nil
	})

	go func() {
		defer cancel()
		results, err := a.execBatch(runCtx, text)
		handle.Finish(results, err)
	}()

	return handle, nil
}

func (a *Adapter) ExecuteQuery(ctx context.Context, text string) ([]adapter.NormalizedResult, error) {
	return a.execBatch(ctx, text)
}

// execBatch collapses non-SELECT statements into a single trailing
// result: SQL Server is the one dialect the spec exempts from "one result
// per statement" since its own batch execution semantics already merge
// them.
func (a *Adapter) execBatch(ctx context.Context, text string) ([]adapter.NormalizedResult, error) {
	return adapter.ExecBatch(ctx, a.db, text, true)
}

func (a *Adapter) TruncateAllTables(ctx context.Context) error {
	tables, err := a.ListTables(ctx, "dbo")
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := a.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", a.WrapIdentifier(t.Name))); err != nil {
			return err
		}
	}
	return nil
}

// WrapIdentifier quotes name using SQL Server's square-bracket identifier
// syntax.
func (a *Adapter) WrapIdentifier(name string) string {
	return adapter.QuoteIdentifier(name, '[', ']')
}

func (a *Adapter) Capabilities() adapter.Features {
	return adapter.Features{
		SchemaQualifiedTables: true,
		Triggers:              true,
		Routines:              true,
		MultiStatementBatch:   true,
		CollapsesBatchResults: true,
		Cancellation:          true,
		LimitKeyword:          "TOP",
	}
}
