// Package sqlite implements adapter.Adapter for SQLite using the pure-Go
// modernc.org/sqlite driver, matching the teacher's driver choice exactly.
// Per the dialect-variant table, SQLite opens a fresh connection for every
// query rather than holding a pool open — there is no long-lived server
// process to pool connections against.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/version"
)

func init() {
	adapter.Register(dialect.SQLite, func() adapter.Adapter { return New() })
}

// Adapter addresses one SQLite database file. It holds no open
// connection between calls; each operation opens, uses, and closes its
// own *sql.DB.
type Adapter struct {
	path string
}

// New constructs an unconnected SQLite adapter.
func New() *Adapter {
	return &Adapter{}
}

// Connect records the database file path and probes it by opening a
// throwaway connection and reading sqlite_version().
func (a *Adapter) Connect(ctx context.Context, d dialect.Descriptor, database string) (version.Info, error) {
	path := database
	if path == "" {
		path = d.Database
	}
	if path == "" {
		return version.Info{}, &apperrors.ConnectError{
			Dialect: string(dialect.SQLite),
			Err:     fmt.Errorf("no database file path given"),
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.SQLite), Err: err}
	}
	defer db.Close()

	var raw string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&raw); err != nil {
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.SQLite), Err: err}
	}

	a.path = path

	return version.Info{Name: "SQLite", Version: raw, String: raw}, nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	return nil
}

func (a *Adapter) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", a.path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Query opens a dedicated connection for text and runs it on its own
// goroutine. Cancellation cancels that connection's context, which
// modernc.org/sqlite honors by interrupting the in-flight statement (the
// Go equivalent of calling sqlite3_interrupt on the connection), per the
// dialect-variant table's "connection.interrupt()" entry.
func (a *Adapter) Query(ctx context.Context, text string) (*adapter.Handle, error) {
	db, err := a.open()
	if err != nil {
		return nil, &apperrors.ConnectError{Dialect: string(dialect.SQLite), Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)

	handle := adapter.NewHandle(text)
	handle.Register(func() error {
		cancel()
		return nil
	})

	go func() {
		defer db.Close()
		defer cancel()
		results, err := adapter.ExecBatch(runCtx, db, text, false)
		handle.Finish(results, err)
	}()

	return handle, nil
}

func (a *Adapter) ExecuteQuery(ctx context.Context, text string) ([]adapter.NormalizedResult, error) {
	db, err := a.open()
	if err != nil {
		return nil, &apperrors.ConnectError{Dialect: string(dialect.SQLite), Err: err}
	}
	defer db.Close()
	return adapter.ExecBatch(ctx, db, text, false)
}

func (a *Adapter) TruncateAllTables(ctx context.Context) error {
	db, err := a.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tables, err := a.listTables(ctx, db)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", a.WrapIdentifier(t.Name))); err != nil {
			return err
		}
	}
	return nil
}

// WrapIdentifier quotes name using SQLite's double-quote identifier
// syntax, matching PostgreSQL/Redshift/Cassandra per the dialect table.
func (a *Adapter) WrapIdentifier(name string) string {
	return adapter.QuoteIdentifier(name, '"', '"')
}

func (a *Adapter) Capabilities() adapter.Features {
	return adapter.Features{
		SchemaQualifiedTables: false,
		Triggers:              true,
		Routines:              false,
		MultiStatementBatch:   true,
		Cancellation:          true,
		LimitKeyword:          "LIMIT",
	}
}
