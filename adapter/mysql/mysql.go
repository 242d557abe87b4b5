// Package mysql implements adapter.Adapter for MySQL and MariaDB using
// github.com/go-sql-driver/mysql. Both dialect keys register the same
// implementation: MariaDB's information_schema surface is wire-compatible
// with MySQL's for everything this adapter queries.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/version"
)

func init() {
	adapter.Register(dialect.MySQL, func() adapter.Adapter { return New() })
	adapter.Register(dialect.MariaDB, func() adapter.Adapter { return New() })
}

// Adapter connects to one MySQL or MariaDB server over a pooled
// database/sql connection.
type Adapter struct {
	db       *sql.DB
	database string
}

// New constructs an unconnected MySQL/MariaDB adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Connect(ctx context.Context, d dialect.Descriptor, database string) (version.Info, error) {
	if database == "" {
		database = d.Database
	}

	cfg := mysqldriver.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.DBName = database
	cfg.ParseTime = false
	if d.SSL {
		cfg.TLSConfig = "preferred"
	}

	if d.UsesSocket() {
		cfg.Net = "unix"
		cfg.Addr = d.SocketPath
	} else {
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.MySQL), Err: err}
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	var raw string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&raw); err != nil {
		db.Close()
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.MySQL), Err: err}
	}

	a.db = db
	a.database = database

	name := "MySQL"
	if strings.Contains(strings.ToLower(raw), "mariadb") {
		name = "MariaDB"
	}

	return version.Info{Name: name, Version: raw, String: raw}, nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Query runs text asynchronously. Cancellation relies on the driver's own
// context-cancellation support (it issues a KILL QUERY on a side
// connection when the context passed to QueryContext/ExecContext is
// canceled), per the dialect-variant table's "driver cancel" entry.
func (a *Adapter) Query(ctx context.Context, text string) (*adapter.Handle, error) {
	runCtx, cancel := context.WithCancel(ctx)

	handle := adapter.NewHandle(text)
	handle.Register(func() error {
		cancel()
		return nil
	})

	go func() {
		defer cancel()
		results, err := adapter.ExecBatch(runCtx, a.db, text, false)
		handle.Finish(results, err)
	}()

	return handle, nil
}

func (a *Adapter) ExecuteQuery(ctx context.Context, text string) ([]adapter.NormalizedResult, error) {
	return adapter.ExecBatch(ctx, a.db, text, false)
}

func (a *Adapter) TruncateAllTables(ctx context.Context) error {
	tables, err := a.ListTables(ctx, a.database)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return nil
	}

	if _, err := a.db.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return err
	}
	defer a.db.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")

	for _, t := range tables {
		if _, err := a.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", a.WrapIdentifier(t.Name))); err != nil {
			return err
		}
	}
	return nil
}

// WrapIdentifier quotes name using MySQL/MariaDB's backtick identifier
// syntax.
func (a *Adapter) WrapIdentifier(name string) string {
	return adapter.QuoteIdentifier(name, '`', '`')
}

func (a *Adapter) Capabilities() adapter.Features {
	return adapter.Features{
		SchemaQualifiedTables: false,
		Triggers:              true,
		Routines:              true,
		MultiStatementBatch:   true,
		Cancellation:          true,
		LimitKeyword:          "LIMIT",
	}
}
