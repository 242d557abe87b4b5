// Package postgres implements adapter.Adapter for PostgreSQL using
// lib/pq. It is also embedded by package redshift, which overrides the
// handful of operations Redshift's dialect variant disagrees on.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/version"
)

func init() {
	adapter.Register(dialect.PostgreSQL, func() adapter.Adapter { return New() })
}

// Adapter connects to one PostgreSQL (or Redshift, via embedding) server
// and database over a pooled database/sql connection.
type Adapter struct {
	db       *sql.DB
	database string
}

// New constructs an unconnected PostgreSQL adapter.
func New() *Adapter {
	return &Adapter{}
}

// Connect opens a pooled connection and probes liveness with
// SELECT version(). Per spec.md §5, the pool is capped at 5 open
// connections.
func (a *Adapter) Connect(ctx context.Context, d dialect.Descriptor, database string) (version.Info, error) {
	dsn, err := buildDSN(d, database)
	if err != nil {
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.PostgreSQL), Err: err}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.PostgreSQL), Err: err}
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	var raw string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&raw); err != nil {
		db.Close()
		return version.Info{}, &apperrors.ConnectError{Dialect: string(dialect.PostgreSQL), Err: err}
	}

	a.db = db
	a.database = database

	return version.Info{
		Name:    "PostgreSQL",
		Version: parsePGVersionNumber(raw),
		String:  raw,
	}, nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func buildDSN(d dialect.Descriptor, database string) (string, error) {
	if database == "" {
		database = d.Database
	}
	if database == "" {
		database = dialect.CLIENTS[dialect.PostgreSQL].DefaultDatabase
	}

	q := url.Values{}
	q.Set("dbname", database)
	if d.User != "" {
		q.Set("user", d.User)
	}
	if d.Password != "" {
		q.Set("password", d.Password)
	}
	if d.SSL {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}

	if d.UsesSocket() {
		q.Set("host", d.SocketPath)
	} else {
		host, port := d.Host, d.Port
		q.Set("host", host)
		if port != 0 {
			q.Set("port", strconv.Itoa(port))
		}
	}

	var parts []string
	for k, v := range q {
		val := strings.ReplaceAll(v[0], `\`, `\\`)
		val = strings.ReplaceAll(val, `'`, `\'`)
		parts = append(parts, fmt.Sprintf("%s='%s'", k, val))
	}
	return strings.Join(parts, " "), nil
}

// parsePGVersionNumber extracts the leading dotted version number out of
// PostgreSQL's "PostgreSQL 16.2 on x86_64-pc-linux-gnu, ..." banner.
func parsePGVersionNumber(banner string) string {
	fields := strings.Fields(banner)
	for i, f := range fields {
		if f == "PostgreSQL" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return banner
}

// DB exposes the underlying pooled connection, for package redshift's
// overrides that need to issue catalog queries the embedded PostgreSQL
// adapter doesn't itself expose a method for.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

func (a *Adapter) conn(ctx context.Context) (*sql.Conn, error) {
	return a.db.Conn(ctx)
}

// Query runs text asynchronously on its own connection and returns a
// Handle the caller can cancel. Cancellation obtains the connection's
// backend pid and issues pg_cancel_backend on a side connection from the
// pool, per spec.md §4.5's PostgreSQL cancellation mechanics.
func (a *Adapter) Query(ctx context.Context, text string) (*adapter.Handle, error) {
	conn, err := a.conn(ctx)
	if err != nil {
		return nil, &apperrors.ConnectError{Dialect: string(dialect.PostgreSQL), Err: err}
	}

	var pid int
	if err := conn.QueryRowContext(ctx, "SELECT pg_backend_pid()").Scan(&pid); err != nil {
		conn.Close()
		return nil, &apperrors.QueryError{Err: err}
	}

	handle := adapter.NewHandle(text)
	handle.Register(func() error {
		_, err := a.db.ExecContext(context.Background(), "SELECT pg_cancel_backend($1)", pid)
		return err
	})

	go func() {
		defer conn.Close()
		results, err := execBatch(ctx, conn, text)
		handle.Finish(results, err)
	}()

	return handle, nil
}

// ExecuteQuery runs text to completion synchronously and returns its
// normalized results.
func (a *Adapter) ExecuteQuery(ctx context.Context, text string) ([]adapter.NormalizedResult, error) {
	conn, err := a.conn(ctx)
	if err != nil {
		return nil, &apperrors.ConnectError{Dialect: string(dialect.PostgreSQL), Err: err}
	}
	defer conn.Close()
	return execBatch(ctx, conn, text)
}

// execBatch wraps adapter.ExecBatch with PostgreSQL's temporal
// reformatting: DATE/TIMESTAMP/TIMESTAMPTZ columns (OIDs 1082/1114/1184)
// are surfaced in their own original textual form rather than as a
// decoded time.Time, per spec.md §4.5's PostgreSQL requirement. lib/pq has
// no client-side type-parser registry (unlike node-postgres's
// pg.types.setTypeParser), so the equivalent is applied here by picking a
// layout per column from the driver-reported DatabaseTypeName
// ("DATE"/"TIMESTAMP"/"TIMESTAMPTZ") rather than one hardcoded layout for
// every time.Time.
func execBatch(ctx context.Context, q adapter.Queryer, text string) ([]adapter.NormalizedResult, error) {
	results, err := adapter.ExecBatch(ctx, q, text, false)
	if err != nil {
		return nil, err
	}
	for i := range results {
		reformatTemporalColumns(results[i].Fields, results[i].Rows)
	}
	return results, nil
}

// temporalLayouts maps lib/pq's reported DatabaseTypeName to the layout
// that reproduces PostgreSQL's own textual form for that OID: DATE carries
// no time-of-day or offset, TIMESTAMP carries no offset, and only
// TIMESTAMPTZ carries one.
var temporalLayouts = map[string]string{
	"DATE":        "2006-01-02",
	"TIMESTAMP":   "2006-01-02 15:04:05.999999",
	"TIMESTAMPTZ": "2006-01-02 15:04:05.999999-07",
}

func reformatTemporalColumns(fields []adapter.Field, rows []adapter.Row) {
	layoutByField := make(map[string]string, len(fields))
	for _, f := range fields {
		if layout, ok := temporalLayouts[f.DatabaseType]; ok {
			layoutByField[f.Name] = layout
		}
	}
	if len(layoutByField) == 0 {
		return
	}

	for _, r := range rows {
		for name, layout := range layoutByField {
			v, ok := r[name]
			if !ok {
				continue
			}
			if t, ok := v.(time.Time); ok {
				r[name] = t.Format(layout)
			}
		}
	}
}

func (a *Adapter) TruncateAllTables(ctx context.Context) error {
	tables, err := a.ListTables(ctx, "public")
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return nil
	}
	var names []string
	for _, t := range tables {
		names = append(names, a.WrapIdentifier(t.Name))
	}
	_, err = a.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(names, ", ")))
	return err
}

// WrapIdentifier quotes name using PostgreSQL's double-quote identifier
// syntax.
func (a *Adapter) WrapIdentifier(name string) string {
	return adapter.QuoteIdentifier(name, '"', '"')
}

func (a *Adapter) Capabilities() adapter.Features {
	return adapter.Features{
		SchemaQualifiedTables: true,
		Triggers:              true,
		Routines:              true,
		MultiStatementBatch:   true,
		Cancellation:          true,
		DateAsString:          true,
		LimitKeyword:          "LIMIT",
	}
}
