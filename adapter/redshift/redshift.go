// Package redshift implements adapter.Adapter for Amazon Redshift by
// embedding the PostgreSQL adapter and overriding the handful of
// operations where Redshift's dialect variant disagrees: triggers are
// unsupported and routine source reconstruction is version-specific
// rather than a direct pg_get_functiondef call.
package redshift

import (
	"context"
	"fmt"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/adapter/postgres"
	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
)

func init() {
	adapter.Register(dialect.Redshift, func() adapter.Adapter { return New() })
}

// Adapter is PostgreSQL's adapter with Redshift's dialect-variant
// overrides layered on top.
type Adapter struct {
	*postgres.Adapter
}

// New constructs an unconnected Redshift adapter.
func New() *Adapter {
	return &Adapter{Adapter: postgres.New()}
}

// ListTableTriggers always returns NotSupportedError: Redshift has no
// trigger support, per the dialect-variant table.
func (a *Adapter) ListTableTriggers(ctx context.Context, table string) ([]string, error) {
	return nil, &apperrors.NotSupportedError{Operation: "listTableTriggers", Dialect: string(dialect.Redshift)}
}

// GetRoutineCreateScript reconstructs a stored procedure's source from
// Redshift's pg_proc-compatible catalog using the version-specific path
// Redshift requires: unlike upstream PostgreSQL, pg_get_functiondef is not
// reliable across all Redshift releases for PROCEDURE-typed routines, so
// this falls back to reading the procedure body (pronamespace/prosrc)
// directly rather than relying on the admin-function reconstruction
// PostgreSQL exposes.
func (a *Adapter) GetRoutineCreateScript(ctx context.Context, name, routineType string) (string, error) {
	db := a.DB()
	var src string
	query := `SELECT p.prosrc FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE p.proname = $1 AND n.nspname = 'public'`
	if err := db.QueryRowContext(ctx, query, name).Scan(&src); err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE OR REPLACE %s %s AS\n%s", routineType, a.WrapIdentifier(name), src), nil
}

func (a *Adapter) Capabilities() adapter.Features {
	f := a.Adapter.Capabilities()
	f.Triggers = false
	return f
}
