package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/apperrors"
)

func TestWrapIdentifier_UsesDoubleQuotes(t *testing.T) {
	a := New()
	if got := a.WrapIdentifier("users"); got != `"users"` {
		t.Errorf("got %q, want %q", got, `"users"`)
	}
}

func TestQuoteLiteral_DoublesEmbeddedQuote(t *testing.T) {
	if got := quoteLiteral("o'brien"); got != "'o''brien'" {
		t.Errorf("got %q, want %q", got, "'o''brien'")
	}
}

func TestListSchemas_IsNotSupported(t *testing.T) {
	a := New()
	_, err := a.ListSchemas(context.Background(), "")

	var notSupported *apperrors.NotSupportedError
	if !errors.As(err, &notSupported) {
		t.Fatalf("expected NotSupportedError, got %v", err)
	}
}

func TestGetRoutineCreateScript_IsNotSupported(t *testing.T) {
	a := New()
	_, err := a.GetRoutineCreateScript(context.Background(), "anything", "FUNCTION")

	var notSupported *apperrors.NotSupportedError
	if !errors.As(err, &notSupported) {
		t.Fatalf("expected NotSupportedError, got %v", err)
	}
}

func TestListRoutines_ReturnsEmptyNotError(t *testing.T) {
	a := New()
	routines, err := a.ListRoutines(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(routines) != 0 {
		t.Errorf("expected no routines, got %d", len(routines))
	}
}

func TestGetQuerySelectTop_DefaultsLimitTo1000(t *testing.T) {
	a := New()
	got, err := a.GetQuerySelectTop("users", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT * FROM "users" LIMIT 1000`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildSelectScript_EnumeratesColumns(t *testing.T) {
	a := New()
	cols := []adapter.Column{{Name: "id"}, {Name: "name"}}
	got := buildSelectScript(a, cols, "users")
	want := `SELECT "id", "name" FROM "users";`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCapabilities_NoRoutinesNoSchemaQualifiedTables(t *testing.T) {
	a := New()
	f := a.Capabilities()
	if f.Routines {
		t.Error("expected SQLite to report Routines unsupported")
	}
	if f.SchemaQualifiedTables {
		t.Error("expected SQLite to report no schema-qualified tables")
	}
	if !f.Triggers || !f.MultiStatementBatch || !f.Cancellation {
		t.Errorf("expected SQLite's other features enabled, got %+v", f)
	}
}
