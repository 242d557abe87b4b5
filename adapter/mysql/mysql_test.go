package mysql

import (
	"testing"

	"github.com/sqlectron/sqlectron-core/adapter"
)

func TestWrapIdentifier_UsesBackticks(t *testing.T) {
	a := New()
	if got := a.WrapIdentifier("users"); got != "`users`" {
		t.Errorf("got %q, want %q", got, "`users`")
	}
	if got := a.WrapIdentifier("*"); got != "*" {
		t.Errorf("expected * to pass through, got %q", got)
	}
}

func TestGetQuerySelectTop_DefaultsLimitTo1000(t *testing.T) {
	a := New()
	got, err := a.GetQuerySelectTop("users", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT * FROM `users` LIMIT 1000"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGetTableInsertScript_UsesQuestionMarkPlaceholders(t *testing.T) {
	a := New()
	got, err := a.GetTableInsertScript("users", []string{"name", "email"})
	if err != nil {
		t.Fatal(err)
	}
	want := "INSERT INTO `users` (`name`, `email`)\nVALUES (?, ?)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildSelectScript_EnumeratesColumns(t *testing.T) {
	a := New()
	cols := []adapter.Column{{Name: "name"}, {Name: "email"}}
	got := buildSelectScript(a, cols, "users")
	want := "SELECT `name`, `email` FROM `users`;"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCapabilities_NoSchemaQualifiedTables(t *testing.T) {
	a := New()
	f := a.Capabilities()
	if f.SchemaQualifiedTables {
		t.Error("expected MySQL to not support schema-qualified table listing")
	}
	if !f.Triggers || !f.Routines || !f.MultiStatementBatch || !f.Cancellation {
		t.Errorf("expected MySQL's other features enabled, got %+v", f)
	}
	if f.LimitKeyword != "LIMIT" {
		t.Errorf("got limit keyword %q, want LIMIT", f.LimitKeyword)
	}
}
