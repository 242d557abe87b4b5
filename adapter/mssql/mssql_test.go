package mssql

import (
	"testing"

	"github.com/sqlectron/sqlectron-core/adapter"
)

func TestWrapIdentifier_UsesSquareBrackets(t *testing.T) {
	a := New()
	if got := a.WrapIdentifier("users"); got != "[users]" {
		t.Errorf("got %q, want %q", got, "[users]")
	}
	if got := a.WrapIdentifier("*"); got != "*" {
		t.Errorf("expected * to pass through, got %q", got)
	}
}

func TestGetQuerySelectTop_UsesTopNotLimit(t *testing.T) {
	a := New()
	got, err := a.GetQuerySelectTop("users", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT TOP 1000 * FROM [users]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCapabilities_CollapsesBatchResults(t *testing.T) {
	a := New()
	f := a.Capabilities()
	if !f.CollapsesBatchResults {
		t.Error("expected SQL Server to report CollapsesBatchResults")
	}
	if f.LimitKeyword != "TOP" {
		t.Errorf("got limit keyword %q, want TOP", f.LimitKeyword)
	}
}

func TestBuildSelectScript_EnumeratesColumnsWithSchema(t *testing.T) {
	a := New()
	cols := []adapter.Column{
		{Name: "id"}, {Name: "username"}, {Name: "email"},
		{Name: "password"}, {Name: "role_id"}, {Name: "createdat"},
	}
	got := buildSelectScript(a, cols, "users", "public")
	want := "SELECT [id], [username], [email], [password], [role_id], [createdat] FROM [public].[users];"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildSelectScript_NoSchemaOmitsQualifier(t *testing.T) {
	a := New()
	got := buildSelectScript(a, []adapter.Column{{Name: "id"}}, "users", "")
	want := "SELECT [id] FROM [users];"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseMSSQLVersionNumber(t *testing.T) {
	banner := "Microsoft SQL Server 2019 (RTM) - 15.0.2000.5 (X64)"
	got := parseMSSQLVersionNumber(banner)
	if got != "2019" {
		t.Errorf("got %q, want %q", got, "2019")
	}
}
