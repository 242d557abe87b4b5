package statement

import "testing"

func TestSplit_Empty(t *testing.T) {
	if got := Split(""); len(got) != 0 {
		t.Errorf("expected empty input to yield no statements, got %v", got)
	}
	if got := Split("   ;  ; "); len(got) != 0 {
		t.Errorf("expected all-whitespace/semicolon input to yield no statements, got %v", got)
	}
}

func TestSplit_Classification(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []Type
	}{
		{"select", "SELECT * FROM users", []Type{Select}},
		{"lowercase select", "select * from users", []Type{Select}},
		{"insert", "INSERT INTO users (id) VALUES (1)", []Type{Insert}},
		{"update", "UPDATE users SET id = 1", []Type{Update}},
		{"delete", "DELETE FROM users", []Type{Delete}},
		{"create database", "CREATE DATABASE foo", []Type{CreateDatabase}},
		{"drop database", "DROP DATABASE foo", []Type{DropDatabase}},
		{"create table", "CREATE TABLE foo (id INT)", []Type{CreateTable}},
		{"create view", "CREATE VIEW v AS SELECT 1", []Type{CreateView}},
		{"create or replace view", "CREATE OR REPLACE VIEW v AS SELECT 1", []Type{CreateView}},
		{"create trigger", "CREATE TRIGGER t BEFORE INSERT ON foo", []Type{CreateTrigger}},
		{"explain", "EXPLAIN SELECT * FROM users", []Type{Explain}},
		{"cte select", "WITH x AS (SELECT 1) SELECT * FROM x", []Type{Select}},
		{"unknown", "VACUUM foo", []Type{Unknown}},
		{
			"multi statement",
			"INSERT INTO users (id) VALUES (1); INSERT INTO roles (id) VALUES (1);",
			[]Type{Insert, Insert},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Split(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d statements, want %d: %+v", len(got), len(tc.want), got)
			}
			for i, w := range tc.want {
				if got[i].Type != w {
					t.Errorf("statement %d: got type %s, want %s", i, got[i].Type, w)
				}
			}
		})
	}
}

func TestSplit_StripsCommentsBeforeClassifying(t *testing.T) {
	text := "-- a leading comment\nSELECT * FROM users"
	got := Split(text)
	if len(got) != 1 || got[0].Type != Select {
		t.Fatalf("expected a single SELECT statement, got %+v", got)
	}
}

func TestSplit_SemicolonInsideStringIsNotASeparator(t *testing.T) {
	text := "SELECT 'a;b' AS x; SELECT 1"
	got := Split(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %+v", len(got), got)
	}
	if got[0].Type != Select || got[1].Type != Select {
		t.Errorf("expected both statements to classify as SELECT, got %+v", got)
	}
}

func TestSplit_BlockCommentInsideStatement(t *testing.T) {
	text := "SELECT /* inline */ 1 FROM users"
	got := Split(text)
	if len(got) != 1 || got[0].Type != Select {
		t.Fatalf("expected a single SELECT statement, got %+v", got)
	}
}

func TestReconcileUnknown(t *testing.T) {
	if got := ReconcileUnknown(Unknown, true); got != Select {
		t.Errorf("expected UNKNOWN with rows to reconcile to SELECT, got %s", got)
	}
	if got := ReconcileUnknown(Unknown, false); got != Unknown {
		t.Errorf("expected UNKNOWN without rows to remain UNKNOWN, got %s", got)
	}
	if got := ReconcileUnknown(Insert, true); got != Insert {
		t.Errorf("expected non-UNKNOWN type to pass through unchanged, got %s", got)
	}
}
