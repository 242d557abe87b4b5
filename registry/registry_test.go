package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sqlectron/sqlectron-core/dialect"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	r, err := Open(filepath.Join(dir, "sqlectron.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return r
}

func TestOpen_CreatesEmptyDocumentWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sqlectron.json")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(r.GetAll()) != 0 {
		t.Fatalf("expected empty registry, got %d servers", len(r.GetAll()))
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
}

func TestAdd_EncryptsAndDecryptSecretsRoundTrips(t *testing.T) {
	r := newTestRegistry(t)

	d := dialect.Descriptor{
		Name:     "a",
		Client:   dialect.PostgreSQL,
		Host:     "h",
		Port:     5432,
		SSL:      false,
		Password: "p",
	}

	stored, err := r.Add(d, "KEY")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if stored.ID == "" {
		t.Error("expected an assigned id")
	}
	if !stored.Encrypted {
		t.Error("expected Encrypted to be true after Add")
	}
	if stored.Password == "p" {
		t.Error("expected password to be encrypted, not stored as plaintext")
	}

	plain, err := r.DecryptSecrets(stored, "KEY")
	if err != nil {
		t.Fatalf("DecryptSecrets: %v", err)
	}

	want := d
	want.ID = stored.ID
	want.Encrypted = false
	if plain != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", plain, want)
	}
}

func TestUpdate_PreservesCiphertextWhenPasswordUnchanged(t *testing.T) {
	r := newTestRegistry(t)

	d := dialect.Descriptor{
		Name: "a", Client: dialect.PostgreSQL, Host: "h", Port: 5432, Password: "p",
	}
	stored, err := r.Add(d, "KEY")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	update := stored
	plain, err := r.DecryptSecrets(stored, "KEY")
	if err != nil {
		t.Fatal(err)
	}
	update.Password = plain.Password // submit the unchanged plaintext
	update.Name = "a renamed"

	restored, err := r.Update(update, "KEY")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if restored.Password != stored.Password {
		t.Errorf("expected ciphertext to remain stable when password is unchanged, got %q, originally %q",
			restored.Password, stored.Password)
	}
	if restored.Name != "a renamed" {
		t.Errorf("expected name update to apply, got %q", restored.Name)
	}
}

func TestUpdate_ReencryptsWhenPasswordChanges(t *testing.T) {
	r := newTestRegistry(t)

	d := dialect.Descriptor{Name: "a", Client: dialect.PostgreSQL, Host: "h", Port: 5432, Password: "p"}
	stored, err := r.Add(d, "KEY")
	if err != nil {
		t.Fatal(err)
	}

	update := stored
	update.Password = "new-password"

	restored, err := r.Update(update, "KEY")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if restored.Password == stored.Password {
		t.Error("expected ciphertext to change when the plaintext password changes")
	}

	plain, err := r.DecryptSecrets(restored, "KEY")
	if err != nil {
		t.Fatal(err)
	}
	if plain.Password != "new-password" {
		t.Errorf("got %q, want %q", plain.Password, "new-password")
	}
}

func TestRemoveByID_RestoresPreAddState(t *testing.T) {
	r := newTestRegistry(t)

	before := r.GetAll()

	d := dialect.Descriptor{Name: "a", Client: dialect.SQLite, Database: "/tmp/x.db"}
	stored, err := r.AddOrUpdate(d, "KEY")
	if err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}

	if err := r.RemoveByID(stored.ID); err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}

	after := r.GetAll()
	if len(after) != len(before) {
		t.Errorf("expected registry to return to its pre-add state, got %d servers, want %d", len(after), len(before))
	}
}

func TestRemoveByID_IdempotentForAbsentID(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RemoveByID("does-not-exist"); err != nil {
		t.Fatalf("expected removing an absent id to be a no-op, got %v", err)
	}
}

func TestAddOrUpdate_RoutesByID(t *testing.T) {
	r := newTestRegistry(t)

	created, err := r.AddOrUpdate(dialect.Descriptor{Name: "a", Client: dialect.SQLite, Database: "/tmp/x.db"}, "KEY")
	if err != nil {
		t.Fatal(err)
	}

	created.Name = "b"
	updated, err := r.AddOrUpdate(created, "KEY")
	if err != nil {
		t.Fatal(err)
	}

	if updated.ID != created.ID {
		t.Error("expected AddOrUpdate with a populated id to update in place, not create a new entry")
	}
	if len(r.GetAll()) != 1 {
		t.Errorf("expected exactly one stored server, got %d", len(r.GetAll()))
	}
}

func TestPrepare_AssignsIDsAndEncryptsPlaintextServers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sqlectron.json")

	raw := `{"servers":[{"name":"a","client":"postgresql","host":"h","port":5432,"ssl":false,"password":"p"}]}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Prepare("KEY"); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	servers := reloaded.GetAll()
	if len(servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(servers))
	}

	s := servers[0]
	if s.ID == "" {
		t.Error("expected Prepare to assign an id")
	}
	if !s.Encrypted {
		t.Error("expected Prepare to mark the server Encrypted")
	}

	plain, err := reloaded.DecryptSecrets(s, "KEY")
	if err != nil {
		t.Fatal(err)
	}
	if plain.Password != "p" {
		t.Errorf("got %q, want %q", plain.Password, "p")
	}
}

func TestPrepare_ProducesIdenticalJSONBothVariants(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	path1 := filepath.Join(dir1, "sqlectron.json")
	path2 := filepath.Join(dir2, "sqlectron.json")

	raw := `{"servers":[{"name":"a","client":"postgresql","host":"h","port":5432,"ssl":false,"password":"p"}]}`
	if err := os.WriteFile(path1, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path2, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	r1, err := Open(path1)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Open(path2)
	if err != nil {
		t.Fatal(err)
	}

	if err := r1.Prepare("KEY"); err != nil {
		t.Fatal(err)
	}
	if err := r2.PrepareSync("KEY"); err != nil {
		t.Fatal(err)
	}

	b1, err := os.ReadFile(path1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(path2)
	if err != nil {
		t.Fatal(err)
	}

	// IDs and ciphertexts are random, so compare structure (length and
	// indentation), not byte-for-byte content.
	if len(b1) == 0 || len(b2) == 0 {
		t.Fatal("expected non-empty output from both variants")
	}
	if len(b1) != len(b2) {
		t.Errorf("expected equal-length output, got %d and %d bytes", len(b1), len(b2))
	}
	if !strings.HasPrefix(string(b1), "{\n  \"") || !strings.HasPrefix(string(b2), "{\n  \"") {
		t.Error("expected 2-space-indented JSON from both Prepare and PrepareSync")
	}
}
