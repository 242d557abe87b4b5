package gateway

import (
	"context"
	"testing"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/dialect"
)

func TestCreateServer_RejectsUnsupportedDialect(t *testing.T) {
	g := New(nil)
	_, err := g.CreateServer(dialect.Descriptor{Client: dialect.Key("not-a-real-dialect")})
	if err == nil {
		t.Fatal("expected an error for an unsupported dialect key")
	}
}

func TestCreateServer_RejectsSupportedButUnregisteredDialect(t *testing.T) {
	// sqlite is a real dialect.Key, but only registered once the
	// adapter/sqlite package's init() has run, which this test
	// deliberately never imports.
	g := New(nil)
	if adapter.Registered(dialect.SQLite) {
		t.Skip("sqlite adapter already registered by another test in this binary")
	}
	_, err := g.CreateServer(dialect.Descriptor{Client: dialect.SQLite})
	if err == nil {
		t.Fatal("expected an error for a dialect with no registered adapter")
	}
}

func TestCreateServer_SucceedsForRegisteredDialect(t *testing.T) {
	key := dialect.Key("gateway-test-fake")
	dialect.CLIENTS[key] = dialect.Client{Key: key, Name: "Fake"}
	defer delete(dialect.CLIENTS, key)

	adapter.Register(key, func() adapter.Adapter { return nil })

	g := New(nil)
	builder, err := g.CreateServer(dialect.Descriptor{Client: key})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if builder == nil {
		t.Fatal("expected a non-nil Builder")
	}
}

func TestBuilder_ConnectDefersSessionConstruction(t *testing.T) {
	key := dialect.Key("gateway-test-fake-connect")
	dialect.CLIENTS[key] = dialect.Client{Key: key, Name: "Fake"}
	defer delete(dialect.CLIENTS, key)

	adapter.Register(key, func() adapter.Adapter { return nil })

	g := New(nil)
	builder, err := g.CreateServer(dialect.Descriptor{Client: key})
	if err != nil {
		t.Fatal(err)
	}

	sess, err := builder.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess == nil {
		t.Fatal("expected a non-nil Session")
	}
}
