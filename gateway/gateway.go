// Package gateway is the top-level facade: given a server descriptor, it
// validates the dialect against the adapter registry and hands back a
// Builder that defers all network I/O until the caller explicitly asks
// for a connection.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/session"
)

// Gateway constructs Sessions for server descriptors, sharing one logger
// across every Session and Connection it builds.
type Gateway struct {
	logger *slog.Logger
}

// New constructs a Gateway. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{logger: logger}
}

// Builder defers opening any connection until Connect is called, per
// spec.md §4.7: "no network I/O occurs until connect() is called."
type Builder struct {
	logger     *slog.Logger
	descriptor dialect.Descriptor
}

// Connect constructs the underlying Session. It performs no I/O itself —
// a Session only dials out when CreateConnection is first called for a
// given database.
func (b *Builder) Connect(ctx context.Context) (*session.Session, error) {
	return session.New(b.logger, b.descriptor), nil
}

// CreateServer validates d.Client against the adapter registry and
// returns a Builder for it. Returning an error here, synchronously and
// before any I/O, is what lets callers fail fast on a typo'd dialect key
// without ever touching the network.
func (g *Gateway) CreateServer(d dialect.Descriptor) (*Builder, error) {
	if !dialect.IsSupported(d.Client) {
		return nil, fmt.Errorf("gateway: unsupported dialect %q", d.Client)
	}
	if !adapter.Registered(d.Client) {
		return nil, fmt.Errorf("gateway: no adapter registered for dialect %q", d.Client)
	}

	return &Builder{logger: g.logger, descriptor: d}, nil
}
