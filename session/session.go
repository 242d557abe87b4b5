// Package session owns one server descriptor's live state: the SSH
// tunnel (if configured), and a map of database name to Connection. It
// mirrors the teacher's MCPServer lifecycle (open pool, probe, enforce,
// close) generalized from one static connection to a lazily-constructed
// set, one per database a caller asks for.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sqlectron/sqlectron-core/adapter"
	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/registry"
	"github.com/sqlectron/sqlectron-core/tunnel"
	"github.com/sqlectron/sqlectron-core/version"
)

// Connection is one adapter bound to one database within a Session, with
// the version probed at construction time.
type Connection struct {
	Name    string
	Adapter adapter.Adapter
	Version version.Info
}

// Session owns a server descriptor, its optional SSH tunnel, and every
// Connection opened against it so far.
type Session struct {
	logger     *slog.Logger
	descriptor dialect.Descriptor

	mu          sync.Mutex
	plaintext   *dialect.Descriptor
	tunnel      *tunnel.Supervisor
	effHost     string
	effPort     int
	connections map[string]*Connection
	gates       map[string]*connectGate
}

// connectGate serializes concurrent CreateConnection calls for the same
// database name: the first caller performs the real connect, every other
// concurrent caller waits on done and reuses its outcome. This realizes
// spec.md §4.6's "idempotent under concurrent calls" requirement without a
// global per-Session lock held across the connect I/O.
type connectGate struct {
	done chan struct{}
	conn *Connection
	err  error
}

// New constructs a Session bound to descriptor, as stored (secrets may be
// ciphertext if descriptor.Encrypted is true — CreateConnection's vaultKey
// decrypts them on first use).
func New(logger *slog.Logger, descriptor dialect.Descriptor) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		logger:      logger,
		descriptor:  descriptor,
		effHost:     descriptor.Host,
		effPort:     descriptor.Port,
		connections: make(map[string]*Connection),
		gates:       make(map[string]*connectGate),
	}
}

// DB returns the already-open connection named name, if any.
func (s *Session) DB(name string) (*Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[name]
	return c, ok
}

// CreateConnection lazily constructs and memoizes a Connection for
// database name, decrypting the session's descriptor under vaultKey on
// first use. Concurrent calls for the same name share one underlying
// connect attempt.
func (s *Session) CreateConnection(ctx context.Context, name, vaultKey string) (*Connection, error) {
	s.mu.Lock()
	if c, ok := s.connections[name]; ok {
		s.mu.Unlock()
		return c, nil
	}
	if g, ok := s.gates[name]; ok {
		s.mu.Unlock()
		<-g.done
		return g.conn, g.err
	}
	g := &connectGate{done: make(chan struct{})}
	s.gates[name] = g
	s.mu.Unlock()

	conn, err := s.connect(ctx, name, vaultKey)

	s.mu.Lock()
	g.conn, g.err = conn, err
	if err == nil {
		s.connections[name] = conn
	}
	delete(s.gates, name)
	s.mu.Unlock()
	close(g.done)

	return conn, err
}

// plaintextDescriptor decrypts the session's descriptor under vaultKey
// once and caches the result; it is a no-op decrypt (and no cache miss
// cost) for descriptors that were never encrypted.
func (s *Session) plaintextDescriptor(vaultKey string) (dialect.Descriptor, error) {
	s.mu.Lock()
	if s.plaintext != nil {
		d := *s.plaintext
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	d, err := registry.DecryptSecretsOf(s.descriptor, vaultKey)
	if err != nil {
		return dialect.Descriptor{}, err
	}

	s.mu.Lock()
	s.plaintext = &d
	s.mu.Unlock()

	return d, nil
}

// connect performs the actual construction steps per spec.md §4.6: start
// the tunnel if configured and not already started, rewrite host/port,
// call the adapter's Connect, then wrap the result.
func (s *Session) connect(ctx context.Context, name, vaultKey string) (*Connection, error) {
	plain, err := s.plaintextDescriptor(vaultKey)
	if err != nil {
		return nil, err
	}

	host, port, err := s.ensureTunnel(ctx, plain)
	if err != nil {
		return nil, err
	}

	a, err := adapter.New(plain.Client)
	if err != nil {
		return nil, err
	}

	effective := plain.Clone()
	if plain.SSH != nil {
		effective.Host = host
		effective.Port = port
	}

	s.logger.Debug("connecting", "dialect", plain.Client, "database", name, "host", effective.Host, "port", effective.Port)

	info, err := a.Connect(ctx, effective, name)
	if err != nil {
		return nil, err
	}

	return &Connection{Name: name, Adapter: a, Version: info}, nil
}

// ensureTunnel starts the SSH tunnel on first use and returns the
// effective (host, port) a Connection should target: the tunnel's local
// endpoint if SSH is configured, otherwise the descriptor's own.
func (s *Session) ensureTunnel(ctx context.Context, plain dialect.Descriptor) (string, int, error) {
	if plain.SSH == nil {
		return plain.Host, plain.Port, nil
	}

	s.mu.Lock()
	if s.tunnel != nil {
		host, port := s.effHost, s.effPort
		s.mu.Unlock()
		return host, port, nil
	}
	sup := tunnel.New()
	s.mu.Unlock()

	host, port, err := sup.Start(ctx, plain)
	if err != nil {
		return "", 0, err
	}

	s.mu.Lock()
	s.tunnel = sup
	s.effHost, s.effPort = host, port
	s.mu.Unlock()

	go s.watchTunnel(sup)

	return host, port, nil
}

// watchTunnel logs a terminal tunnel failure. The tunnel never holds a
// pointer back to the Session; this goroutine is the only consumer of its
// event channel.
func (s *Session) watchTunnel(sup *tunnel.Supervisor) {
	ev, ok := <-sup.Events
	if !ok {
		return
	}
	s.logger.Error("ssh tunnel failed", "err", ev.Err)
}

// End disconnects every open connection and closes the tunnel, collecting
// every sub-error rather than stopping at the first.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	conns := s.connections
	s.connections = make(map[string]*Connection)
	sup := s.tunnel
	s.tunnel = nil
	s.mu.Unlock()

	var errs []error
	for name, c := range conns {
		if err := c.Adapter.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnecting %q: %w", name, err))
		}
	}
	if sup != nil {
		if err := sup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing tunnel: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Descriptor returns the server descriptor this Session was built from.
func (s *Session) Descriptor() dialect.Descriptor {
	return s.descriptor
}
