// Package tunnel implements the SSH tunnel supervisor: on demand, it
// opens a local loopback TCP listener that forwards every inbound
// connection to a remote host:port through an authenticated SSH session,
// and rewrites the caller's effective (host, port) to the local endpoint.
package tunnel

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/sqlectron/sqlectron-core/dialect"
)

// EventKind distinguishes the kinds of events a Supervisor emits on its
// Events channel.
type EventKind int

const (
	// EventError is a terminal error: the listener is closed and every
	// in-flight socket is torn down.
	EventError EventKind = iota
)

// Event is sent on a Supervisor's Events channel. It carries no back
// reference to the Session that started the tunnel — the spec calls this
// out explicitly to avoid a pointer cycle — the owning Session is the
// only consumer of this channel and reacts to it itself.
type Event struct {
	Kind EventKind
	Err  error
}

// Supervisor owns one SSH client connection and the local TCP listener
// forwarding to it. It is a shared resource per Session, not per query.
type Supervisor struct {
	Events chan Event

	mu        sync.Mutex
	listener  net.Listener
	sshClient *ssh.Client
	conns     map[net.Conn]struct{}
	closed    bool

	localHost string
	localPort int
}

// New constructs an unstarted Supervisor.
func New() *Supervisor {
	return &Supervisor{
		Events: make(chan Event, 1),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Start dials descriptor.SSH and opens a loopback listener that forwards
// every accepted connection to (descriptor.Host, descriptor.Port) relative
// to the SSH server. It returns the local (host, port) the caller should
// rewrite its connection to target.
func (s *Supervisor) Start(ctx context.Context, descriptor dialect.Descriptor) (string, int, error) {
	if descriptor.SSH == nil {
		return "", 0, fmt.Errorf("tunnel: descriptor has no ssh configuration")
	}

	clientConfig, err := sshClientConfig(descriptor.SSH)
	if err != nil {
		return "", 0, err
	}

	addr := fmt.Sprintf("%s:%d", descriptor.SSH.Host, descriptor.SSH.Port)

	dialer := net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", 0, fmt.Errorf("tunnel: dialing ssh server %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(rawConn, addr, clientConfig)
	if err != nil {
		rawConn.Close()
		return "", 0, fmt.Errorf("tunnel: ssh handshake with %s: %w", addr, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return "", 0, fmt.Errorf("tunnel: opening local listener: %w", err)
	}

	localAddr := listener.Addr().(*net.TCPAddr)

	s.mu.Lock()
	s.sshClient = client
	s.listener = listener
	s.localHost = "127.0.0.1"
	s.localPort = localAddr.Port
	s.mu.Unlock()

	go s.acceptLoop(listener, client, descriptor.Host, descriptor.Port)

	return s.localHost, s.localPort, nil
}

// acceptLoop accepts inbound TCP connections on the local listener and
// forwards each to dstHost:dstPort over the SSH client, until the
// listener is closed or accept fails terminally.
func (s *Supervisor) acceptLoop(listener net.Listener, client *ssh.Client, dstHost string, dstPort int) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.emitError(fmt.Errorf("tunnel: accept failed: %w", err))
			return
		}

		s.trackConn(conn)
		go s.forward(conn, client, dstHost, dstPort)
	}
}

// forward opens a direct-tcpip channel for conn and bidirectionally pipes
// data between them until either side closes.
func (s *Supervisor) forward(conn net.Conn, client *ssh.Client, dstHost string, dstPort int) {
	defer s.untrackConn(conn)
	defer conn.Close()

	channel, err := client.Dial("tcp", fmt.Sprintf("%s:%d", dstHost, dstPort))
	if err != nil {
		s.emitError(fmt.Errorf("tunnel: opening forwarded channel to %s:%d: %w", dstHost, dstPort, err))
		return
	}
	defer channel.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(channel, conn)
	}()
	go func() {
		defer wg.Done()
		io.Copy(conn, channel)
	}()
	wg.Wait()
}

func (s *Supervisor) trackConn(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Supervisor) untrackConn(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Supervisor) emitError(err error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	select {
	case s.Events <- Event{Kind: EventError, Err: err}:
	default:
	}
	s.Close()
}

// Close terminates every tracked inbound socket and the SSH client, and
// closes the listener. It is safe to call more than once.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	var listener net.Listener
	var client *ssh.Client
	conns := s.conns
	s.conns = make(map[net.Conn]struct{})
	listener, s.listener = s.listener, nil
	client, s.sshClient = s.sshClient, nil
	s.mu.Unlock()

	for c := range conns {
		c.Close()
	}

	var firstErr error
	if listener != nil {
		if err := listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if client != nil {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// sshClientConfig builds an ssh.ClientConfig from a dialect SSH
// descriptor, authenticating with password or private key (optionally
// passphrase-protected).
//
// Host key verification is intentionally permissive (InsecureIgnoreHostKey):
// the gateway has no host-key pinning store, matching the teacher's threat
// model of a trusted operator-supplied descriptor rather than an
// adversarial network path.
func sshClientConfig(s *dialect.SSHDescriptor) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	switch {
	case s.PrivateKey != "":
		signer, err := parsePrivateKey(s.PrivateKey, s.Passphrase, s.Password)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	case s.Password != "":
		auth = append(auth, ssh.Password(s.Password))
	default:
		return nil, fmt.Errorf("tunnel: ssh descriptor has neither password nor private key")
	}

	return &ssh.ClientConfig{
		User:            s.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func parsePrivateKey(pemKey string, hasPassphrase bool, passphrase string) (ssh.Signer, error) {
	if hasPassphrase {
		signer, err := ssh.ParsePrivateKeyWithPassphrase([]byte(pemKey), []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("tunnel: parsing passphrase-protected private key: %w", err)
		}
		return signer, nil
	}

	signer, err := ssh.ParsePrivateKey([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("tunnel: parsing private key: %w", err)
	}
	return signer, nil
}

// LocalAddr returns the currently bound local (host, port) once Start has
// succeeded.
func (s *Supervisor) LocalAddr() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localHost, s.localPort
}
