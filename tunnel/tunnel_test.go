package tunnel

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/sqlectron/sqlectron-core/dialect"
)

// directTCPIPRequest mirrors the RFC 4254 §7.2 "direct-tcpip" channel
// open payload so the test SSH server can parse where to forward to.
type directTCPIPRequest struct {
	DstHost string
	DstPort uint32
	SrcHost string
	SrcPort uint32
}

// startEchoServer starts a plain TCP server that echoes back whatever it
// receives, simulating the real database/remote endpoint the tunnel
// forwards to.
func startEchoServer(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("starting echo server: %v", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c)
			}(conn)
		}
	}()

	return ln
}

// startTestSSHServer starts a minimal SSH server accepting password auth
// and forwarding "direct-tcpip" channels to whatever address the client
// requests, simulating the remote SSH bastion the Supervisor tunnels
// through.
func startTestSSHServer(t *testing.T, user, password string) (addr string, stop func()) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("building signer: %v", err)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if conn.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("authentication failed")
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("starting ssh listener: %v", err)
	}

	go func() {
		for {
			rawConn, err := ln.Accept()
			if err != nil {
				return
			}
			go handleSSHConn(rawConn, config)
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func handleSSHConn(rawConn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(rawConn, config)
	if err != nil {
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "direct-tcpip" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}

		var req directTCPIPRequest
		if err := ssh.Unmarshal(newChannel.ExtraData(), &req); err != nil {
			newChannel.Reject(ssh.ConnectionFailed, "malformed request")
			continue
		}

		target, err := net.Dial("tcp", fmt.Sprintf("%s:%d", req.DstHost, req.DstPort))
		if err != nil {
			newChannel.Reject(ssh.ConnectionFailed, "dial failed")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			target.Close()
			continue
		}
		go ssh.DiscardRequests(requests)

		go func() {
			defer channel.Close()
			defer target.Close()
			done := make(chan struct{}, 2)
			go func() { io.Copy(target, channel); done <- struct{}{} }()
			go func() { io.Copy(channel, target); done <- struct{}{} }()
			<-done
		}()
	}
}

func TestSupervisor_StartForwardsTrafficToDestination(t *testing.T) {
	echo := startEchoServer(t)
	defer echo.Close()
	echoAddr := echo.Addr().(*net.TCPAddr)

	sshAddr, stopSSH := startTestSSHServer(t, "tunneluser", "tunnelpass")
	defer stopSSH()

	sshHost, sshPortStr, err := net.SplitHostPort(sshAddr)
	if err != nil {
		t.Fatal(err)
	}
	var sshPort int
	fmt.Sscanf(sshPortStr, "%d", &sshPort)

	descriptor := dialect.Descriptor{
		Host: "127.0.0.1",
		Port: echoAddr.Port,
		SSH: &dialect.SSHDescriptor{
			Host:     sshHost,
			Port:     sshPort,
			User:     "tunneluser",
			Password: "tunnelpass",
		},
	}

	sup := New()
	defer sup.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	localHost, localPort, err := sup.Start(ctx, descriptor)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if localHost != "127.0.0.1" {
		t.Errorf("expected loopback local host, got %q", localHost)
	}
	if localPort == 0 {
		t.Error("expected a non-zero assigned local port")
	}

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", localHost, localPort), 3*time.Second)
	if err != nil {
		t.Fatalf("dialing tunnel entrance: %v", err)
	}
	defer conn.Close()

	payload := []byte("hello through the tunnel")
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("writing payload: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("reading echoed payload: %v", err)
	}

	if string(buf) != string(payload) {
		t.Errorf("got %q, want %q", buf, payload)
	}
}

func TestSupervisor_StartRequiresSSHDescriptor(t *testing.T) {
	sup := New()
	_, _, err := sup.Start(context.Background(), dialect.Descriptor{})
	if err == nil {
		t.Fatal("expected an error when descriptor has no SSH configuration")
	}
}

func TestSupervisor_CloseIsIdempotent(t *testing.T) {
	sup := New()
	if err := sup.Close(); err != nil {
		t.Fatalf("unexpected error closing an unstarted supervisor: %v", err)
	}
	if err := sup.Close(); err != nil {
		t.Fatalf("expected a second Close to be a no-op, got %v", err)
	}
}
