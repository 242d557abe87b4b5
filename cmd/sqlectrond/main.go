// Command sqlectrond is a thin process entrypoint: it loads config,
// opens the server registry, and wires a Gateway. It is not a
// query-facing CLI — command framing is out of scope for this module —
// it exists so the library can be exercised end to end from a process
// rather than only from tests.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/sqlectron/sqlectron-core/adapter/cassandra"
	_ "github.com/sqlectron/sqlectron-core/adapter/mssql"
	_ "github.com/sqlectron/sqlectron-core/adapter/mysql"
	_ "github.com/sqlectron/sqlectron-core/adapter/postgres"
	_ "github.com/sqlectron/sqlectron-core/adapter/redshift"
	_ "github.com/sqlectron/sqlectron-core/adapter/sqlite"

	"github.com/sqlectron/sqlectron-core/gateway"
	"github.com/sqlectron/sqlectron-core/registry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.slogLevel())
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	reg, err := registry.OpenDefault()
	if err != nil {
		return fmt.Errorf("opening server registry: %w", err)
	}
	if err := reg.Prepare(cfg.VaultKey); err != nil {
		return fmt.Errorf("preparing server registry: %w", err)
	}

	gw := gateway.New(logger)

	servers := reg.GetAll()
	for _, d := range servers {
		if _, err := gw.CreateServer(d); err != nil {
			logger.Warn("skipping server with unsupported dialect", "server", d.Name, "dialect", d.Client, "err", err)
			continue
		}
		logger.Info("server validated", "server", d.Name, "dialect", d.Client)
	}

	logger.Info("sqlectrond ready", "servers", len(servers))

	<-ctx.Done()
	logger.Info("shutting down")

	return nil
}

// newLogger builds a log/slog text handler writing to stderr, parsing
// level the same way every other package in this module expects
// (case-insensitive "debug"/"info"/"warn"/"error").
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
