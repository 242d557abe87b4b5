package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// config holds process-level settings independent of the server-registry
// JSON file (which has its own persisted format under package registry).
type config struct {
	PoolSize        int
	DefaultRowLimit int
	VaultKey        string
	ConnectTimeout  time.Duration
	LogLevel        string
}

// loadConfig reads settings from the environment (SQLECTRON_ prefix) and
// an optional sqlectrond.yaml in the working directory, grounded on
// joestump-joe-links' internal/config viper-loading shape.
func loadConfig() (*config, error) {
	v := viper.New()
	v.SetEnvPrefix("SQLECTRON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("sqlectrond")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	v.SetDefault("pool.size", 5)
	v.SetDefault("query.default_row_limit", 1000)
	v.SetDefault("connect.timeout", "10s")
	v.SetDefault("log.level", "info")

	timeout, err := time.ParseDuration(v.GetString("connect.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid SQLECTRON_CONNECT_TIMEOUT: %w", err)
	}

	cfg := &config{
		PoolSize:        v.GetInt("pool.size"),
		DefaultRowLimit: v.GetInt("query.default_row_limit"),
		VaultKey:        v.GetString("vault.key"),
		ConnectTimeout:  timeout,
		LogLevel:        v.GetString("log.level"),
	}

	if cfg.VaultKey == "" {
		return nil, fmt.Errorf("SQLECTRON_VAULT_KEY is required")
	}

	return cfg, nil
}

func (c *config) slogLevel() string {
	return strings.ToLower(c.LogLevel)
}
