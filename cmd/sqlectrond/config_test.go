package main

import (
	"os"
	"testing"
)

func TestLoadConfig_RequiresVaultKey(t *testing.T) {
	os.Unsetenv("SQLECTRON_VAULT_KEY")
	if _, err := loadConfig(); err == nil {
		t.Error("expected an error when SQLECTRON_VAULT_KEY is unset")
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	os.Setenv("SQLECTRON_VAULT_KEY", "test-key")
	defer os.Unsetenv("SQLECTRON_VAULT_KEY")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PoolSize != 5 {
		t.Errorf("got pool size %d, want 5", cfg.PoolSize)
	}
	if cfg.DefaultRowLimit != 1000 {
		t.Errorf("got default row limit %d, want 1000", cfg.DefaultRowLimit)
	}
	if cfg.slogLevel() != "info" {
		t.Errorf("got log level %q, want info", cfg.slogLevel())
	}
}
