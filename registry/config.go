package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sqlectron/sqlectron-core/dialect"
)

// document is the on-disk shape of sqlectron.json.
type document struct {
	Servers []dialect.Descriptor `json:"servers"`
}

// configPathOnce caches the resolved config file path, initialized once
// and never reassigned, per the spec's process-singleton note.
var (
	configPathOnce sync.Once
	configPathVal  string
	configPathErr  error
)

const legacyConfigFileName = ".sqlectron.json"
const configDirName = "sqlectron"
const configFileName = "sqlectron.json"

// ConfigPath resolves the location of the persisted server-registry file:
// the legacy "~/.sqlectron.json" if it already exists, otherwise the
// platform configuration directory's "sqlectron/sqlectron.json".
func ConfigPath() (string, error) {
	configPathOnce.Do(func() {
		configPathVal, configPathErr = resolveConfigPath()
	})
	return configPathVal, configPathErr
}

func resolveConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("registry: resolving home directory: %w", err)
	}

	legacy := filepath.Join(home, legacyConfigFileName)
	if _, err := os.Stat(legacy); err == nil {
		return legacy, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("registry: resolving config directory: %w", err)
	}

	return filepath.Join(configDir, configDirName, configFileName), nil
}

// readDocument loads the document at path, creating an empty one (and its
// parent directory) if the file does not yet exist.
func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return document{}, fmt.Errorf("registry: creating config directory: %w", mkErr)
		}
		empty := document{Servers: []dialect.Descriptor{}}
		if writeErr := writeDocument(path, empty); writeErr != nil {
			return document{}, writeErr
		}
		return empty, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("registry: reading %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("registry: parsing %s: %w", path, err)
	}
	if doc.Servers == nil {
		doc.Servers = []dialect.Descriptor{}
	}
	return doc, nil
}

// writeDocument persists doc as 2-space-indented JSON. Both the async
// (goroutine-friendly, but Go has no true async file I/O so this is the
// same call) and sync entry points in registry.go funnel through this one
// function so their output is always byte-identical.
func writeDocument(path string, doc document) error {
	if doc.Servers == nil {
		doc.Servers = []dialect.Descriptor{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("registry: creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("registry: writing %s: %w", path, err)
	}
	return nil
}
