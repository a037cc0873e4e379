package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// DefaultDir returns ~/.pocfinder, the root of all local state.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".pocfinder"), nil
}

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in a TOML file. Values are held flattened to
// dot-notation keys ("retrieval.top_k") and nested back into tables on
// save; arrays of tables such as [[providers]] stay whole.
type ConfigStore struct {
	*memory.ConfigStore

	writeMu sync.Mutex
	path    string
}

// NewConfigStore opens config.toml in configDir, or in DefaultDir when
// configDir is empty.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	return NewConfigStoreAt(filepath.Join(configDir, "config.toml"))
}

// NewConfigStoreAt opens the TOML file at path, creating its directory.
// A missing file yields an empty store.
func NewConfigStoreAt(path string) (*ConfigStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	s := &ConfigStore{ConfigStore: memory.NewConfigStore(nil), path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set stores value under key and writes the file.
func (s *ConfigStore) Set(key string, value any) error {
	if err := s.ConfigStore.Set(key, value); err != nil {
		return err
	}
	return s.Save()
}

// Save writes all values to the file with owner-only permissions. The file
// is replaced atomically.
func (s *ConfigStore) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := toml.Marshal(nest(s.Snapshot()))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load re-reads the file, discarding unsaved values.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	flat := make(map[string]any)
	flatten(tree, "", flat)
	s.Replace(flat)
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}

func flatten(tree map[string]any, prefix string, out map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(sub, k, out)
			continue
		}
		out[k] = v
	}
}

// nest is the inverse of flatten. A scalar that collides with a table
// prefix is dropped in favour of the table.
func nest(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for key, v := range flat {
		parts := strings.Split(key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if _, isTable := node[leaf].(map[string]any); !isTable {
			node[leaf] = v
		}
	}
	return root
}
