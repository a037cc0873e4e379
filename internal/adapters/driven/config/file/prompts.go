package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// errEmptyPrompt marks a prompt file holding only whitespace.
var errEmptyPrompt = errors.New("prompt file is empty")

// PromptStore serves prompt templates from <dir>/<name>.txt. The directory
// is seeded with the built-in templates on first use; a file that is
// missing, empty or malformed falls back to its built-in template.
type PromptStore struct {
	dir string

	once    sync.Once
	seedErr error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store rooted at dir, or ~/.pocfinder/prompts when
// dir is empty. Nothing touches the disk until the first Load or Watch.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: map[string]string{}}, nil
}

// Dir returns the directory prompts are read from.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	s.once.Do(s.seed)
	fallback, known := defaultPrompts[name]
	if s.seedErr != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, s.seedErr)
	}

	s.mu.RLock()
	cached, hit := s.cache[name]
	s.mu.RUnlock()
	if hit {
		return cached, nil
	}

	text, err := s.read(name)
	switch {
	case err == nil && valid(name, text):
	case known:
		// Not cached, so a fixed file is picked up on the next Load.
		return fallback, nil
	case err == nil:
		return text, nil
	default:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.cache[name]; ok {
		return prev, nil
	}
	s.cache[name] = text
	return text, nil
}

// Reload drops every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errEmptyPrompt
	}
	return text, nil
}

// valid rejects edits the callers cannot format.
func valid(name, text string) bool {
	if name == driven.PromptReformulate {
		return strings.Count(text, "%s") == 2
	}
	return true
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed creates the directory and writes any built-in template, plus the
// README, that is not already on disk. Existing files are left alone.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{filepath.Join(s.dir, "README.md"): promptReadme}
	for name, text := range defaultPrompts {
		files[s.path(name)] = text
	}
	for path, text := range files {
		if err := writeIfAbsent(path, text); err != nil {
			s.seedErr = fmt.Errorf("seed %s: %w", filepath.Base(path), err)
			return
		}
	}
}

func writeIfAbsent(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
