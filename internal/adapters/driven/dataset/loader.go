// Package dataset loads the curated platform and event JSON files.
//
// Files hold either a bare JSON array of records or an object wrapping the
// array under "platforms" or "events". Invalid and duplicate records are
// reported together and left out of the result, so one bad entry never
// blocks an index build.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// record is the shared behaviour of PlatformRecord and EventRecord.
type record interface {
	RecordID() string
	Validate() error
}

// LoadPlatforms reads platforms from path. The returned error is non-nil when
// the file is unreadable, or when some records were rejected; in the latter case
// the valid records are still returned.
func LoadPlatforms(path string) ([]domain.PlatformRecord, error) {
	var raw []domain.PlatformRecord
	if err := decodeFile(path, "platforms", &raw); err != nil {
		return nil, err
	}
	return filter(path, raw)
}

// LoadEvents reads events from path with the same contract as LoadPlatforms.
func LoadEvents(path string) ([]domain.EventRecord, error) {
	var raw []domain.EventRecord
	if err := decodeFile(path, "events", &raw); err != nil {
		return nil, err
	}
	return filter(path, raw)
}

// IsFatal reports whether err from a loader means nothing was loaded.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	_, partial := err.(*multierror.Error) //nolint:errorlint // loaders return the type directly
	return !partial
}

func decodeFile(path, key string, out any) error {
	path = expandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		inner, ok := wrapped[key]
		if !ok {
			return fmt.Errorf("parsing %s: %w: missing %q array", path, domain.ErrInvalidInput, key)
		}
		data = inner
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func filter[T record](path string, raw []T) ([]T, error) {
	var result *multierror.Error
	seen := make(map[string]struct{}, len(raw))
	out := make([]T, 0, len(raw))

	for i, r := range raw {
		if err := r.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s[%d]: %w", filepath.Base(path), i, err))
			continue
		}
		if _, dup := seen[r.RecordID()]; dup {
			result = multierror.Append(result, fmt.Errorf("%s[%d]: %w: duplicate id %q",
				filepath.Base(path), i, domain.ErrInvalidRecord, r.RecordID()))
			continue
		}
		seen[r.RecordID()] = struct{}{}
		out = append(out, r)
	}

	return out, result.ErrorOrNil()
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
