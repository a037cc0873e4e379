package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/pocfinder/internal/logger"
)

// Watch reloads the store whenever a prompt file changes and blocks until
// ctx is done. onReload, if non-nil, is called with the changed prompt name.
func (s *PromptStore) Watch(ctx context.Context, onReload func(name string)) error {
	s.once.Do(s.seed)
	if s.seedErr != nil {
		return s.seedErr
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	logger.Debug("Watching prompts in %s", s.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, relevant := promptName(event)
			if !relevant {
				continue
			}
			s.Reload()
			logger.Info("Prompt %s changed, reloaded", name)
			if onReload != nil {
				onReload(name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Prompt watcher error: %v", err)
		}
	}
}

// promptName maps a filesystem event to the prompt it affects.
func promptName(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, ".txt") {
		return "", false
	}
	return strings.TrimSuffix(base, ".txt"), true
}
