package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docportal/internal/logger"
)

// WatchPrompts clears the store's cache whenever a prompt file in its
// directory is written, created, renamed or removed.
// It blocks until ctx is cancelled. Returns nil on cancellation.
func WatchPrompts(ctx context.Context, store *PromptStore, log *logger.Logger) error {
	// The directory must exist before it can be watched.
	if err := store.seed(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(store.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", store.Dir(), err)
	}
	log.Debug("watching prompts in %s", store.Dir())

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".txt") || event.Op&relevant == 0 {
				continue
			}
			store.Reload()
			name := strings.TrimSuffix(filepath.Base(event.Name), filepath.Ext(event.Name))
			if err := store.Check(name); err != nil {
				log.Warn("%v", err)
				continue
			}
			log.Info("prompt %s changed, cache cleared", name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("prompt watcher: %v", err)
		}
	}
}
