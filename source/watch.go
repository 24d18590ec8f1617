package source

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spektr-org/lens/logger"
)

// watchDebounce lets an editor or exporter finish writing before reloading.
var watchDebounce = 250 * time.Millisecond

// Watch reloads loc into cache whenever the file is written or created,
// which includes being renamed into place. It blocks until ctx is done.
// Only local files can be watched.
func Watch(ctx context.Context, cache *Cache, loc Location) error {
	if loc.Scheme != SchemeFile {
		return fmt.Errorf("cannot watch %s: only local files are supported", loc)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched so a file replaced by rename is still seen.
	if err := watcher.Add(filepath.Dir(loc.Path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(loc.Path), err)
	}
	logger.Infof("👀 lens: watching %s", loc)

	ticker := time.NewTicker(watchDebounce / 2)
	defer ticker.Stop()

	var pending time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != loc.Path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending = time.Now()
			}
			if event.Op&fsnotify.Remove != 0 {
				logger.Warnf("⚠️ lens: %s removed, keeping the cached copy", loc)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("❌ lens: watcher error: %v", err)

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < watchDebounce {
				continue
			}
			pending = time.Time{}
			if _, err := cache.Reload(ctx, loc); err != nil {
				logger.Errorf("❌ lens: reload of %s failed: %v", loc, err)
			}
		}
	}
}
