package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// Watch reloads the custom file whenever it changes until ctx is done.
// onReload, if set, is called after every successful reload.
//
// The parent directory is watched rather than the file so that atomic
// replacements (write temp, rename) are seen.
func (c *Catalog) Watch(ctx context.Context, onReload func()) error {
	if c.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating catalog watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(c.path)

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("catalog: watcher error", "error", err)
		case <-timer.C:
			if err := c.Reload(); err != nil {
				c.logger.Warn("catalog: reload failed", "path", c.path, "error", err)
				continue
			}
			c.logger.Info("catalog: reloaded", "path", c.path)
			if onReload != nil {
				onReload()
			}
		}
	}
}
