package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/contactbook/pkg/observability"
)

// Watcher reloads the config file when it changes and applies the settings
// that can change at runtime. Today that is the log level.
type Watcher struct {
	path   string
	logger *observability.Logger

	// OnReload, when set, receives every successfully reloaded config
	OnReload func(*Config)
}

// NewWatcher creates a watcher for the file at path
func NewWatcher(path string, logger *observability.Logger) *Watcher {
	return &Watcher{path: filepath.Clean(path), logger: logger}
}

// Run watches until ctx is done. The parent directory is watched so that
// editors replacing the file atomically are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		// Keep running with the previous settings
		w.logger.WithError(err).Warn("ignoring invalid config change")
		return
	}

	level := cfg.Observability.Level()
	if level != w.logger.Level() {
		w.logger.WithFields(map[string]interface{}{
			"from": w.logger.Level().String(),
			"to":   level.String(),
		}).Info("log level changed")
		w.logger.SetLevel(level)
	}

	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}
