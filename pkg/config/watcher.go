package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/verityux/verity/pkg/observability"
)

// ReloadFunc receives the freshly parsed file configuration
type ReloadFunc func(cfg *Config)

// Watcher reloads the YAML config file when it changes on disk.
// The parent directory is watched so editors that replace the file
// atomically are still observed.
type Watcher struct {
	path     string
	logger   *observability.Logger
	onReload ReloadFunc
	watcher  *fsnotify.Watcher
}

// NewWatcher starts watching path
func NewWatcher(path string, logger *observability.Logger, onReload ReloadFunc) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		logger:   logger.WithField("config_file", abs),
		onReload: onReload,
		watcher:  fw,
	}, nil
}

// Run processes file events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("config reload skipped")
		return
	}
	w.logger.Info("config file reloaded")
	w.onReload(cfg)
}

// ApplyLogLevel returns a ReloadFunc that updates logger's level
func ApplyLogLevel(logger *observability.Logger) ReloadFunc {
	return func(cfg *Config) {
		level := observability.ParseLevel(cfg.Observability.LogLevel)
		if level != logger.Level() {
			logger.SetLevel(level)
			logger.WithField("level", level.String()).Info("log level changed")
		}
	}
}
