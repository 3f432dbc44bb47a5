package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// WatchConfig watches files and emits on the returned channel once per burst
// of writes. The watcher stops when ctx is done; the channel is only closed
// when no watcher could be created.
func WatchConfig(ctx context.Context, files ...string) <-chan struct{} {
	reloadCh := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create fsnotify watcher", "error", err)
		close(reloadCh)
		return reloadCh
	}

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			slog.Warn("Could not resolve absolute path for watch file", "file", file)
			continue
		}
		if err := watcher.Add(absPath); err != nil {
			slog.Warn("Could not watch file", "file", file, "error", err)
		} else {
			slog.Debug("Watching configuration file", "file", file)
		}
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		fire := func() {
			select {
			case reloadCh <- struct{}{}:
			default:
			}
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// editors that save atomically show up as Create
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					if timer != nil {
						timer.Stop()
					}
					slog.Debug("Configuration change detected", "file", event.Name)
					timer = time.AfterFunc(reloadDebounce, fire)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher encountered an error", "error", err)
			}
		}
	}()

	return reloadCh
}

// WatchSystemConfig reloads path into live on every change until ctx is done.
// onReload, when set, sees each new snapshot (used to re-level the logger).
func WatchSystemConfig(ctx context.Context, live *Live, path string, onReload func(*SystemConfig)) {
	changes := WatchConfig(ctx, path)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
			}
			cfg := LoadSystemConfig(path)
			live.Store(cfg)
			slog.Info("System config reloaded", "file", path, "log_level", cfg.LogLevel, "auto_play", cfg.AutoPlayAgents)
			if onReload != nil {
				onReload(cfg)
			}
		}
	}()
}
