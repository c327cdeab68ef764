package codelet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig re-reads the file at path whenever it is written or replaced and
// applies it to s as a partial update. It blocks until ctx is done.
// The parent directory is watched so editors that save by rename are seen.
func WatchConfig(ctx context.Context, path string, s *Settings) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			reloadConfig(path, s)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func reloadConfig(path string, s *Settings) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read config", "path", path, "error", err)
		return
	}
	u, warnings, err := ParseConfigUpdate(string(data))
	if err != nil {
		slog.Warn("ignoring invalid config", "path", path, "error", err)
		return
	}
	for _, w := range warnings {
		slog.Warn("config", "warning", w)
	}
	if changed := s.Update(u); len(changed) > 0 {
		slog.Info("config reloaded", "changed", changed)
	}
}
