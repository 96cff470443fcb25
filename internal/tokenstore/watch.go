package tokenstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch signals on the returned channel whenever the token file is created
// or rewritten. It watches the parent directory rather than the file itself
// because Save (and the companion auth server) replace the file by rename,
// which would silently drop a file-level watch.
//
// The watcher runs until ctx is canceled; the channel is closed on exit.
// Notifications are coalesced — a slow receiver sees at least one signal
// for any burst of writes.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return nil, fmt.Errorf("tokenstore: creating watch directory %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tokenstore: creating watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("tokenstore: watching %s: %w", dir, err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Name != s.path {
					continue
				}

				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
					continue
				}

				s.logger.Debug("token file changed on disk",
					slog.String("path", s.path),
					slog.String("op", event.Op.String()),
				)

				select {
				case ch <- struct{}{}:
				default:
				}

			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}

				s.logger.Warn("token file watcher error",
					slog.String("error", watchErr.Error()),
				)
			}
		}
	}()

	return ch, nil
}
