package route

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Table whenever its route file changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors and config management tools that replace the file by rename are
// picked up too.
type Watcher struct {
	table   *Table
	file    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	reloads chan struct{} // signalled after every reload attempt; used by tests
}

// NewWatcher starts watching the directory that holds the table's route file.
func NewWatcher(t *Table, logger *slog.Logger) (*Watcher, error) {
	if t.path == "" {
		return nil, fmt.Errorf("route: watch: table has no source file")
	}
	file, err := filepath.Abs(t.path)
	if err != nil {
		return nil, fmt.Errorf("route: watch: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("route: watch: %w", err)
	}
	if err := fw.Add(filepath.Dir(file)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("route: watch %s: %w", filepath.Dir(file), err)
	}

	return &Watcher{
		table:   t,
		file:    file,
		watcher: fw,
		logger:  logger.With("component", "route_watcher"),
		reloads: make(chan struct{}, 1),
	}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("watching route file", "path", w.file)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("route file changed", "op", ev.Op.String())
			if err := w.table.Reload(); err != nil {
				w.logger.Error("route reload failed; keeping previous table", "err", err)
			}
			select {
			case w.reloads <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("route watcher error", "err", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.file {
		return false
	}
	// A removed file is usually about to be replaced; the following Create reloads it.
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
