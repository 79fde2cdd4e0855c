package agent

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 300 * time.Millisecond

// Watch runs the mirror in follow mode: one initial pass, then a
// reconciliation pass after each burst of filesystem events. Events arriving
// within the debounce window collapse into a single pass. Watch blocks until
// ctx is done.
func (m *Mirror) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := m.watchTree(watcher); err != nil {
		return err
	}
	if _, _, _, err := m.SyncOnce(ctx); err != nil {
		m.logf("initial mirror pass failed: %v", err)
	}

	var debounce *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories must be registered before their contents
			// produce events.
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if !skipDir(filepath.Base(event.Name)) {
						_ = watcher.Add(event.Name)
					}
				}
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(watchDebounce)
			}
			pending = debounce.C
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logf("watch error: %v", watchErr)
		case <-pending:
			pending = nil
			if _, _, _, err := m.SyncOnce(ctx); err != nil {
				m.logf("mirror pass failed: %v", err)
			}
		}
	}
}

func (m *Mirror) watchTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != m.root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
