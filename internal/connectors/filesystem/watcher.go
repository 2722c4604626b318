// Package filesystem watches a directory tree for document changes and
// feeds them to continuous ingestion. Hidden files and directories are
// ignored; new subdirectories are added to the watch as they appear.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/dedup-cli/internal/logger"
)

// ChangeType classifies a filesystem change.
type ChangeType string

// Change types emitted by the watcher.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is one observed file change.
type Change struct {
	Path string
	Type ChangeType
}

// Watcher monitors a directory tree via inotify (or the platform
// equivalent) and translates raw events into file changes.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	events  chan Change
}

// NewWatcher creates a watcher over root and registers every existing
// subdirectory. Run must be called to start delivering events.
func NewWatcher(root string) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		watcher: fsw,
		events:  make(chan Change, 64),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Events returns the channel of observed changes. Closed when Run returns.
func (w *Watcher) Events() <-chan Change {
	return w.events
}

// Run delivers changes until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			// New directories must join the watch before their contents
			// start changing.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !isHidden(ev.Name) {
					if err := w.addTree(ev.Name); err != nil {
						logger.Warn("watch new directory %s: %v", ev.Name, err)
					}
					continue
				}
			}
			change, ok := handleEvent(ev)
			if !ok {
				continue
			}
			select {
			case w.events <- change:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// Close releases the underlying OS watch handles.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// addTree registers dir and every non-hidden subdirectory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// handleEvent maps a raw fsnotify event to a change. Directories,
// hidden paths and chmod-only events are dropped.
func handleEvent(ev fsnotify.Event) (Change, bool) {
	if isHidden(ev.Name) {
		return Change{}, false
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return Change{}, false
		}
		return Change{Path: ev.Name, Type: ChangeCreated}, true

	case ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return Change{}, false
		}
		return Change{Path: ev.Name, Type: ChangeUpdated}, true

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// A renamed file surfaces again as a create at its new path.
		return Change{Path: ev.Name, Type: ChangeDeleted}, true

	default:
		return Change{}, false
	}
}

// isHidden reports whether any element of the path starts with a dot.
// The special elements "." and ".." do not count.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
