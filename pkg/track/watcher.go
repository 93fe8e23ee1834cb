package track

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// RulesTarget receives rule updates from a watcher. *Classifier satisfies it.
type RulesTarget interface {
	SetRules(*Rules)
}

// RulesWatcher reloads a rules file when it changes on disk and pushes the
// result to a target. Invalid file contents are reported through the error
// callback and the previous rules stay active.
type RulesWatcher struct {
	path    string
	target  RulesTarget
	onError func(error)
	watcher *fsnotify.Watcher
}

// NewRulesWatcher creates a watcher for path. onError may be nil.
func NewRulesWatcher(path string, target RulesTarget, onError func(error)) (*RulesWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory, not the file: editors and config mounts replace
	// the file atomically, which drops a watch on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return &RulesWatcher{
		path:    path,
		target:  target,
		onError: onError,
		watcher: w,
	}, nil
}

// Run processes file events until ctx is cancelled or the watcher closes.
func (rw *RulesWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(rw.path) {
				continue
			}
			rules, err := LoadRules(rw.path)
			if err != nil {
				rw.reportError(err)
				continue
			}
			rw.target.SetRules(rules)
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			rw.reportError(err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (rw *RulesWatcher) Close() error {
	return rw.watcher.Close()
}

func (rw *RulesWatcher) reportError(err error) {
	if rw.onError != nil {
		rw.onError(err)
	}
}
