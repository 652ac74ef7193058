// Package watch triggers a callback when a single file changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when New is given a non-positive period.
const DefaultDebounce = 250 * time.Millisecond

// Watcher coalesces bursts of events on one file into a single call.
//
// The parent directory is watched rather than the file itself, so editors
// and tools that replace the file by renaming over it keep being seen.
type Watcher struct {
	path     string
	name     string
	debounce time.Duration
	onChange func(context.Context) error
	fsw      *fsnotify.Watcher
}

// New watches path and calls onChange once events have been quiet for
// the debounce period.
func New(path string, debounce time.Duration, onChange func(context.Context) error) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: nil callback")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating fsnotify watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watching %s", filepath.Dir(abs))
	}

	return &Watcher{
		path:     abs,
		name:     filepath.Base(abs),
		debounce: debounce,
		onChange: onChange,
		fsw:      fsw,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run blocks until ctx is done or the watcher is closed. Callback errors
// are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			log.Debugf("watch: %s %s", event.Op, event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watch: %v", err)

		case <-timer.C:
			log.Infof("Change detected in %s", w.path)
			if err := w.onChange(ctx); err != nil {
				log.Errorf("Change handler for %s failed: %v", w.path, err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != w.name {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops the underlying watcher and makes Run return.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
