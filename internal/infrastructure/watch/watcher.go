package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/blotter/pkg/storage"
)

const DefaultDebounce = 300 * time.Millisecond

// ChangeEvent is a settled change to a watched file.
type ChangeEvent struct {
	Path       string
	ChangeType string // create, write, remove, rename
}

// Watcher watches one directory and reports changes to files passing its filter.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	filter   *PatternFilter
	debounce time.Duration
	onChange func(ChangeEvent)
	logger   *slog.Logger
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithFilter(f *PatternFilter) Option {
	return func(w *Watcher) { w.filter = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New watches dir. Files are matched by name so editors that replace the
// file through a rename are still seen.
func New(dir string, onChange func(ChangeEvent), opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		watcher:  fw,
		dir:      dir,
		filter:   NewPatternFilter(nil, nil),
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return w, nil
}

// WatchPreferences watches <root>/.blotter/reminders.yaml.
func WatchPreferences(root string, onChange func(ChangeEvent), opts ...Option) (*Watcher, error) {
	dir := filepath.Join(root, storage.BlotterDir)
	opts = append([]Option{WithFilter(NewPatternFilter([]string{storage.RemindersFile}, nil))}, opts...)
	return New(dir, onChange, opts...)
}

// Run delivers debounced changes until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	debouncer := NewDebouncer(w.debounce, func(ev ChangeEvent) {
		w.logger.Debug("workspace file changed", "path", ev.Path, "change", ev.ChangeType)
		if w.onChange != nil {
			w.onChange(ev)
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			changeType := opToChangeType(event.Op)
			if changeType == "" || !w.filter.Matches(event.Name) {
				continue
			}
			debouncer.Trigger(ChangeEvent{Path: event.Name, ChangeType: changeType})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func opToChangeType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}
