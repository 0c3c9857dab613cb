// Package watch turns filesystem activity into settled callbacks: a drop
// directory whose new files are handed over in batches, and a single file
// whose content is reported after each edit.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a path must stay quiet before it is reported.
const DefaultSettle = 300 * time.Millisecond

// Dir watches dir for regular files that are created or written. Once no
// further activity has been seen for settle, fn receives every pending path,
// sorted. Hidden files and subdirectories are ignored. Files already present
// when Dir starts are not reported.
//
// Dir blocks until ctx is cancelled and then returns nil.
func Dir(ctx context.Context, dir string, settle time.Duration, fn func(paths []string)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	w, err := newWatcher(dir)
	if err != nil {
		return err
	}
	defer w.Close()

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
	)
	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		clear(pending)
		mu.Unlock()

		if len(paths) == 0 || ctx.Err() != nil {
			return
		}
		slices.Sort(paths)
		slog.Debug("drop directory settled", "dir", dir, "files", len(paths))
		fn(paths)
	}
	later := debounce.New(settle)

	return loop(ctx, w, func(ev fsnotify.Event) {
		if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
			return
		}
		if strings.HasPrefix(filepath.Base(ev.Name), ".") {
			return
		}
		info, err := os.Stat(ev.Name)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		mu.Lock()
		pending[ev.Name] = struct{}{}
		mu.Unlock()
		later(flush)
	})
}

// File watches a single file and calls fn with its full content after each
// settled change, including the file being replaced by rename. Content equal
// to what was last reported is not reported again.
//
// The parent directory must exist; the file itself may not yet. File blocks
// until ctx is cancelled and then returns nil.
func File(ctx context.Context, path string, settle time.Duration, fn func(content string)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	path = filepath.Clean(path)
	w, err := newWatcher(filepath.Dir(path))
	if err != nil {
		return err
	}
	defer w.Close()

	var (
		mu   sync.Mutex
		last string
		seen bool
	)
	if data, err := os.ReadFile(path); err == nil {
		last, seen = string(data), true
	}

	report := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Warn("read watched file failed", "path", path, "err", err)
			}
			return
		}
		content := string(data)

		mu.Lock()
		if seen && content == last {
			mu.Unlock()
			return
		}
		last, seen = content, true
		mu.Unlock()

		if ctx.Err() == nil {
			fn(content)
		}
	}
	later := debounce.New(settle)

	return loop(ctx, w, func(ev fsnotify.Event) {
		if filepath.Clean(ev.Name) != path {
			return
		}
		if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
			later(report)
		}
	})
}

func newWatcher(dir string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return w, nil
}

func loop(ctx context.Context, w *fsnotify.Watcher, handle func(fsnotify.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			handle(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "err", err)
		}
	}
}
