// Package clip provides text access to the operating system clipboard.
//
// The system backend uses golang.design/x/clipboard. When the display
// environment is unavailable (headless Linux, containers, CGO disabled) New
// falls back to a headless backend that reports ErrUnavailable.
package clip

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"
)

// ErrUnavailable is returned by the headless backend.
var ErrUnavailable = errors.New("clipboard unavailable")

// Backend is the interface every clipboard implementation satisfies.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the current text contents, "" when empty.
	ReadText() (string, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(text string) error
}

// Watcher is implemented by backends that can report clipboard changes.
type Watcher interface {
	// Watch returns a channel that receives the new text each time the
	// clipboard changes. The channel is closed when ctx is done.
	Watch(ctx context.Context) <-chan string
}

// New returns the system clipboard backend, or a headless backend if the
// clipboard cannot be initialised. clipboard.Init is called here rather than
// in init() so that sub-commands that never touch the clipboard stay quiet on
// headless systems.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return headless{}
	}
	return systemBackend{}
}

type systemBackend struct{}

func (systemBackend) Name() string { return "system clipboard" }

func (systemBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (systemBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (systemBackend) Watch(ctx context.Context) <-chan string {
	raw := clipboard.Watch(ctx, clipboard.FmtText)
	out := make(chan string)
	go func() {
		defer close(out)
		for data := range raw {
			select {
			case out <- string(data):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type headless struct{}

func (headless) Name() string              { return "headless (no-op)" }
func (headless) ReadText() (string, error) { return "", ErrUnavailable }
func (headless) WriteText(_ string) error  { return ErrUnavailable }

// Memory is an in-process clipboard used by tests and by `server --no-system-clipboard`.
type Memory struct {
	mu       sync.Mutex
	text     string
	watchers []chan string
	// Err, when set, is returned from every call.
	Err error
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.text, nil
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.text = text
	for _, ch := range m.watchers {
		select {
		case ch <- text:
		default:
		}
	}
	return nil
}

// Watch reports every successful WriteText. Notifications are dropped while
// the receiver is not keeping up.
func (m *Memory) Watch(ctx context.Context) <-chan string {
	ch := make(chan string, 16)
	m.mu.Lock()
	m.watchers = append(m.watchers, ch)
	m.mu.Unlock()

	out := make(chan string)
	go func() {
		defer close(out)
		defer m.unwatch(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case text := <-ch:
				select {
				case out <- text:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (m *Memory) unwatch(ch chan string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.watchers {
		if w == ch {
			m.watchers = append(m.watchers[:i], m.watchers[i+1:]...)
			return
		}
	}
}
