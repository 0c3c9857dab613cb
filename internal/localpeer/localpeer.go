// Package localpeer joins this host's system clipboard to a session: text
// copied locally is shared as this device's clipboard, and text arriving from
// the other device is written to the local clipboard.
package localpeer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.klb.dev/localbridge/internal/clip"
	"go.klb.dev/localbridge/internal/logging"
)

// ErrNoWatch is returned by Run when the backend cannot report changes.
var ErrNoWatch = errors.New("clipboard backend cannot watch for changes")

// Sharer publishes text as this device's clipboard. *session.Session
// implements it.
type Sharer interface {
	SetClipboardInput(text string)
	SetClipboard(ctx context.Context) error
}

// Peer owns the local system clipboard.
type Peer struct {
	sharer  Sharer
	backend clip.Backend
	sendCh  chan string

	// last is the text most recently seen on either side; it keeps a
	// delivered value from being shared straight back.
	mu   sync.Mutex
	last string
}

// New creates the local peer but does not start it.
func New(sharer Sharer, backend clip.Backend) *Peer {
	return &Peer{
		sharer:  sharer,
		backend: backend,
		sendCh:  make(chan string, 16),
	}
}

// Deliver queues text from the other device for the local clipboard. Empty
// text and repeats of the current value are ignored.
func (p *Peer) Deliver(text string) {
	p.mu.Lock()
	repeat := text == p.last
	p.mu.Unlock()
	if text == "" || repeat {
		return
	}
	select {
	case p.sendCh <- text:
	default:
		slog.Warn("local clipboard queue full, dropping")
	}
}

// seen records text and reports whether it differs from the previous value.
func (p *Peer) seen(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text == p.last {
		return false
	}
	p.last = text
	return true
}

// Run applies delivered text to the local clipboard and, when share is set,
// shares local clipboard changes until ctx is done.
func (p *Peer) Run(ctx context.Context, share bool) error {
	var changes <-chan string
	if share {
		w, ok := p.backend.(clip.Watcher)
		if !ok {
			return ErrNoWatch
		}
		changes = w.Watch(ctx)
	}
	if text, err := p.backend.ReadText(); err == nil {
		p.seen(text)
	}

	slog.Info("local clipboard peer started", "backend", p.backend.Name(), "share", share)

	for {
		select {
		case <-ctx.Done():
			return nil

		case text := <-p.sendCh:
			if !p.seen(text) {
				continue
			}
			if err := p.backend.WriteText(text); err != nil {
				slog.Error("local clipboard write failed", "err", err)
				continue
			}
			logging.LogText("local clipboard updated", text)

		case text, ok := <-changes:
			if !ok {
				return nil
			}
			if text == "" || !p.seen(text) {
				continue
			}
			slog.Debug("local clipboard changed, sharing", "chars", len(text))
			p.sharer.SetClipboardInput(text)
			if err := p.sharer.SetClipboard(ctx); err != nil {
				slog.Warn("share local clipboard failed", "err", err)
			}
		}
	}
}
