package session

import (
	"context"
	"errors"
	"log/slog"

	"go.klb.dev/localbridge/internal/api"
	"go.klb.dev/localbridge/internal/logging"
	"go.klb.dev/localbridge/internal/role"
)

var errNoClipboard = errors.New("no clipboard backend")

func (s *Session) readPath(r role.DeviceRole) string {
	if s.cfg.SingleRole {
		return api.PathClipboard
	}
	return r.ReadPath()
}

func (s *Session) writePath(r role.DeviceRole) string {
	if s.cfg.SingleRole {
		return api.PathClipboard
	}
	return r.WritePath()
}

// ReadPath is the clipboard endpoint the current role displays.
func (s *Session) ReadPath() string { return s.readPath(s.Role()) }

// WritePath is the clipboard endpoint the current role writes.
func (s *Session) WritePath() string { return s.writePath(s.Role()) }

// SetDeviceType switches the role: persists it, swaps labels and endpoints,
// and reloads the clipboard for the new role.
func (s *Session) SetDeviceType(ctx context.Context, r role.DeviceRole) {
	s.update(func(e *Elements) {
		e.Role = r
		e.Labels = r.Labels()
	})
	if s.cfg.Store != nil {
		if err := s.cfg.Store.Save(r); err != nil {
			slog.Warn("persist device role failed", "role", r, "err", err)
		}
	}
	slog.Info("device role set", "role", r, "reads", s.readPath(r), "writes", s.writePath(r))
	_ = s.LoadClipboard(ctx)
}

// SetClipboardInput replaces the text waiting to be pushed.
func (s *Session) SetClipboardInput(text string) {
	s.update(func(e *Elements) { e.ClipboardInput = text })
}

// LoadClipboard fetches the peer's clipboard and displays it. Failures are
// logged only. A response is dropped when a newer one was already applied or
// the role changed while it was in flight.
func (s *Session) LoadClipboard(ctx context.Context) error {
	s.mu.Lock()
	r := s.el.Role
	s.clipSent++
	seq := s.clipSent
	s.mu.Unlock()

	path := s.readPath(r)
	content, err := s.backend.GetContent(ctx, path)
	if err != nil {
		slog.Warn("load clipboard failed", "peer", r.Peer().DeviceName(), "path", path, "err", err)
		return err
	}

	s.mu.Lock()
	stale := seq <= s.clipApplied || r != s.el.Role
	if !stale {
		s.clipApplied = seq
	}
	s.mu.Unlock()
	if stale {
		slog.Debug("discarding stale clipboard response", "seq", seq)
		return nil
	}

	s.update(func(e *Elements) { e.ClipboardDisplay = content })
	return nil
}

// SetClipboard pushes the input text to this role's clipboard. On success the
// input is cleared and the display reloaded; on failure the input is kept.
func (s *Session) SetClipboard(ctx context.Context) error {
	s.mu.Lock()
	r := s.el.Role
	content := s.el.ClipboardInput
	s.mu.Unlock()

	if err := s.backend.PutContent(ctx, s.writePath(r), content); err != nil {
		s.ShowStatus(SlotClipboard, "Failed to update "+r.DeviceName()+" clipboard: "+api.Message(err), Danger)
		return err
	}
	logging.LogText("clipboard pushed", content, "role", r)
	s.ShowStatus(SlotClipboard, r.DeviceName()+" clipboard updated successfully!", Success)
	s.update(func(e *Elements) { e.ClipboardInput = "" })
	_ = s.LoadClipboard(ctx)
	return nil
}

// CopyToClipboard writes the displayed content into the OS clipboard.
func (s *Session) CopyToClipboard() error {
	s.mu.Lock()
	r := s.el.Role
	content := s.el.ClipboardDisplay
	s.mu.Unlock()

	if content == "" {
		s.ShowStatus(SlotClipboard, "No content to copy", Warning)
		return nil
	}

	err := errNoClipboard
	if s.cfg.Clipboard != nil {
		err = s.cfg.Clipboard.WriteText(content)
	}
	if err != nil {
		slog.Error("copy to clipboard failed", "err", err)
		s.ShowStatus(SlotClipboard, "Failed to copy to clipboard", Danger)
		return err
	}
	s.ShowStatus(SlotClipboard, "Copied to "+r.DeviceName()+" clipboard!", Success)
	return nil
}
