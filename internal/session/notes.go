package session

import (
	"context"
	"log/slog"

	"go.klb.dev/localbridge/internal/api"
)

// Input records a keystroke: the buffer becomes content, the session enters
// Typing, and both the save timer and the idle timer restart. Only the last
// of a burst of keystrokes produces a save.
func (s *Session) Input(content string) {
	var edit uint64
	s.update(func(e *Elements) {
		e.Notes = content
		e.NotesIdle = false
		s.notesEdits++
		edit = s.notesEdits
	})

	s.saveLater(func() { _ = s.FlushNotes(s.ctx) })
	s.idleLater(func() {
		s.update(func(e *Elements) {
			// a timer that fired while a newer keystroke was being recorded
			if s.notesEdits == edit {
				e.NotesIdle = true
			}
		})
	})
}

// Idle reports whether no keystroke arrived within the idle delay.
func (s *Session) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.el.NotesIdle
}

// SaveNotes posts the current buffer. The buffer is never reverted.
func (s *Session) SaveNotes(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	content := s.el.Notes
	s.mu.Unlock()

	if err := s.backend.SaveNotes(ctx, content); err != nil {
		s.ShowStatus(SlotNotes, "Failed to save notes: "+api.Message(err), Danger)
		return err
	}
	slog.Debug("notes saved", "chars", len(content))
	s.ShowStatus(SlotNotes, "Notes saved automatically", Success)
	return nil
}

// FlushNotes saves the buffer now if a keystroke arrived since the last
// successful save. Saves never overlap.
func (s *Session) FlushNotes(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	edits, saved := s.notesEdits, s.notesSaved
	s.mu.Unlock()
	if edits == saved {
		return nil
	}
	if err := s.SaveNotes(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.notesSaved = max(s.notesSaved, edits)
	s.mu.Unlock()
	return nil
}

// LoadNotes fetches the notes and overwrites the buffer unconditionally.
func (s *Session) LoadNotes(ctx context.Context) error {
	content, err := s.backend.GetNotes(ctx)
	if err != nil {
		slog.Warn("load notes failed", "err", err)
		return err
	}
	s.update(func(e *Elements) { e.Notes = content })
	return nil
}

// RefreshNotes is the periodic pull. While Typing the tick is skipped and
// nothing is fetched; fetched reports whether a request went out. A response
// that arrives after a new keystroke is dropped so edits are never clobbered.
func (s *Session) RefreshNotes(ctx context.Context) (fetched bool, err error) {
	if s.cfg.SingleRole {
		return false, nil
	}
	s.mu.Lock()
	idle := s.el.NotesIdle
	edits := s.notesEdits
	s.mu.Unlock()
	if !idle {
		slog.Debug("notes refresh skipped while typing")
		return false, nil
	}

	content, err := s.backend.GetNotes(ctx)
	if err != nil {
		slog.Warn("refresh notes failed", "err", err)
		return true, err
	}

	s.update(func(e *Elements) {
		if s.notesEdits != edits || !e.NotesIdle {
			return
		}
		e.Notes = content
	})
	return true, nil
}
