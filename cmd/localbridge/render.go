package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"go.klb.dev/localbridge/internal/api"
	"go.klb.dev/localbridge/internal/session"
)

// renderer prints what changed between successive session snapshots.
type renderer struct {
	out io.Writer

	mu    sync.Mutex
	prev  session.Elements
	first bool
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, first: true}
}

func (r *renderer) render(el session.Elements) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.prev
	r.prev = el

	if r.first || el.Role != prev.Role {
		slog.Info("device role", "role", el.Role, "showing", el.Labels.Display)
	}
	if el.ClipboardDisplay != prev.ClipboardDisplay || (r.first && el.ClipboardDisplay != "") {
		fmt.Fprintf(r.out, "── %s\n%s\n", el.Labels.Display, el.ClipboardDisplay)
	}
	if !slices.Equal(fileNames(el.Files), fileNames(prev.Files)) {
		if len(el.Files) == 0 {
			slog.Info(el.FilesPlaceholder)
		} else {
			slog.Info("files", "count", len(el.Files), "names", fileNames(el.Files))
		}
	}
	if el.Uploading && el.Progress != prev.Progress {
		slog.Info("uploading", "done", el.Progress.Done, "total", el.Progress.Total)
	}

	for _, s := range []struct {
		slot      session.Slot
		now, then session.Status
	}{
		{session.SlotUpload, el.UploadStatus, prev.UploadStatus},
		{session.SlotClipboard, el.ClipboardStatus, prev.ClipboardStatus},
		{session.SlotNotes, el.NotesStatus, prev.NotesStatus},
	} {
		if s.now.Visible && s.now != s.then {
			slog.Log(context.Background(), severityLevel(s.now.Severity), s.now.Message, "slot", s.slot)
		}
	}
	r.first = false
}

func severityLevel(sev session.Severity) slog.Level {
	switch sev {
	case session.Danger:
		return slog.LevelError
	case session.Warning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func fileNames(files []api.FileEntry) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

// notesMirror keeps a local file equal to the notes buffer. Writes happen on
// Run's goroutine; Update only records the latest content.
type notesMirror struct {
	path string
	wake chan struct{}

	mu      sync.Mutex
	pending string
	dirty   bool
	written string
}

func newNotesMirror(path string) *notesMirror {
	return &notesMirror{path: path, wake: make(chan struct{}, 1)}
}

// Update schedules content to be written unless the file already holds it.
func (m *notesMirror) Update(content string) {
	m.mu.Lock()
	if content == m.written && !m.dirty {
		m.mu.Unlock()
		return
	}
	m.pending, m.dirty = content, true
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Seen records content read back from the file so it is not rewritten.
func (m *notesMirror) Seen(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = content
}

// Run writes pending content until done is closed.
func (m *notesMirror) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-m.wake:
			m.flush()
		}
	}
}

func (m *notesMirror) flush() {
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return
	}
	content := m.pending
	m.dirty = false
	m.mu.Unlock()

	if err := os.WriteFile(m.path, []byte(content), 0o644); err != nil {
		slog.Error("write notes file failed", "path", m.path, "err", err)
		return
	}
	m.Seen(content)
}
