package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"go.klb.dev/localbridge/internal/logging"
)

// readContent decodes a {"content": "..."} body. ok is false when the body
// is not JSON or has no string content field.
func readContent(r *http.Request) (content string, ok bool) {
	var body struct {
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == nil {
		return "", false
	}
	return *body.Content, true
}

// textDoc is a plain-text document stored under the data directory.
type textDoc struct {
	path string
	// label names the document in log lines and in the
	// "<Label> updated successfully" message.
	label string
	// getFailure and setFailure are the error messages returned to clients.
	getFailure string
	setFailure string
}

func (s *Server) getText(doc textDoc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, err := os.ReadFile(doc.path)
		s.mu.Unlock()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("read failed", "doc", doc.label, "err", err)
			writeError(w, http.StatusInternalServerError, doc.getFailure)
			return
		}
		if len(data) > 0 {
			slog.Debug("document accessed", "doc", doc.label, "chars", len(data))
		}
		writeJSON(w, http.StatusOK, map[string]string{"content": string(data)})
	}
}

func (s *Server) setText(doc textDoc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, ok := readContent(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "No content provided")
			return
		}
		s.mu.Lock()
		err := os.WriteFile(doc.path, []byte(content), 0o644)
		s.mu.Unlock()
		if err != nil {
			slog.Error("write failed", "doc", doc.label, "err", err)
			writeError(w, http.StatusInternalServerError, doc.setFailure)
			return
		}
		logging.LogText("document updated", content, "doc", doc.label)
		writeJSON(w, http.StatusOK, map[string]string{"message": doc.label + " updated successfully"})
	}
}

func (s *Server) getSystemClipboard(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Clipboard == nil {
		writeError(w, http.StatusInternalServerError, "Failed to get clipboard content")
		return
	}
	text, err := s.cfg.Clipboard.ReadText()
	if err != nil {
		slog.Error("read system clipboard failed", "backend", s.cfg.Clipboard.Name(), "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to get clipboard content")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": text})
}

func (s *Server) setSystemClipboard(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "No content provided")
		return
	}
	if s.cfg.Clipboard == nil {
		writeError(w, http.StatusInternalServerError, "Failed to update clipboard")
		return
	}
	if err := s.cfg.Clipboard.WriteText(content); err != nil {
		slog.Error("write system clipboard failed", "backend", s.cfg.Clipboard.Name(), "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to update clipboard")
		return
	}
	logging.LogText("system clipboard updated", content)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Clipboard updated successfully"})
}
