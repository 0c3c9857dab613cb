package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/text/unicode/norm"

	"go.klb.dev/localbridge/internal/api"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces name to a flat ASCII filename: accents are stripped,
// path separators and whitespace become underscores, anything else outside
// [A-Za-z0-9_.-] is dropped, and leading/trailing dots and underscores are
// trimmed. The result may be empty.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// allowedFile reports whether name has an allowed extension.
func (s *Server) allowedFile(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	_, ok := s.allowed[normalizeExt(name[i+1:])]
	return ok
}

func (s *Server) listFiles(w http.ResponseWriter, _ *http.Request) {
	entries, err := os.ReadDir(s.cfg.UploadDir)
	if err != nil {
		slog.Error("list files failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}
	files := make([]api.FileEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, api.FileEntry{
			Name: e.Name(),
			Size: info.Size(),
			URL:  api.PathFiles + "/" + url.PathEscape(e.Name()),
		})
	}
	slog.Info("listed files", "count", len(files))
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.cfg.MaxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		case errors.Is(err, http.ErrMissingFile) && r.MultipartForm != nil && r.MultipartForm.Value["file"] != nil:
			// a file part with an empty filename is parsed as a plain value
			writeError(w, http.StatusBadRequest, "No selected file")
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "No file part")
		default:
			writeError(w, http.StatusBadRequest, "Malformed upload")
		}
		return
	}
	defer f.Close()

	if hdr.Filename == "" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	}
	if !s.allowedFile(hdr.Filename) {
		slog.Warn("rejected file upload", "filename", hdr.Filename)
		writeError(w, http.StatusBadRequest, "File type not allowed")
		return
	}
	name := SecureFilename(hdr.Filename)
	if name == "" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	}

	size, err := s.save(name, f)
	if err != nil {
		slog.Error("save upload failed", "filename", name, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}
	slog.Info("file uploaded", "filename", name, "bytes", size)
	writeJSON(w, http.StatusOK, map[string]string{"message": "File uploaded successfully", "filename": name})
}

// save writes r to a temp file and renames it into place, so listings never
// show a half-written upload.
func (s *Server) save(name string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(s.cfg.UploadDir, ".upload-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.cfg.UploadDir, name)); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("rename: %w", err)
	}
	return n, nil
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	path := filepath.Join(s.cfg.UploadDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		slog.Warn("file not found for download", "filename", name)
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	slog.Info("file downloaded", "filename", name, "bytes", info.Size())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}
