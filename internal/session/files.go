package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.klb.dev/localbridge/internal/api"
)

const noFiles = "No files available"

// Upload is one queued file.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileUpload queues the file at path under its base name.
func FileUpload(path string) Upload {
	return Upload{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// LoadFiles replaces the file list with the backend's. Failures are logged only.
func (s *Session) LoadFiles(ctx context.Context) error {
	files, err := s.backend.ListFiles(ctx)
	if err != nil {
		slog.Warn("load files failed", "err", err)
		return err
	}
	s.update(func(e *Elements) {
		e.Files = files
		if len(files) == 0 {
			e.FilesPlaceholder = noFiles
		} else {
			e.FilesPlaceholder = ""
		}
	})
	return nil
}

// UploadFiles sends the queue one file at a time. The first failure aborts
// the rest: files before it stay uploaded, files after it are never sent.
// It returns how many files were uploaded. Concurrent calls are serialized.
func (s *Session) UploadFiles(ctx context.Context, queue []Upload) (int, error) {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	total := len(queue)
	s.update(func(e *Elements) {
		e.Uploading = true
		e.Progress = Progress{Total: total}
		e.UploadStatus.Visible = false
	})

	for i, u := range queue {
		if err := s.uploadOne(ctx, u); err != nil {
			slog.Error("upload failed", "file", u.Name, "uploaded", i, "skipped", total-i-1, "err", err)
			s.update(func(e *Elements) { e.Uploading = false })
			s.ShowStatus(SlotUpload, "Upload failed: "+api.Message(err), Danger)
			return i, err
		}
		slog.Info("file uploaded", "file", u.Name, "done", i+1, "total", total)
		s.update(func(e *Elements) { e.Progress.Done = i + 1 })
	}

	s.update(func(e *Elements) { e.Uploading = false })
	s.ShowStatus(SlotUpload, "All files uploaded successfully!", Success)
	_ = s.LoadFiles(ctx)
	return total, nil
}

func (s *Session) uploadOne(ctx context.Context, u Upload) error {
	rc, err := u.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", u.Name, err)
	}
	defer rc.Close()
	return s.backend.UploadFile(ctx, u.Name, rc)
}

// ErrFileNotListed is returned by FindFile for names missing from the list.
var ErrFileNotListed = errors.New("file not listed")

// FindFile returns the listed entry called name.
func (s *Session) FindFile(name string) (api.FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.el.Files {
		if f.Name == name {
			return f, nil
		}
	}
	return api.FileEntry{}, fmt.Errorf("%s: %w", name, ErrFileNotListed)
}

// DownloadFile streams entry into w and returns the bytes written.
func (s *Session) DownloadFile(ctx context.Context, entry api.FileEntry, w io.Writer) (int64, error) {
	n, err := s.backend.Download(ctx, entry, w)
	if err != nil {
		slog.Error("download failed", "file", entry.Name, "err", err)
		return n, err
	}
	slog.Info("file downloaded", "file", entry.Name, "bytes", n)
	return n, nil
}

var byteUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatBytes renders n with a binary unit and at most two decimals:
// 0 → "0 Bytes", 1536 → "1.5 KB", 1048576 → "1 MB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return strconv.FormatInt(n, 10) + " Bytes"
	}
	// floor(log1024(n)) without floating point error.
	i := (bits.Len64(uint64(n)) - 1) / 10
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}
	v := float64(n) / float64(uint64(1)<<(10*i))
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + " " + byteUnits[i]
}
