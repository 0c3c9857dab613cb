package session

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"go.klb.dev/localbridge/internal/api"
	"go.klb.dev/localbridge/internal/role"
)

// fakeBackend is an in-memory LocalBridge backend.
type fakeBackend struct {
	mu sync.Mutex

	clip   map[string]string
	putErr error
	gets   map[string]int
	// getHook, when set, replaces clipboard reads.
	getHook func(path string) (string, error)

	notes      string
	notesErr   error
	notesGets  int
	saved      []string
	notesHook  func() (string, error)
	saveNotesE error

	files      []api.FileEntry
	sent       []string
	uploadErrs map[string]error
	bodies     map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		clip:       make(map[string]string),
		gets:       make(map[string]int),
		uploadErrs: make(map[string]error),
		bodies:     make(map[string]string),
	}
}

func (f *fakeBackend) GetContent(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	f.gets[path]++
	hook := f.getHook
	f.mu.Unlock()
	if hook != nil {
		return hook(path)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clip[path], nil
}

func (f *fakeBackend) PutContent(_ context.Context, path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.clip[path] = content
	return nil
}

func (f *fakeBackend) GetNotes(context.Context) (string, error) {
	f.mu.Lock()
	f.notesGets++
	hook := f.notesHook
	f.mu.Unlock()
	if hook != nil {
		return hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes, f.notesErr
}

func (f *fakeBackend) SaveNotes(_ context.Context, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, content)
	if f.saveNotesE != nil {
		return f.saveNotesE
	}
	f.notes = content
	return nil
}

func (f *fakeBackend) ListFiles(context.Context) ([]api.FileEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.FileEntry{}, f.files...), nil
}

func (f *fakeBackend) UploadFile(_ context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, name)
	if err := f.uploadErrs[name]; err != nil {
		return err
	}
	f.bodies[name] = string(data)
	f.files = append(f.files, api.FileEntry{Name: name, Size: int64(len(data)), URL: "/api/files/" + name})
	return nil
}

func (f *fakeBackend) Download(_ context.Context, entry api.FileEntry, w io.Writer) (int64, error) {
	f.mu.Lock()
	body, ok := f.bodies[entry.Name]
	f.mu.Unlock()
	if !ok {
		return 0, &api.BackendError{Path: entry.URL, Status: 404, Message: "File not found"}
	}
	n, err := io.WriteString(w, body)
	return int64(n), err
}

func (f *fakeBackend) savedNotes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saved...)
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type fakeStore struct {
	mu    sync.Mutex
	saved []role.DeviceRole
}

func (s *fakeStore) Save(r role.DeviceRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, r)
	return nil
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestSession(t *testing.T, b Backend, cfg Config) *Session {
	t.Helper()
	s := New(b, cfg)
	t.Cleanup(s.Close)
	return s
}
