package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"go.klb.dev/localbridge/internal/api"
	"go.klb.dev/localbridge/internal/role"
	"go.klb.dev/localbridge/internal/server"
	"go.klb.dev/localbridge/internal/session"
)

func testBackend(t *testing.T) (string, *api.Client) {
	t.Helper()
	srv, err := server.New(server.Config{Root: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL, api.New(api.Config{BaseURL: ts.URL})
}

// execute runs cmd with the shared client flags pointed at url.
func execute(t *testing.T, cmd *cobra.Command, url string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	base := []string{"--url", url, "--state-file", filepath.Join(t.TempDir(), "state.toml"), "--log-level", "error"}
	cmd.SetArgs(append(base, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCopyThenPaste(t *testing.T) {
	url, c := testBackend(t)

	_, stderr, err := execute(t, newCopyCmd(), url, "--role", "pc", "hello", "phone")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if !strings.Contains(stderr, "PC clipboard updated successfully!") {
		t.Errorf("copy stderr = %q", stderr)
	}
	if got, _ := c.GetContent(context.Background(), "/api/clipboard/pc"); got != "hello phone" {
		t.Errorf("pc clipboard = %q", got)
	}

	stdout, _, err := execute(t, newPasteCmd(), url, "--role", "mobile")
	if err != nil {
		t.Fatalf("paste: %v", err)
	}
	if stdout != "hello phone" {
		t.Errorf("paste stdout = %q", stdout)
	}
}

func TestCopyFailureIsCommandError(t *testing.T) {
	_, _, err := execute(t, newCopyCmd(), "http://127.0.0.1:1", "--role", "pc", "x")
	if err == nil || !strings.HasPrefix(err.Error(), "Failed to update PC clipboard:") {
		t.Errorf("err = %v", err)
	}
}

func TestNotesSetAndGet(t *testing.T) {
	url, _ := testBackend(t)

	_, stderr, err := execute(t, newNotesCmd(), url, "set", "remember the milk")
	if err != nil {
		t.Fatalf("notes set: %v", err)
	}
	if !strings.Contains(stderr, "Notes saved automatically") {
		t.Errorf("stderr = %q", stderr)
	}

	get := newNotesCmd()
	stdout, _, err := execute(t, get, url)
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	if stdout != "remember the milk" {
		t.Errorf("notes = %q", stdout)
	}
}

func TestUploadListAndGet(t *testing.T) {
	url, _ := testBackend(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(src, []byte("not really a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := execute(t, newUploadCmd(), url, src)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(stderr, "Uploaded 1/1 (100%)") || !strings.Contains(stderr, "All files uploaded successfully!") {
		t.Errorf("upload stderr = %q", stderr)
	}

	stdout, _, err := execute(t, newFilesCmd(), url)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if !strings.Contains(stdout, "photo.png") || !strings.Contains(stdout, "16 Bytes") {
		t.Errorf("files output:\n%s", stdout)
	}

	dest := filepath.Join(t.TempDir(), "copy.png")
	if _, _, err := execute(t, newFilesGetCmd(), url, "photo.png", "-o", dest); err != nil {
		t.Fatalf("files get: %v", err)
	}
	if data, _ := os.ReadFile(dest); string(data) != "not really a png" {
		t.Errorf("downloaded %q", data)
	}
}

func TestFilesEmpty(t *testing.T) {
	url, _ := testBackend(t)
	stdout, _, err := execute(t, newFilesCmd(), url)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != "No files available" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRoleSetAndShow(t *testing.T) {
	url, c := testBackend(t)
	if err := c.PutContent(context.Background(), "/api/clipboard/pc", "from the pc"); err != nil {
		t.Fatal(err)
	}
	state := filepath.Join(t.TempDir(), "state.toml")
	run := func(args ...string) string {
		cmd := newRoleCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--url", url, "--state-file", state, "--user-agent", "curl", "--log-level", "error"}, args...))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("role %v: %v", args, err)
		}
		return out.String()
	}

	if out := run(); !strings.HasPrefix(out, "PC (detected)") {
		t.Errorf("initial = %q", out)
	}

	// switching relabels and shows the clipboard the new role reads
	out := run("mobile")
	if !strings.HasPrefix(out, "Role set to Mobile") || !strings.Contains(out, "PC Clipboard Content:\nfrom the pc\n") {
		t.Errorf("set = %q", out)
	}

	out = run()
	if !strings.HasPrefix(out, "Mobile (saved)") || !strings.Contains(out, "writes /api/clipboard/mobile, reads /api/clipboard/pc") {
		t.Errorf("after set = %q", out)
	}

	out = run("--single-role")
	if !strings.Contains(out, "writes /api/clipboard, reads /api/clipboard") {
		t.Errorf("single role = %q", out)
	}
}

func TestRunRoleCommands(t *testing.T) {
	_, c := testBackend(t)
	if err := c.PutContent(context.Background(), "/api/clipboard/pc", "desk text"); err != nil {
		t.Fatal(err)
	}
	store := role.NewStore(filepath.Join(t.TempDir(), "state.toml"))
	s := session.New(c, session.Config{Role: role.PC, Store: store})
	defer s.Close()

	readRoleCommands(context.Background(), strings.NewReader("toggle\nbogus\n\n"), s)

	if s.Role() != role.Mobile {
		t.Fatalf("role = %s", s.Role())
	}
	if got := s.Snapshot().ClipboardDisplay; got != "desk text" {
		t.Errorf("display after toggle = %q", got)
	}
	if r, ok, err := store.Load(); err != nil || !ok || r != role.Mobile {
		t.Errorf("saved role = %s, %v, %v", r, ok, err)
	}

	readRoleCommands(context.Background(), strings.NewReader("pc\n"), s)
	if s.Role() != role.PC {
		t.Errorf("role = %s", s.Role())
	}
}

func TestRendererPrintsPeerClipboardOnce(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)
	s := session.New(nil, session.Config{})
	defer s.Close()
	el := s.Snapshot()

	el.ClipboardDisplay = "from phone"
	r.render(el)
	el.NotesIdle = false
	r.render(el)

	if got := strings.Count(out.String(), "from phone"); got != 1 {
		t.Errorf("printed %d times:\n%s", got, out.String())
	}
	if !strings.Contains(out.String(), "Mobile Clipboard Content:") {
		t.Errorf("missing label:\n%s", out.String())
	}
}

func TestNotesMirrorWritesLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	m := newNotesMirror(path)
	done := make(chan struct{})
	defer close(done)
	go m.Run(done)

	m.Update("one")
	m.Update("two")

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, _ := os.ReadFile(path)
		if string(data) == "two" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("file = %q", data)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// content read back from the file is not written again
	m.Seen("edited by hand")
	if err := os.WriteFile(path, []byte("edited by hand"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.Update("edited by hand")
	m.mu.Lock()
	dirty := m.dirty
	m.mu.Unlock()
	if dirty {
		t.Error("mirror rewrote content it had just read")
	}
}
