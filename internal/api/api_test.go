package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"
)

func testClient(handler http.Handler) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	return New(Config{BaseURL: ts.URL + "/"}), ts
}

func TestGetContent(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/clipboard/mobile" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("missing request id header")
		}
		json.NewEncoder(w).Encode(map[string]string{"content": "from phone"})
	}))
	defer ts.Close()

	got, err := c.GetContent(context.Background(), "/api/clipboard/mobile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from phone" {
		t.Errorf("got %q", got)
	}
}

func TestGetContent_MissingFieldIsEmpty(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	got, err := c.GetNotes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty content, got %q", got)
	}
}

func TestPutContent_BackendError(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to update PC clipboard"})
	}))
	defer ts.Close()

	err := c.PutContent(context.Background(), "/api/clipboard/pc", "x")
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %T: %v", err, err)
	}
	if be.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", be.Status)
	}
	if Message(err) != "Failed to update PC clipboard" {
		t.Errorf("Message = %q", Message(err))
	}
}

func TestPutContent_ErrorInSuccessfulReply(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"disk full"}`))
	}))
	defer ts.Close()

	err := c.SaveNotes(context.Background(), "x")
	if Message(err) != "disk full" {
		t.Fatalf("expected backend message, got %v", err)
	}
}

func TestPutContent_SendsJSON(t *testing.T) {
	var got contentBody
	var ctype string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctype = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer ts.Close()

	if err := c.PutContent(context.Background(), PathNotes, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != "hello" || ctype != "application/json" {
		t.Errorf("server saw %+v with content-type %q", got, ctype)
	}
}

func TestStatusAndDecodeErrors(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/notes" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	_, err := c.GetNotes(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadGateway {
		t.Errorf("expected StatusError 502, got %T: %v", err, err)
	}

	_, err = c.GetContent(context.Background(), "/api/clipboard")
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Errorf("expected DecodeError, got %T: %v", err, err)
	}
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(Config{BaseURL: url})
	_, err := c.ListFiles(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
}

func TestListFiles(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"a.txt","size":1536,"url":"/api/files/a.txt"}]`))
	}))
	defer ts.Close()

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Name != "a.txt" || files[0].Size != 1536 || files[0].URL != "/api/files/a.txt" {
		t.Errorf("unexpected files %+v", files)
	}
}

func TestListFiles_Empty(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", files)
	}
}

func TestUploadFile_Multipart(t *testing.T) {
	var name, body string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		name, body = hdr.Filename, string(data)
		w.Write([]byte(`{"message":"File uploaded successfully","filename":"report.pdf"}`))
	}))
	defer ts.Close()

	if err := c.UploadFile(context.Background(), "report.pdf", strings.NewReader("%PDF")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "report.pdf" || body != "%PDF" {
		t.Errorf("server saw %q / %q", name, body)
	}
}

// stallingReader yields size bytes, then blocks until release is closed.
type stallingReader struct {
	left    int
	stalled chan struct{}
	release chan struct{}
}

func (r *stallingReader) Read(p []byte) (int, error) {
	if r.left == 0 {
		close(r.stalled)
		<-r.release
		return 0, io.EOF
	}
	n := min(len(p), r.left)
	for i := range p[:n] {
		p[i] = 'x'
	}
	r.left -= n
	return n, nil
}

func TestUploadFile_StreamsBody(t *testing.T) {
	arrived := make(chan struct{})
	var got int64
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		got, _ = io.Copy(io.Discard, f)
		w.Write([]byte(`{"message":"File uploaded successfully"}`))
	}))
	defer ts.Close()

	src := &stallingReader{left: 1 << 20, stalled: make(chan struct{}), release: make(chan struct{})}
	done := make(chan error, 1)
	go func() { done <- c.UploadFile(context.Background(), "big.zip", src) }()

	<-src.stalled
	select {
	case <-arrived:
	case <-time.After(5 * time.Second):
		close(src.release)
		t.Fatal("request not sent while the file was still being read")
	}
	close(src.release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1<<20 {
		t.Errorf("server received %d bytes", got)
	}
}

func TestUploadFile_ReadErrorAbortsRequest(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`{"message":"File uploaded successfully"}`))
	}))
	defer ts.Close()

	boom := errors.New("disk gone")
	err := c.UploadFile(context.Background(), "a.txt", io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(boom)))
	if err == nil {
		t.Fatal("expected an error")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Errorf("expected TransportError, got %T: %v", err, err)
	}
}

func TestUploadFile_Rejected(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"File type not allowed"}`))
	}))
	defer ts.Close()

	err := c.UploadFile(context.Background(), "run.exe", strings.NewReader("MZ"))
	if Message(err) != "File type not allowed" {
		t.Fatalf("expected rejection message, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/files/a.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("contents"))
	}))
	defer ts.Close()

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), FileEntry{Name: "a.txt", URL: "/api/files/a.txt"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 8 || buf.String() != "contents" {
		t.Errorf("downloaded %d bytes: %q", n, buf.String())
	}

	_, err = c.Download(context.Background(), FileEntry{URL: "/api/files/missing"}, &buf)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Errorf("expected 404 StatusError, got %v", err)
	}
}
