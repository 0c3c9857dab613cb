// Package api is the HTTP client for the LocalBridge backend.
//
// Every call is a single request: no retries, no backoff. Errors are
// classified so callers can tell a dead network from a backend that answered
// with {"error": "..."}.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend routes.
const (
	PathFiles     = "/api/files"
	PathClipboard = "/api/clipboard"
	PathNotes     = "/api/notes"
)

// RequestIDHeader carries a per-request UUID so client and server logs line up.
const RequestIDHeader = "X-Request-ID"

// FileEntry is one uploaded file as listed by the backend.
type FileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// contentBody is the shape of clipboard and notes requests and responses.
type contentBody struct {
	Content string `json:"content"`
}

// reply is the generic envelope of write responses.
type reply struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client talks to one LocalBridge backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	// Timeout of 0 leaves the transport defaults in place.
	Timeout time.Duration
}

// New creates a new client.
func New(cfg Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string { return c.baseURL }

// GetContent fetches {content} from path. A missing content field yields "".
func (c *Client) GetContent(ctx context.Context, path string) (string, error) {
	var body struct {
		Content *string `json:"content"`
		Error   string  `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &body); err != nil {
		return "", err
	}
	if body.Error != "" {
		return "", &BackendError{Path: path, Message: body.Error}
	}
	if body.Content == nil {
		return "", nil
	}
	return *body.Content, nil
}

// PutContent posts {content} as JSON to path.
func (c *Client) PutContent(ctx context.Context, path, content string) error {
	raw, err := json.Marshal(contentBody{Content: content})
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	var r reply
	if err := c.doJSON(ctx, http.MethodPost, path, bytes.NewReader(raw), "application/json", &r); err != nil {
		return err
	}
	if r.Error != "" {
		return &BackendError{Path: path, Message: r.Error}
	}
	return nil
}

// GetNotes fetches the shared notes buffer.
func (c *Client) GetNotes(ctx context.Context) (string, error) {
	return c.GetContent(ctx, PathNotes)
}

// SaveNotes replaces the shared notes buffer.
func (c *Client) SaveNotes(ctx context.Context, content string) error {
	return c.PutContent(ctx, PathNotes, content)
}

// ListFiles returns every file the backend holds.
func (c *Client) ListFiles(ctx context.Context) ([]FileEntry, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, PathFiles, nil, "", &raw); err != nil {
		return nil, err
	}
	var files []FileEntry
	if err := json.Unmarshal(raw, &files); err != nil {
		var r reply
		if json.Unmarshal(raw, &r) == nil && r.Error != "" {
			return nil, &BackendError{Path: PathFiles, Message: r.Error}
		}
		return nil, &DecodeError{Path: PathFiles, Err: err}
	}
	if files == nil {
		files = []FileEntry{}
	}
	return files, nil
}

// UploadFile posts one file as multipart form field "file". The body is
// streamed from r as the request is sent.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("multipart: %w", err))
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(fmt.Errorf("read %s: %w", name, err))
			return
		}
		pw.CloseWithError(mw.Close())
	}()
	defer pr.Close()

	var rep reply
	if err := c.doJSON(ctx, http.MethodPost, PathFiles, pr, mw.FormDataContentType(), &rep); err != nil {
		return err
	}
	if rep.Error != "" {
		return &BackendError{Path: PathFiles, Message: rep.Error}
	}
	return nil
}

// Download streams the file at entry.URL into w.
func (c *Client) Download(ctx context.Context, entry FileEntry, w io.Writer) (int64, error) {
	url := entry.URL
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, readFailure(entry.URL, resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Path: entry.URL, Err: err}
	}
	return n, nil
}

// doJSON performs one request and decodes the body into out. Bodies carrying
// {"error": ...} decode without error; callers inspect them. Non-2xx replies
// without an error field become a StatusError.
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readFailure(path, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	id := uuid.NewString()
	req.Header.Set(RequestIDHeader, id)
	slog.Debug("api request", "method", req.Method, "path", req.URL.Path, "request_id", id)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Path: req.URL.Path, Err: err}
	}
	return resp, nil
}

// readFailure turns a non-2xx response into a BackendError when the body
// carries an error message, a StatusError otherwise.
func readFailure(path string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var r reply
	if json.Unmarshal(data, &r) == nil && r.Error != "" {
		return &BackendError{Path: path, Status: resp.StatusCode, Message: r.Error}
	}
	return &StatusError{Path: path, Status: resp.StatusCode}
}

// TransportError is a network-level failure: the request never got an answer.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx reply without an error message.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server returned %d", e.Path, e.Status)
}

// DecodeError is a reply whose body is not the expected JSON.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: decode: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// BackendError is a reply of the form {"error": "message"}.
type BackendError struct {
	Path    string
	Status  int
	Message string
}

func (e *BackendError) Error() string { return e.Message }

// Message returns the text shown to a user for err: the backend's own
// message when there is one, the error text otherwise.
func Message(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
