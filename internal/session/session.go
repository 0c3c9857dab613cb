// Package session is the LocalBridge sync client: one controller object that
// owns the device role, the displayed clipboard, the notes buffer, the file
// list, the upload queue and the three status slots.
//
// All displayed state lives in a single Elements value guarded by the session
// mutex. Every mutation produces a snapshot that is handed to the OnChange
// hook, which is how the CLI renders.
package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"go.klb.dev/localbridge/internal/api"
	"go.klb.dev/localbridge/internal/clip"
	"go.klb.dev/localbridge/internal/role"
)

// Default timings of the web client.
const (
	DefaultClipboardInterval = 2 * time.Second
	DefaultNotesInterval     = 3 * time.Second
	DefaultSaveDelay         = 500 * time.Millisecond
	DefaultIdleDelay         = 2 * time.Second

	closeSaveTimeout = 5 * time.Second
)

// Backend is the subset of the LocalBridge API the session uses.
// *api.Client implements it.
type Backend interface {
	GetContent(ctx context.Context, path string) (string, error)
	PutContent(ctx context.Context, path, content string) error
	GetNotes(ctx context.Context) (string, error)
	SaveNotes(ctx context.Context, content string) error
	ListFiles(ctx context.Context) ([]api.FileEntry, error)
	UploadFile(ctx context.Context, name string, r io.Reader) error
	Download(ctx context.Context, entry api.FileEntry, w io.Writer) (int64, error)
}

// RoleStore persists the chosen role. *role.Store implements it.
type RoleStore interface {
	Save(role.DeviceRole) error
}

// Config holds session configuration. Zero durations take the defaults.
type Config struct {
	Role      role.DeviceRole
	Store     RoleStore
	Clipboard clip.Backend

	// SingleRole selects the older client variant: one shared /api/clipboard
	// endpoint and no periodic notes refresh.
	SingleRole bool

	ClipboardInterval time.Duration
	NotesInterval     time.Duration
	SaveDelay         time.Duration
	IdleDelay         time.Duration
	StatusDelays      StatusDelays

	// OnChange receives a snapshot after every change to Elements.
	OnChange func(Elements)
}

// Progress of the running upload batch.
type Progress struct {
	Done  int
	Total int
}

// Percent returns the completed share in [0, 100].
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total) * 100
}

// Elements is everything the client displays.
type Elements struct {
	Role   role.DeviceRole
	Labels role.Labels

	ClipboardDisplay string
	ClipboardInput   string

	Notes     string
	NotesIdle bool

	Files            []api.FileEntry
	FilesPlaceholder string

	Uploading bool
	Progress  Progress

	UploadStatus    Status
	ClipboardStatus Status
	NotesStatus     Status
}

func (e *Elements) status(s Slot) *Status {
	switch s {
	case SlotUpload:
		return &e.UploadStatus
	case SlotClipboard:
		return &e.ClipboardStatus
	default:
		return &e.NotesStatus
	}
}

func (e Elements) clone() Elements {
	if e.Files != nil {
		e.Files = append([]api.FileEntry(nil), e.Files...)
	}
	return e
}

// Session is the client controller.
type Session struct {
	cfg     Config
	backend Backend

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	el     Elements
	timers statusTimers

	// clipboard response ordering
	clipSent    uint64
	clipApplied uint64

	// notes state machine
	notesEdits uint64
	notesSaved uint64
	saveMu     sync.Mutex
	saveLater  func(func())
	idleLater  func(func())

	uploadMu sync.Mutex
}

// New returns a session for backend. Call Close when done.
func New(backend Backend, cfg Config) *Session {
	if cfg.Role == "" {
		cfg.Role = role.PC
	}
	if cfg.ClipboardInterval == 0 {
		cfg.ClipboardInterval = DefaultClipboardInterval
	}
	if cfg.NotesInterval == 0 {
		cfg.NotesInterval = DefaultNotesInterval
	}
	if cfg.SaveDelay == 0 {
		cfg.SaveDelay = DefaultSaveDelay
	}
	if cfg.IdleDelay == 0 {
		cfg.IdleDelay = DefaultIdleDelay
	}
	if cfg.StatusDelays == (StatusDelays{}) {
		cfg.StatusDelays = DefaultStatusDelays
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:       cfg,
		backend:   backend,
		ctx:       ctx,
		cancel:    cancel,
		saveLater: debounce.New(cfg.SaveDelay),
		idleLater: debounce.New(cfg.IdleDelay),
	}
	s.el = Elements{
		Role:             cfg.Role,
		Labels:           cfg.Role.Labels(),
		NotesIdle:        true,
		FilesPlaceholder: noFiles,
	}
	return s
}

// Snapshot returns a copy of the displayed state.
func (s *Session) Snapshot() Elements {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.el.clone()
}

// Role returns the current device role.
func (s *Session) Role() role.DeviceRole {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.el.Role
}

// update applies fn under the session lock and publishes the result.
func (s *Session) update(fn func(e *Elements)) {
	s.mu.Lock()
	fn(&s.el)
	snap := s.el.clone()
	s.mu.Unlock()

	if s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
}

// Start performs the initial fetch of files, clipboard and notes. Failures
// are logged and leave the corresponding element empty.
func (s *Session) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, load := range []func(context.Context) error{s.LoadFiles, s.LoadClipboard, s.LoadNotes} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = load(ctx)
		}()
	}
	wg.Wait()
}

// Run performs the initial fetch and then polls until ctx is done: the
// clipboard on every tick, the notes only while idle. Poll requests are fired
// without waiting for earlier ones.
func (s *Session) Run(ctx context.Context) error {
	s.Start(ctx)

	clipTick := time.NewTicker(s.cfg.ClipboardInterval)
	defer clipTick.Stop()

	var notesC <-chan time.Time
	if !s.cfg.SingleRole {
		notesTick := time.NewTicker(s.cfg.NotesInterval)
		defer notesTick.Stop()
		notesC = notesTick.C
	}

	slog.Info("session running",
		"role", s.Role(),
		"single_role", s.cfg.SingleRole,
		"clipboard_every", s.cfg.ClipboardInterval,
		"notes_every", s.cfg.NotesInterval,
	)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		case <-clipTick.C:
			s.goRequest(func() { _ = s.LoadClipboard(ctx) })
		case <-notesC:
			s.goRequest(func() { _, _ = s.RefreshNotes(ctx) })
		}
	}
}

func (s *Session) goRequest(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Close saves notes edited since the last save, then cancels pending
// timer-driven work and waits for in-flight requests.
func (s *Session) Close() {
	s.saveLater(func() {})
	s.idleLater(func() {})
	ctx, cancel := context.WithTimeout(context.Background(), closeSaveTimeout)
	if err := s.FlushNotes(ctx); err != nil {
		slog.Warn("final notes save failed", "err", err)
	}
	cancel()

	s.cancel()
	s.stopStatusTimers()
	s.wg.Wait()
}
