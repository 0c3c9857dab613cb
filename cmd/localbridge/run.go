package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/clip"
	"go.klb.dev/localbridge/internal/localpeer"
	"go.klb.dev/localbridge/internal/role"
	"go.klb.dev/localbridge/internal/session"
	"go.klb.dev/localbridge/internal/watch"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep a live session with the server",
		Long: `Polls the other device's clipboard every 2s and the shared notes every 3s
(only while the notes are not being edited), printing changes as they happen.

  --drop-dir DIR     files created in DIR are uploaded
  --notes-file FILE  FILE mirrors the notes; saving it updates them
  --os-clipboard     clipboard text from the other device lands on this
                     host's clipboard, and text copied here is shared

Lines typed on stdin switch the role while running: "pc", "mobile" or
"toggle".`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runRun(cmd, v) },
	}

	f := cmd.Flags()
	f.String("drop-dir", "", "upload files created in this directory")
	f.String("notes-file", "", "mirror the shared notes to this file")
	f.Bool("os-clipboard", false, "link the system clipboard to the session")
	f.Duration("clipboard-interval", session.DefaultClipboardInterval, "clipboard poll interval")
	f.Duration("notes-interval", session.DefaultNotesInterval, "notes poll interval")
	f.Duration("save-delay", session.DefaultSaveDelay, "quiet time before edited notes are saved")
	f.Duration("idle-delay", session.DefaultIdleDelay, "quiet time before notes polling resumes")
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runRun(cmd *cobra.Command, v *viper.Viper) error {
	closer, err := setupLogging(v, false)
	if err != nil {
		return err
	}
	defer closer.Close()

	var (
		rend   = newRenderer(cmd.OutOrStdout())
		mirror *notesMirror
		peer   *localpeer.Peer
		osClip clip.Backend
	)
	dir := v.GetString("drop-dir")
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("drop dir: %w", err)
		}
	}
	notesFile := v.GetString("notes-file")
	if notesFile != "" {
		if err := os.MkdirAll(filepath.Dir(notesFile), 0o755); err != nil {
			return fmt.Errorf("notes file: %w", err)
		}
		mirror = newNotesMirror(notesFile)
	}
	if v.GetBool("os-clipboard") {
		osClip = clip.New()
	}

	// peer is assigned below, before any request can produce a change.
	onChange := func(el session.Elements) {
		rend.render(el)
		if mirror != nil {
			mirror.Update(el.Notes)
		}
		if peer != nil {
			peer.Deliver(el.ClipboardDisplay)
		}
	}

	s, err := newSession(v, session.Config{
		Clipboard:         osClip,
		ClipboardInterval: v.GetDuration("clipboard-interval"),
		NotesInterval:     v.GetDuration("notes-interval"),
		SaveDelay:         v.GetDuration("save-delay"),
		IdleDelay:         v.GetDuration("idle-delay"),
		OnChange:          onChange,
	})
	if err != nil {
		return err
	}
	defer s.Close()
	if osClip != nil {
		peer = localpeer.New(s, osClip)
	}

	ctx, stop := signalContext()
	defer stop()

	slog.Info("localbridge session starting", "version", Version, "url", v.GetString("url"), "role", s.Role())

	var wg sync.WaitGroup
	spawn := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				slog.Error(name+" stopped", "err", err)
			}
		}()
	}

	if peer != nil {
		spawn("local clipboard peer", func() error { return peer.Run(ctx, true) })
	}
	if dir != "" {
		slog.Info("watching drop directory", "dir", dir)
		spawn("drop directory", func() error {
			return watch.Dir(ctx, dir, watch.DefaultSettle, func(paths []string) {
				queue := make([]session.Upload, len(paths))
				for i, p := range paths {
					queue[i] = session.FileUpload(p)
				}
				_, _ = s.UploadFiles(ctx, queue)
			})
		})
	}
	if mirror != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mirror.Run(ctx.Done())
		}()
		slog.Info("mirroring notes", "file", notesFile)
		spawn("notes file", func() error {
			return watch.File(ctx, notesFile, watch.DefaultSettle, func(content string) {
				mirror.Seen(content)
				if content != s.Snapshot().Notes {
					s.Input(content)
				}
			})
		})
	}

	// stdin reads cannot be interrupted, so this goroutine is not waited for
	go readRoleCommands(ctx, cmd.InOrStdin(), s)

	err = s.Run(ctx)
	wg.Wait()
	return err
}

// readRoleCommands switches the session role on "pc", "mobile" or "toggle"
// lines until in is exhausted or ctx is done.
func readRoleCommands(ctx context.Context, in io.Reader, s *session.Session) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r role.DeviceRole
		if line == "toggle" {
			r = s.Role().Peer()
		} else {
			var err error
			if r, err = role.Parse(line); err != nil {
				slog.Warn("unknown command, expected pc, mobile or toggle", "input", line)
				continue
			}
		}
		s.SetDeviceType(ctx, r)
	}
}
