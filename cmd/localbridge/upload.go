package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/session"
)

func newUploadCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload files to the server",
		Long: `Uploads each FILE in order. The first failure stops the batch: files
before it stay uploaded, files after it are not sent.`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runUpload(cmd, v, args) },
	}
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)
	return cmd
}

func runUpload(cmd *cobra.Command, v *viper.Viper, paths []string) error {
	closer, err := setupLogging(v, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	out := cmd.ErrOrStderr()
	s, err := newSession(v, session.Config{OnChange: progressPrinter(out)})
	if err != nil {
		return err
	}
	defer s.Close()

	queue := make([]session.Upload, len(paths))
	for i, p := range paths {
		queue[i] = session.FileUpload(p)
	}
	_, err = s.UploadFiles(context.Background(), queue)
	st := s.Snapshot().UploadStatus
	if err != nil {
		return statusError(st, err)
	}
	fmt.Fprintln(out, st.Message)
	return nil
}

// progressPrinter reports each change of upload progress on one line.
func progressPrinter(out io.Writer) func(session.Elements) {
	var (
		mu   sync.Mutex
		last session.Progress
	)
	return func(el session.Elements) {
		if !el.Uploading || el.Progress.Done == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if el.Progress == last {
			return
		}
		last = el.Progress
		fmt.Fprintf(out, "Uploaded %d/%d (%.0f%%)\n", el.Progress.Done, el.Progress.Total, el.Progress.Percent())
	}
}
