package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/clip"
	"go.klb.dev/localbridge/internal/session"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print the other device's clipboard (like pbpaste)",
		Long: `Fetches the other device's clipboard and writes it to stdout. A PC reads
the mobile clipboard and a phone reads the PC clipboard.

With --os the text is also placed on this host's system clipboard.
An empty clipboard prints nothing and exits 0.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd, v) },
	}

	cmd.Flags().Bool("os", false, "also copy the text into the system clipboard")
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPaste(cmd *cobra.Command, v *viper.Viper) error {
	closer, err := setupLogging(v, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	cfg := session.Config{}
	if v.GetBool("os") {
		cfg.Clipboard = clip.New()
	}
	s, err := newSession(v, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.LoadClipboard(context.Background()); err != nil {
		return fmt.Errorf("load clipboard: %w", err)
	}
	text := s.Snapshot().ClipboardDisplay
	fmt.Fprint(cmd.OutOrStdout(), text)

	if !v.GetBool("os") {
		return nil
	}
	err = s.CopyToClipboard()
	st := s.Snapshot().ClipboardStatus
	if err != nil {
		return statusError(st, err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), st.Message)
	return nil
}
