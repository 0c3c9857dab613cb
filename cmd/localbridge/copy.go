package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/session"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy [TEXT...]",
		Short: "Set this device's clipboard (like pbcopy)",
		Long: `Sends TEXT, or stdin when no arguments are given, to this device's
clipboard on the server. The other device sees it on its next poll.

  echo "https://example.com" | localbridge copy
  localbridge copy --role mobile "sent from the phone"`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runCopy(cmd, v, args) },
	}

	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper, args []string) error {
	closer, err := setupLogging(v, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if text == "" {
		return nil
	}

	s, err := newSession(v, session.Config{})
	if err != nil {
		return err
	}
	defer s.Close()

	s.SetClipboardInput(text)
	err = s.SetClipboard(context.Background())
	st := s.Snapshot().ClipboardStatus
	if err != nil {
		return statusError(st, err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), st.Message)
	return nil
}
