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

func newNotesCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Print the shared notes",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindViper(cmd, v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return runNotesGet(cmd, v) },
	}
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	cmd.AddCommand(newNotesSetCmd())
	return cmd
}

func newNotesSetCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "set [TEXT...]",
		Short: "Replace the shared notes",
		Long: `Replaces the shared notes with TEXT, or with stdin when no arguments
are given. An empty stdin clears the notes.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runNotesSet(cmd, v, args) },
	}
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)
	return cmd
}

func runNotesGet(cmd *cobra.Command, v *viper.Viper) error {
	closer, err := setupLogging(v, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	s, err := newSession(v, session.Config{})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.LoadNotes(context.Background()); err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), s.Snapshot().Notes)
	return nil
}

func runNotesSet(cmd *cobra.Command, v *viper.Viper, args []string) error {
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

	s, err := newSession(v, session.Config{})
	if err != nil {
		return err
	}
	defer s.Close()

	s.Input(text)
	err = s.FlushNotes(context.Background())
	st := s.Snapshot().NotesStatus
	if err != nil {
		return statusError(st, err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), st.Message)
	return nil
}
