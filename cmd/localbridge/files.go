package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/api"
	"go.klb.dev/localbridge/internal/session"
)

func newFilesCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "files",
		Short:   "List files on the server",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runFiles(cmd, v) },
	}
	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	cmd.AddCommand(newFilesGetCmd())
	return cmd
}

func newFilesGetCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Download a file",
		Long: `Downloads NAME from the server into the current directory, or into
--output. Use --output - to write to stdout.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runFilesGet(cmd, v, args[0]) },
	}
	cmd.Flags().StringP("output", "o", "", "destination path (default ./NAME)")
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)
	return cmd
}

func runFiles(cmd *cobra.Command, v *viper.Viper) error {
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

	if err := s.LoadFiles(context.Background()); err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	el := s.Snapshot()

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(el.Files, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(enc))
		return nil
	}
	printFiles(cmd.OutOrStdout(), el)
	return nil
}

func printFiles(out io.Writer, el session.Elements) {
	if len(el.Files) == 0 {
		fmt.Fprintln(out, el.FilesPlaceholder)
		return
	}
	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "NAME\tSIZE\tURL\n")
	_, _ = fmt.Fprintf(tw, "----\t----\t---\n")
	for _, f := range el.Files {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, session.FormatBytes(f.Size), f.URL)
	}
	_ = tw.Flush()
}

func runFilesGet(cmd *cobra.Command, v *viper.Viper, name string) error {
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

	ctx := context.Background()
	if err := s.LoadFiles(ctx); err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	entry, err := s.FindFile(name)
	if err != nil {
		return err
	}

	dest := v.GetString("output")
	if dest == "-" {
		_, err := s.DownloadFile(ctx, entry, cmd.OutOrStdout())
		return err
	}
	if dest == "" {
		dest = filepath.Base(entry.Name)
	}
	return downloadTo(ctx, s, entry, dest, cmd.ErrOrStderr())
}

// downloadTo writes entry to dest, removing the partial file on failure.
func downloadTo(ctx context.Context, s *session.Session, entry api.FileEntry, dest string, log io.Writer) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := s.DownloadFile(ctx, entry, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("download %s: %w", entry.Name, err)
	}
	fmt.Fprintf(log, "Saved %s (%s)\n", dest, session.FormatBytes(n))
	return nil
}
