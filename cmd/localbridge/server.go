package main

import (
	"fmt"
	"log/slog"
	"net"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/clip"
	"go.klb.dev/localbridge/internal/server"
)

func newServerCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the LocalBridge server",
		Long: `Starts the LocalBridge HTTP server. Both devices point --url at it.

Uploaded files go to <root>/uploads, clipboards and notes to <root>/data.
/api/clipboard reads and writes this host's system clipboard.

If --port is taken the next free port is used; the URL to open on the phone
is printed at startup.

Config file search order:
  /etc/localbridge/localbridge.toml
  $HOME/.config/localbridge/localbridge.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → LOCALBRIDGE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServer(v) },
	}

	f := cmd.Flags()
	f.String("host", "0.0.0.0", "listen address")
	f.Int("port", 5000, "listen port (the next free port is used when taken)")
	f.Int("port-attempts", 20, "how many ports to try")
	f.String("root", ".", "directory holding uploads/ and data/")
	f.String("upload-dir", "", "uploads directory (default <root>/uploads)")
	f.String("data-dir", "", "clipboard and notes directory (default <root>/data)")
	f.Int64("max-upload", server.MaxUploadSize, "largest accepted upload in bytes")
	f.StringSlice("allow", server.DefaultAllowedExtensions, "accepted upload extensions")
	f.Bool("no-system-clipboard", false, "back /api/clipboard with memory instead of the OS clipboard")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServer(v *viper.Viper) error {
	closer, err := setupLogging(v, false)
	if err != nil {
		return err
	}
	defer closer.Close()

	var backend clip.Backend = &clip.Memory{}
	if !v.GetBool("no-system-clipboard") {
		backend = clip.New()
	}

	root := v.GetString("root")
	srv, err := server.New(server.Config{
		Root:          root,
		UploadDir:     v.GetString("upload-dir"),
		DataDir:       v.GetString("data-dir"),
		MaxUploadSize: v.GetInt64("max-upload"),
		Allowed:       v.GetStringSlice("allow"),
		Clipboard:     backend,
	})
	if err != nil {
		return err
	}

	ln, err := server.Listen(v.GetString("host"), v.GetInt("port"), v.GetInt("port-attempts"))
	if err != nil {
		return err
	}

	abs, _ := filepath.Abs(root)
	url := fmt.Sprintf("http://%s:%d", server.LocalIP(), ln.Addr().(*net.TCPAddr).Port)
	slog.Info("localbridge server starting",
		"version", Version,
		"addr", ln.Addr(),
		"url", url,
		"root", abs,
		"clipboard", backend.Name(),
	)
	fmt.Printf("LocalBridge is running at: %s\n", url)
	fmt.Println("Access from your mobile device using the above URL")

	ctx, stop := signalContext()
	defer stop()
	return srv.Serve(ctx, ln)
}
