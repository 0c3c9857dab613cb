// localbridge: share a clipboard, notes and files between a PC and a phone on
// the same network.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "localbridge",
		Short: "Share clipboard, notes and files between a PC and a phone",
		Long: `localbridge keeps two clipboards (one per device), a shared notes
buffer and a file drop on a small HTTP server on your LAN.

Run "localbridge server" on one machine. On each device, "localbridge run"
keeps a live session: it shows the other device's clipboard, syncs notes and
uploads files dropped into a folder. copy/paste/notes/files/upload are
one-shot tools for scripts.

Config file search order (first found wins):
  /etc/localbridge/localbridge.toml
  $HOME/.config/localbridge/localbridge.toml
  path supplied via --config

All flags can be set via LOCALBRIDGE_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServerCmd(),
		newRunCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newNotesCmd(),
		newFilesCmd(),
		newUploadCmd(),
		newRoleCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("localbridge %s\n", Version)
		},
	}
}
