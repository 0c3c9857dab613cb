package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/role"
	"go.klb.dev/localbridge/internal/session"
)

func newRoleCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "role [pc|mobile]",
		Short: "Show or set this device's role",
		Long: `Without arguments prints the role this device uses and where it came
from. With an argument switches to that role, saves it for later sessions
and shows the clipboard the new role reads.

The role decides which clipboard is written (our own) and which is read
(the other device's).`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runRole(cmd, v, args) },
	}
	addClientFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)
	return cmd
}

func runRole(cmd *cobra.Command, v *viper.Viper, args []string) error {
	closer, err := setupLogging(v, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		r, err := role.Parse(args[0])
		if err != nil {
			return err
		}
		s, err := newSession(v, session.Config{})
		if err != nil {
			return err
		}
		defer s.Close()

		s.SetDeviceType(context.Background(), r)
		el := s.Snapshot()
		fmt.Fprintf(out, "Role set to %s (%s)\n", el.Role.Title(), roleStore(v).Path())
		fmt.Fprintf(out, "%s\n%s\n", el.Labels.Display, el.ClipboardDisplay)
		return nil
	}

	source, err := roleSource(v)
	if err != nil {
		return err
	}
	s, err := newSession(v, session.Config{})
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(out, "%s (%s)\n", s.Role().Title(), source)
	fmt.Fprintf(out, "writes %s, reads %s\n", s.WritePath(), s.ReadPath())
	return nil
}

// roleSource names where resolveRole takes the role from.
func roleSource(v *viper.Viper) (string, error) {
	if v.GetString("role") != "" {
		return "flag", nil
	}
	_, ok, err := roleStore(v).Load()
	switch {
	case err != nil:
		return "", err
	case ok:
		return "saved", nil
	default:
		return "detected", nil
	}
}
