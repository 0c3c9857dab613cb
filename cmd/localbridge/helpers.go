package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"go.klb.dev/localbridge/internal/api"
	"go.klb.dev/localbridge/internal/role"
	"go.klb.dev/localbridge/internal/session"
)

var envKeys = strings.NewReplacer("-", "_")

// defaultUserAgent describes this host the way a browser would, so that role
// detection treats phones running the CLI (Termux, iSH) as mobile.
func defaultUserAgent() string {
	switch runtime.GOOS {
	case "android":
		return "localbridge (Linux; Android)"
	case "ios":
		return "localbridge (iPhone; iOS)"
	default:
		return fmt.Sprintf("localbridge (%s; %s)", runtime.GOOS, runtime.GOARCH)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newClient(v *viper.Viper) *api.Client {
	return api.New(api.Config{
		BaseURL: v.GetString("url"),
		Timeout: v.GetDuration("timeout"),
	})
}

func roleStore(v *viper.Viper) *role.Store {
	path := v.GetString("state-file")
	if path == "" {
		path = role.DefaultStatePath()
	}
	return role.NewStore(path)
}

// resolveRole picks the role: --role, then the saved role, then detection.
func resolveRole(v *viper.Viper, store *role.Store) (role.DeviceRole, error) {
	if s := v.GetString("role"); s != "" {
		return role.Parse(s)
	}
	r, err := store.Resolve(role.Hints{
		UserAgent:     v.GetString("user-agent"),
		ViewportWidth: v.GetInt("viewport-width"),
	})
	if err != nil {
		slog.Warn("reading saved role failed, using detection", "path", store.Path(), "err", err)
	}
	return r, nil
}

// newSession builds a session from the shared client flags. cfg supplies the
// command-specific parts; role, store and backend are filled in here.
func newSession(v *viper.Viper, cfg session.Config) (*session.Session, error) {
	store := roleStore(v)
	r, err := resolveRole(v, store)
	if err != nil {
		return nil, err
	}
	cfg.Role = r
	cfg.Store = store
	cfg.SingleRole = v.GetBool("single-role")
	return session.New(newClient(v), cfg), nil
}

// statusError turns a failed status slot into the command's error so the
// exit code reflects it.
func statusError(st session.Status, err error) error {
	if err == nil {
		return nil
	}
	if st.Message != "" {
		return errors.New(st.Message)
	}
	return err
}
