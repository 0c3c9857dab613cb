package role

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const storeKey = "device_type"

// Store persists the chosen role in a small TOML state file so it survives
// restarts.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStatePath returns $XDG_CONFIG_HOME/localbridge/state.toml (or the
// platform equivalent).
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "localbridge", "state.toml")
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load returns the persisted role. ok is false when nothing was saved yet.
func (s *Store) Load() (r DeviceRole, ok bool, err error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read role state: %w", err)
	}
	raw := v.GetString(storeKey)
	if raw == "" {
		return "", false, nil
	}
	r, err = Parse(raw)
	if err != nil {
		return "", false, err
	}
	return r, true, nil
}

// Save persists r.
func (s *Store) Save(r DeviceRole) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	v := viper.New()
	v.SetConfigType("toml")
	v.Set(storeKey, string(r))
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write role state: %w", err)
	}
	return nil
}

// Resolve returns the persisted role, or the detected one if none is saved.
func (s *Store) Resolve(h Hints) (DeviceRole, error) {
	r, ok, err := s.Load()
	if err != nil {
		return Detect(h), err
	}
	if ok {
		return r, nil
	}
	return Detect(h), nil
}
