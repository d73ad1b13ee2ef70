package session

import (
	"os"
	"path/filepath"
	"sort"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "PARLEY_HOME"

// BaseDir returns $PARLEY_HOME, or ~/.parley.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parley")
}

// SessionsDir returns the directory holding every session.
func SessionsDir() string {
	return filepath.Join(BaseDir(), "sessions")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(SessionsDir(), name)
}

// LockPath returns the lock file path for a session.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// AppDBPath returns the parley.db path.
func AppDBPath(name string) string {
	return filepath.Join(Dir(name), "parley.db")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the session log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "parley.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// List returns the names of existing sessions, sorted. Entries that are not
// valid session names are skipped.
func List() ([]string, error) {
	entries, err := os.ReadDir(SessionsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && ValidateName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
