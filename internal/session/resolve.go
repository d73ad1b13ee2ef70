package session

import (
	"os"

	"github.com/matheus3301/parley/internal/config"
)

const DefaultSessionName = "main"

// SessionEnv selects the session when no --session flag is given.
const SessionEnv = "PARLEY_SESSION"

// Resolve picks the active session name. The --session flag wins, then
// $PARLEY_SESSION, then default_session from config.toml, then "main". An
// unreadable config is treated as absent.
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if env := os.Getenv(SessionEnv); env != "" {
		return env
	}
	cfg, err := config.LoadOrDefault(ConfigPath())
	if err != nil || cfg.DefaultSession == "" {
		return DefaultSessionName
	}
	return cfg.DefaultSession
}
