package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string. A leading ':' is optional.
func ParseCommand(input string) Command {
	input = strings.TrimPrefix(strings.TrimSpace(input), ":")
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	return Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}
}

// command names and their aliases.
var commandAliases = map[string]string{
	"chat":    "chat",
	"c":       "chat",
	"search":  "search",
	"s":       "search",
	"offline": "offline",
	"online":  "online",
	"help":    "help",
	"h":       "help",
	"quit":    "quit",
	"q":       "quit",
}

// Canonical returns the full command name for an alias, or "" if unknown.
func (c Command) Canonical() string {
	return commandAliases[c.Name]
}
