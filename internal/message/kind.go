// Package message defines the closed set of chat message kinds and how they
// are summarized for chat lists.
package message

import "strings"

// Type names a message kind. It is what the store keeps in the kind column.
type Type string

const (
	TypeText Type = "text"
)

// Kind is a chat message payload. The set of kinds is closed: only types in
// this package implement it.
type Kind interface {
	Type() Type
	isKind()
}

// Text is a plain text message.
type Text struct {
	Body string
}

// Type implements Kind.
func (Text) Type() Type { return TypeText }

func (Text) isKind() {}

// Preview returns a one-line summary of k suitable for chat lists and logs.
func Preview(k Kind, maxLen int) string {
	switch v := k.(type) {
	case Text:
		return truncate(firstLine(v.Body), maxLen)
	case nil:
		return ""
	default:
		return "[" + string(k.Type()) + "]"
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// truncate cuts s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
