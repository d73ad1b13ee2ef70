package session

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidName is returned for names that cannot be used as a session
// directory.
var ErrInvalidName = errors.New("invalid session name")

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name is lowercase letters, digits, '_' or '-', at
// most 64 long.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidName, name, nameRegexp)
	}
	return nil
}
