package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed conversation history supplied by the caller
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal marks an unexpected fault while producing a reply
	ErrInternal = errors.New("internal error")
)

// IsInvalidInput reports whether err was caused by bad caller input
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInternal reports whether err is an internal fault
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateHistory checks that messages is non-empty, every role is known and
// the last message comes from the user.
func ValidateHistory(messages []Message) error {
	if len(messages) == 0 {
		return invalidInput("message history is empty")
	}
	for i, msg := range messages {
		if !validRole(msg.Role) {
			return invalidInput("message %d has unknown role %q", i, msg.Role)
		}
	}
	if last := messages[len(messages)-1]; last.Role != RoleUser {
		return invalidInput("last message must come from the user, got %q", last.Role)
	}
	return nil
}
