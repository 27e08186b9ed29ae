package common

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxMessageLength = 10000

var (
	emailRegex  = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	handleRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

const (
	RoleStartup  = "startup"
	RoleInvestor = "investor"
	RoleAdmin    = "admin"
)

func ValidateHandle(handle string) error {
	handle = strings.TrimSpace(handle)
	if len(handle) < 3 || len(handle) > 50 {
		return fmt.Errorf("%w: handle must be between 3 and 50 characters", ErrInvalidArgument)
	}
	if !handleRegex.MatchString(handle) {
		return fmt.Errorf("%w: handle can only contain letters, numbers, and underscores", ErrInvalidArgument)
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters long", ErrInvalidArgument)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: password is too long", ErrInvalidArgument)
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrInvalidArgument)
	}
	return nil
}

// ValidateRole accepts the marketplace roles a user can self-register with.
func ValidateRole(role string) error {
	switch role {
	case RoleStartup, RoleInvestor:
		return nil
	default:
		return fmt.Errorf("%w: role must be %q or %q", ErrInvalidArgument, RoleStartup, RoleInvestor)
	}
}

// ValidateMessageContent allows empty content only when the message carries attachments.
func ValidateMessageContent(content string, attachments int) error {
	if strings.TrimSpace(content) == "" && attachments == 0 {
		return fmt.Errorf("%w: message needs content or an attachment", ErrMalformedInput)
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", ErrMalformedInput, MaxMessageLength)
	}
	return nil
}
