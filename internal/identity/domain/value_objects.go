package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MinUsernameLength and MaxUsernameLength bound a username.
	MinUsernameLength = 3
	MaxUsernameLength = 32

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// Email represents a validated email address.
type Email struct {
	value string
}

// NewEmail creates a validated, lowercased email address.
func NewEmail(value string) (Email, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || !emailRegex.MatchString(value) {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: value}, nil
}

// String returns the email string.
func (e Email) String() string {
	return e.value
}

// Equals checks if two emails are equal.
func (e Email) Equals(other Email) bool {
	return e.value == other.value
}

// Username is a login handle. Uniqueness is case-insensitive; the original
// casing is kept for display.
type Username struct {
	value string
}

// NewUsername validates a username.
func NewUsername(value string) (Username, error) {
	value = strings.TrimSpace(value)
	if len(value) < MinUsernameLength || len(value) > MaxUsernameLength {
		return Username{}, fmt.Errorf("%w: must be %d to %d characters", ErrInvalidUsername, MinUsernameLength, MaxUsernameLength)
	}
	if !usernameRegex.MatchString(value) {
		return Username{}, fmt.Errorf("%w: only letters, digits, '.', '_' and '-' are allowed", ErrInvalidUsername)
	}
	return Username{value: value}, nil
}

// String returns the username.
func (u Username) String() string {
	return u.value
}

// Equals compares usernames case-insensitively.
func (u Username) Equals(other Username) bool {
	return strings.EqualFold(u.value, other.value)
}

// ValidatePassword enforces the password policy: at least MinPasswordLength
// characters with one lowercase and one uppercase letter.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrWeakPassword, MinPasswordLength)
	}

	var lower, upper bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		}
	}
	if !lower {
		return fmt.Errorf("%w: must contain at least one lowercase letter", ErrWeakPassword)
	}
	if !upper {
		return fmt.Errorf("%w: must contain at least one uppercase letter", ErrWeakPassword)
	}
	return nil
}
