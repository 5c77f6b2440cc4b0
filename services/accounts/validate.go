package accounts

import (
	"net/mail"
	"regexp"
	"strings"
)

// MinPasswordLength is the shortest password accepted at signup and reset.
const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "Email is required.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.IndexByte(email, '@')+1:], ".") {
		return invalid("email", "Enter a valid email address.")
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return invalid("username", "Username is required.")
	}
	if !usernamePattern.MatchString(username) {
		return invalid("username", "Username must be 3-32 letters, digits or underscores.")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalid("password", "Password must be at least 8 characters.")
	}
	return nil
}
