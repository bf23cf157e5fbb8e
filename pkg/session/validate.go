package session

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError is an input rejected before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validateLogin(email, password string) error {
	if email == "" || strings.TrimSpace(password) == "" {
		return &ValidationError{Field: "email", Message: "Email and password cannot be empty."}
	}

	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required."}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: "Enter a valid email address."}
	}

	return nil
}

func validateSignup(s Signup) error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "Name is required."}
	}

	if err := validateEmail(s.Email); err != nil {
		return err
	}

	password := strings.TrimSpace(s.Password)
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required."}
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters long."}
	}

	return nil
}
