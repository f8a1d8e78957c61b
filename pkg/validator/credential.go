package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCredentialLength bounds what a reader may send as one credential
const MaxCredentialLength = 64

var (
	// ErrEmptyCredential indicates the credential is empty after trimming
	ErrEmptyCredential = errors.New("credential cannot be empty")

	// ErrCredentialTooLong indicates the credential exceeds MaxCredentialLength
	ErrCredentialTooLong = fmt.Errorf("credential must be at most %d characters", MaxCredentialLength)

	// ErrInvalidCharacters indicates the credential contains control characters
	ErrInvalidCharacters = errors.New("credential contains control characters")
)

// CredentialValidator checks credentials read from badges before lookup.
// Credentials are matched exactly, so Validate only trims surrounding
// whitespace and never changes case.
type CredentialValidator struct{}

// NewCredentialValidator creates a new credential validator instance
func NewCredentialValidator() *CredentialValidator {
	return &CredentialValidator{}
}

// Validate returns the trimmed credential or the reason it is unusable
func (v *CredentialValidator) Validate(credential string) (string, error) {
	sanitized := v.Sanitize(credential)
	if sanitized == "" {
		return "", ErrEmptyCredential
	}
	if len(sanitized) > MaxCredentialLength {
		return "", ErrCredentialTooLong
	}
	for _, r := range sanitized {
		if unicode.IsControl(r) {
			return "", ErrInvalidCharacters
		}
	}
	return sanitized, nil
}

// Sanitize strips surrounding whitespace, including the CR/LF a serial reader appends
func (v *CredentialValidator) Sanitize(credential string) string {
	return strings.TrimSpace(credential)
}

// IsValid is a convenience method that returns true if credential is valid
func (v *CredentialValidator) IsValid(credential string) bool {
	_, err := v.Validate(credential)
	return err == nil
}

// Printable returns a form of an unusable credential that is safe to store in
// audit text: control characters become '?' and anything past
// MaxCredentialLength bytes is cut on a rune boundary. Empty input stays empty.
func (v *CredentialValidator) Printable(credential string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '?'
		}
		return r
	}, v.Sanitize(credential))
	if len(cleaned) <= MaxCredentialLength {
		return cleaned
	}
	cut := MaxCredentialLength
	for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
		cut--
	}
	return cleaned[:cut]
}

// Mask hides all but the last four characters, for logs that must not carry full credentials
func (v *CredentialValidator) Mask(credential string) string {
	if len(credential) <= 4 {
		return strings.Repeat("*", len(credential))
	}
	return strings.Repeat("*", len(credential)-4) + credential[len(credential)-4:]
}
