package security

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest password accepted at registration
	MinPasswordLength = 8
	// MinUsernameLength is the shortest username accepted at registration
	MinUsernameLength = 3
	// PasswordSymbols are the special characters a password may (and must) use
	PasswordSymbols = "@$!%*?&"
)

// Policy errors
var (
	ErrWeakPassword  = errors.New("password does not meet the policy")
	ErrShortUsername = errors.New("username is too short")
)

// ValidatePassword enforces the registration password rule: at least 8 characters
// drawn only from letters, digits and PasswordSymbols, with at least one lowercase
// letter, one uppercase letter, one digit and one symbol.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	var lower, upper, digit, symbol bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, c):
			symbol = true
		default:
			return ErrWeakPassword
		}
	}

	if !lower || !upper || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}

// ValidateUsername enforces the minimum username length, counted in characters
func ValidateUsername(username string) error {
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return ErrShortUsername
	}
	return nil
}
