// Package password holds the registration password policy: minimum
// length, not entirely numeric, not a well-known password and not too
// similar to the user's own identifiers.
package password

import (
	"strings"
	"unicode"
)

const minLength = 8

var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"passw0rd":   {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwerty123":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"admin123":   {},
	"letmein1":   {},
	"welcome1":   {},
	"sunshine":   {},
	"football":   {},
	"baseball":   {},
	"superman":   {},
	"dragon123":  {},
	"monkey123":  {},
	"abc12345":   {},
	"11111111":   {},
}

// Validate returns every policy violation for the candidate password.
// username and email are checked for similarity; either may be empty.
func Validate(password, username, email string) []string {
	var errs []string

	if len(password) < minLength {
		errs = append(errs, "This password is too short. It must contain at least 8 characters.")
	}

	if password != "" && allDigits(password) {
		errs = append(errs, "This password is entirely numeric.")
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		errs = append(errs, "This password is too common.")
	}

	if tooSimilar(password, username) {
		errs = append(errs, "The password is too similar to the username.")
	}
	if tooSimilar(password, emailLocalPart(email)) {
		errs = append(errs, "The password is too similar to the email address.")
	}

	return errs
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// tooSimilar checks containment in both directions, attribute values
// shorter than 4 runes are ignored.
func tooSimilar(password, attr string) bool {
	if len(attr) < 4 || password == "" {
		return false
	}
	p := strings.ToLower(password)
	a := strings.ToLower(attr)
	return strings.Contains(p, a) || strings.Contains(a, p)
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
