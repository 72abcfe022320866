// internal/app/system/inputval/inputval.go
package inputval

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinPasswordLen is the shortest password accepted at registration.
const MinPasswordLen = 6

// IsValidEmail reports whether s is a bare address (no display name) with
// a well-formed local part and domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]
	return validDotted(local) && validDotted(domain)
}

func validDotted(part string) bool {
	if part == "" || strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") {
		return false
	}
	return !strings.Contains(part, "..")
}

// PasswordProblem returns a user-facing message when pw is unacceptable,
// or "" when it is fine.
func PasswordProblem(pw string) string {
	if strings.TrimSpace(pw) == "" {
		return "Password is required."
	}
	if utf8.RuneCountInString(pw) < MinPasswordLen {
		return "Password must be at least 6 characters."
	}
	return ""
}
