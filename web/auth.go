package web

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// passwordChecker compares a submitted password with the configured secret.
// A bcrypt hash takes precedence over the plain password.
type passwordChecker struct {
	plain []byte
	hash  []byte
}

func newPasswordChecker(plain, hash string) passwordChecker {
	checker := passwordChecker{}
	if hash = strings.TrimSpace(hash); hash != "" {
		checker.hash = []byte(hash)
		return checker
	}
	checker.plain = []byte(plain)
	return checker
}

func (c passwordChecker) Check(submitted string) bool {
	if len(c.hash) > 0 {
		return bcrypt.CompareHashAndPassword(c.hash, []byte(submitted)) == nil
	}
	if len(c.plain) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(c.plain, []byte(submitted)) == 1
}
