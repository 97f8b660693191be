package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialKind distinguishes how a stored password value must be compared.
type CredentialKind int

const (
	// CredentialBcrypt is the steady-state format for every account created
	// or updated by this codebase.
	CredentialBcrypt CredentialKind = iota

	// CredentialLegacyPlaintext covers records migrated from the previous
	// system that were never rehashed. It is a compatibility shim only: no
	// new plaintext values are ever written, and a migrated record converts
	// to bcrypt on its next password change.
	CredentialLegacyPlaintext
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// StoredCredential is the parsed form of an account's password column.
type StoredCredential struct {
	Kind  CredentialKind
	value string
}

// ParseStoredCredential classifies a stored password value by its
// version-tagged prefix. Anything that is not a bcrypt hash is treated as a
// legacy plaintext value.
func ParseStoredCredential(stored string) StoredCredential {
	for _, prefix := range bcryptPrefixes {
		if strings.HasPrefix(stored, prefix) {
			return StoredCredential{Kind: CredentialBcrypt, value: stored}
		}
	}
	return StoredCredential{Kind: CredentialLegacyPlaintext, value: stored}
}

// Matches reports whether the submitted plaintext corresponds to the stored
// credential. Pure comparison, no side effects.
func (c StoredCredential) Matches(password string) bool {
	switch c.Kind {
	case CredentialBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(c.value), []byte(password)) == nil
	case CredentialLegacyPlaintext:
		// The legacy comparison only applies when both values are non-empty;
		// an empty stored value never matches anything.
		if c.value == "" || password == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(c.value), []byte(password)) == 1
	default:
		return false
	}
}
