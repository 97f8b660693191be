package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin is the account record for a platform administrator. Credential and
// lockout state live on this record; the password hash and TOTP secret are
// never serialized and are only loaded by the verification code paths.
type Admin struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	// PasswordHash is bcrypt for all accounts created by this codebase. A
	// handful of migrated records still hold a legacy plaintext value; see
	// internal/auth.ParseStoredCredential.
	PasswordHash string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// TOTPSecret is AES-256-GCM encrypted at rest. A present secret does not
	// imply the second factor is active: TOTPEnabled flips only after the
	// first successful verification.
	TOTPSecret  string `json:"-"`
	TOTPEnabled bool   `gorm:"default:false" json:"totp_enabled"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Locked reports whether the record is locked at the given instant. Expired
// locks stay in storage and are re-evaluated on every attempt.
func (a *Admin) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}
