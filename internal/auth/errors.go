package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike, so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTwoFactorNotEnrolled signals a verification attempt against an
	// account with no stored secret.
	ErrTwoFactorNotEnrolled = errors.New("auth: two-factor not enrolled")

	// ErrInvalidTwoFactorCode signals a code outside the accepted window.
	ErrInvalidTwoFactorCode = errors.New("auth: invalid two-factor code")
)

// LockedError rejects a login while the account lock is in force. Remaining
// reports the time left rounded up to the nearest minute; JustLocked is set
// on the failed attempt that tripped the lock.
type LockedError struct {
	Until      time.Time
	Remaining  int
	JustLocked bool
}

func (e *LockedError) Error() string {
	if e.JustLocked {
		return "auth: account locked by this attempt"
	}
	return fmt.Sprintf("auth: account locked for another %d minutes", e.Remaining)
}

// remainingMinutes rounds the time left on a lock up to the nearest minute.
func remainingMinutes(until, now time.Time) int {
	remaining := until.Sub(now)
	if remaining <= 0 {
		return 0
	}
	minutes := int(remaining / time.Minute)
	if remaining%time.Minute != 0 {
		minutes++
	}
	return minutes
}
