package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dbelyakov/realvista/internal/accounts"
	"github.com/dbelyakov/realvista/internal/models"
)

const (
	// DefaultLockoutThreshold matches the reference behavior: three
	// consecutive failed password checks lock the account.
	DefaultLockoutThreshold = 3

	// DefaultLockoutDuration is how long a tripped lock holds.
	DefaultLockoutDuration = 24 * time.Hour
)

// LoginConfig tunes the lockout policy.
type LoginConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// LoginResult is the outcome of a fully or partially completed login.
// Either Token is set, or PendingTwoFactor is true and the caller must
// complete TOTP verification before a token is issued.
type LoginResult struct {
	Token            string
	Admin            *models.Admin
	PendingTwoFactor bool
}

// LoginService sequences a login request: lockout gate, password check,
// lockout bookkeeping, then either token issuance or a pending second-factor
// challenge.
type LoginService struct {
	repo      *accounts.Repository
	tokens    *JWTService
	threshold int
	duration  time.Duration
	now       func() time.Time
}

// NewLoginService builds the orchestrator with sane defaults.
func NewLoginService(repo *accounts.Repository, tokens *JWTService, cfg LoginConfig) (*LoginService, error) {
	if repo == nil {
		return nil, errors.New("auth: repository is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}

	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LoginService{
		repo:      repo,
		tokens:    tokens,
		threshold: threshold,
		duration:  duration,
		now:       clock,
	}, nil
}

// Login authenticates an email/password pair. The lock check always runs
// before password verification, so a wrong password never advances the
// counter while locked and a correct one is still rejected until the lock
// expires or is lifted.
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	admin, err := s.repo.GetByEmailWithCredentials(ctx, email)
	if errors.Is(err, accounts.ErrNotFound) {
		// Same rejection as a wrong password: no account enumeration.
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	now := s.now()

	if admin.Locked(now) {
		return nil, &LockedError{
			Until:     *admin.LockedUntil,
			Remaining: remainingMinutes(*admin.LockedUntil, now),
		}
	}

	if !ParseStoredCredential(admin.PasswordHash).Matches(password) {
		return nil, s.recordFailure(ctx, admin, now)
	}

	if err := s.repo.RecordLoginSuccess(ctx, admin.ID, now); err != nil {
		return nil, err
	}

	public, err := s.repo.GetByID(ctx, admin.ID)
	if err != nil {
		return nil, err
	}

	if admin.TOTPEnabled {
		return &LoginResult{Admin: public, PendingTwoFactor: true}, nil
	}

	token, err := s.tokens.GenerateToken(admin.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, Admin: public}, nil
}

// IssueToken mints a session token for an admin whose second factor has just
// been verified.
func (s *LoginService) IssueToken(adminID string) (string, error) {
	return s.tokens.GenerateToken(adminID)
}

// recordFailure applies the lockout failure transition. An expired lock is
// only cleared here, as part of restarting the failure series; it is never
// swept up on its own.
func (s *LoginService) recordFailure(ctx context.Context, admin *models.Admin, now time.Time) error {
	var attempts int

	if admin.LockedUntil != nil && !admin.LockedUntil.After(now) {
		if err := s.repo.RestartFailedAttempts(ctx, admin.ID); err != nil {
			return err
		}
		attempts = 1
	} else {
		count, err := s.repo.IncrementFailedAttempts(ctx, admin.ID)
		if err != nil {
			return err
		}
		attempts = count
	}

	if attempts >= s.threshold {
		until := now.Add(s.duration)
		if err := s.repo.SetLock(ctx, admin.ID, until, s.threshold); err != nil {
			return err
		}
		return &LockedError{
			Until:      until,
			Remaining:  remainingMinutes(until, now),
			JustLocked: true,
		}
	}

	return ErrInvalidCredentials
}
