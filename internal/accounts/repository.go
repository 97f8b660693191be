package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dbelyakov/realvista/internal/models"
)

// ErrNotFound indicates the requested admin record does not exist.
var ErrNotFound = errors.New("accounts: admin not found")

// StoreError marks an infrastructure failure (datastore unavailable or timed
// out). It is retryable and must never be interpreted as an authentication
// decision.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("accounts: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err stems from the datastore rather than from
// domain logic.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

const defaultStoreTimeout = 5 * time.Second

// credentialColumns are only loaded by the *WithCredentials accessors.
var credentialColumns = []string{"password_hash", "totp_secret"}

// RepositoryOption customises the repository.
type RepositoryOption func(*Repository)

// WithStoreTimeout bounds every datastore round trip.
func WithStoreTimeout(d time.Duration) RepositoryOption {
	return func(r *Repository) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Repository persists admin records. Lockout state is mutated through
// dedicated field-level operations so concurrent logins against the same
// account cannot lose an increment; the single UPDATE is the unit of
// atomicity, not the surrounding login flow.
type Repository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewRepository constructs a Repository backed by the provided database.
func NewRepository(db *gorm.DB, opts ...RepositoryOption) (*Repository, error) {
	if db == nil {
		return nil, errors.New("accounts: db is required")
	}

	repo := &Repository{db: db, timeout: defaultStoreTimeout}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

func (r *Repository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Repository) wrap(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}

// Create persists a new admin record.
func (r *Repository) Create(ctx context.Context, admin *models.Admin) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		return r.wrap("create admin", err)
	}
	return nil
}

// GetByID loads an admin without its credential columns.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var admin models.Admin
	err := r.db.WithContext(ctx).Omit(credentialColumns...).Take(&admin, "id = ?", id).Error
	if err != nil {
		return nil, r.wrap("get admin", err)
	}
	return &admin, nil
}

// GetByIDWithCredentials loads an admin including its password hash and TOTP
// secret. Only the verification code paths may use this accessor.
func (r *Repository) GetByIDWithCredentials(ctx context.Context, id string) (*models.Admin, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var admin models.Admin
	err := r.db.WithContext(ctx).Take(&admin, "id = ?", id).Error
	if err != nil {
		return nil, r.wrap("get admin credentials", err)
	}
	return &admin, nil
}

// GetByEmailWithCredentials looks up an admin by email, case-insensitively,
// including credential columns for password verification.
func (r *Repository) GetByEmailWithCredentials(ctx context.Context, email string) (*models.Admin, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var admin models.Admin
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).Take(&admin).Error
	if err != nil {
		return nil, r.wrap("get admin by email", err)
	}
	return &admin, nil
}

// EmailTaken reports whether any admin already uses the given email.
func (r *Repository) EmailTaken(ctx context.Context, email string) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Admin{}).
		Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	if err != nil {
		return false, r.wrap("check email", err)
	}
	return count > 0, nil
}

// List returns a page of admins without credential columns.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.Admin, int64, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Admin{}).Count(&total).Error; err != nil {
		return nil, 0, r.wrap("count admins", err)
	}

	var admins []models.Admin
	err := r.db.WithContext(ctx).Omit(credentialColumns...).
		Order("created_at ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&admins).Error
	if err != nil {
		return nil, 0, r.wrap("list admins", err)
	}
	return admins, total, nil
}

// Update applies the given column values to an existing admin.
func (r *Repository) Update(ctx context.Context, id string, updates map[string]any) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return r.wrap("update admin", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an admin record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	res := r.db.WithContext(ctx).Delete(&models.Admin{}, "id = ?", id)
	if res.Error != nil {
		return r.wrap("delete admin", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementFailedAttempts bumps the consecutive-failure counter in a single
// SQL-level increment and returns the new count.
func (r *Repository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Admin{}).Where("id = ?", id).
			UpdateColumn("failed_attempts", gorm.Expr("failed_attempts + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var admin models.Admin
		if err := tx.Select("failed_attempts").Take(&admin, "id = ?", id).Error; err != nil {
			return err
		}
		count = admin.FailedAttempts
		return nil
	})
	if err != nil {
		return 0, r.wrap("increment failed attempts", err)
	}
	return count, nil
}

// RestartFailedAttempts begins a fresh failure series after an expired lock:
// the counter restarts at 1 and the stale lock timestamp is removed as part
// of the same update. Expired locks are never cleared on their own.
func (r *Repository) RestartFailedAttempts(ctx context.Context, id string) error {
	return r.Update(ctx, id, map[string]any{
		"failed_attempts": 1,
		"locked_until":    nil,
	})
}

// SetLock stamps the lock expiry, conditional on the failure counter having
// actually reached the threshold so racing resets cannot lock a clean account.
func (r *Repository) SetLock(ctx context.Context, id string, until time.Time, minAttempts int) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ? AND failed_attempts >= ?", id, minAttempts).
		UpdateColumn("locked_until", until)
	if res.Error != nil {
		return r.wrap("set lock", res.Error)
	}
	return nil
}

// RecordLoginSuccess applies the success transition: the failure counter
// resets to zero and any lock is cleared, regardless of prior value.
func (r *Repository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	return r.Update(ctx, id, map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   at,
	})
}

// ClearLock removes lock state unconditionally (manual unlock).
func (r *Repository) ClearLock(ctx context.Context, id string) error {
	return r.Update(ctx, id, map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
	})
}

// SetTOTPSecret stores a freshly generated (encrypted) shared secret,
// overwriting any prior one. Enrollment alone never activates the second
// factor.
func (r *Repository) SetTOTPSecret(ctx context.Context, id string, encryptedSecret string) error {
	return r.Update(ctx, id, map[string]any{
		"totp_secret": encryptedSecret,
	})
}

// EnableTwoFactor marks the second factor active after the first successful
// verification, which also counts as a full authentication success.
func (r *Repository) EnableTwoFactor(ctx context.Context, id string) error {
	return r.Update(ctx, id, map[string]any{
		"totp_enabled":    true,
		"failed_attempts": 0,
	})
}
