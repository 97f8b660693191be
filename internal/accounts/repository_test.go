package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbelyakov/realvista/internal/database/testutil"
	"github.com/dbelyakov/realvista/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(testutil.MustOpenTestDB(t))
	require.NoError(t, err)
	return repo
}

func seedAdmin(t *testing.T, repo *Repository, email string) *models.Admin {
	t.Helper()

	admin := &models.Admin{
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz0123456789abcdefghijklmnopq",
		FirstName:    "Test",
		LastName:     "Admin",
	}
	require.NoError(t, repo.Create(context.Background(), admin))
	require.NotEmpty(t, admin.ID)
	return admin
}

func TestCreateAssignsUUID(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")
	require.Len(t, admin.ID, 36)
}

func TestGetByIDOmitsCredentialColumns(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")
	require.NoError(t, repo.SetTOTPSecret(context.Background(), admin.ID, "encrypted"))

	got, err := repo.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Empty(t, got.PasswordHash)
	require.Empty(t, got.TOTPSecret)
	require.Equal(t, admin.Email, got.Email)

	withCreds, err := repo.GetByIDWithCredentials(context.Background(), admin.ID)
	require.NoError(t, err)
	require.NotEmpty(t, withCreds.PasswordHash)
	require.Equal(t, "encrypted", withCreds.TOTPSecret)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, IsStoreError(err))
}

func TestGetByEmailWithCredentialsIsCaseInsensitive(t *testing.T) {
	repo := newTestRepository(t)
	seedAdmin(t, repo, "mixed@realvista.test")

	got, err := repo.GetByEmailWithCredentials(context.Background(), "MIXED@REALVISTA.TEST")
	require.NoError(t, err)
	require.Equal(t, "mixed@realvista.test", got.Email)
	require.NotEmpty(t, got.PasswordHash)
}

func TestEmailTaken(t *testing.T) {
	repo := newTestRepository(t)
	seedAdmin(t, repo, "taken@realvista.test")

	taken, err := repo.EmailTaken(context.Background(), "TAKEN@realvista.test")
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.EmailTaken(context.Background(), "free@realvista.test")
	require.NoError(t, err)
	require.False(t, taken)
}

func TestListPaginates(t *testing.T) {
	repo := newTestRepository(t)
	seedAdmin(t, repo, "a@realvista.test")
	seedAdmin(t, repo, "b@realvista.test")
	seedAdmin(t, repo, "c@realvista.test")

	admins, total, err := repo.List(context.Background(), 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, admins, 2)
	require.Empty(t, admins[0].PasswordHash)

	admins, total, err = repo.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, admins, 1)
}

func TestDeleteUnknownIDReportsNotFound(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")

	require.NoError(t, repo.Delete(context.Background(), admin.ID))
	require.ErrorIs(t, repo.Delete(context.Background(), admin.ID), ErrNotFound)
}

func TestUpdateUnknownIDReportsNotFound(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.Update(context.Background(), "missing", map[string]any{"first_name": "X"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementFailedAttemptsReturnsNewCount(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")

	for want := 1; want <= 3; want++ {
		count, err := repo.IncrementFailedAttempts(context.Background(), admin.ID)
		require.NoError(t, err)
		require.Equal(t, want, count)
	}
}

func TestIncrementFailedAttemptsUnknownID(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.IncrementFailedAttempts(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRestartFailedAttemptsClearsStaleLock(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")

	until := time.Now().Add(-time.Hour).UTC()
	for i := 0; i < 3; i++ {
		_, err := repo.IncrementFailedAttempts(context.Background(), admin.ID)
		require.NoError(t, err)
	}
	require.NoError(t, repo.SetLock(context.Background(), admin.ID, until, 3))

	require.NoError(t, repo.RestartFailedAttempts(context.Background(), admin.ID))

	got, err := repo.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.FailedAttempts)
	require.Nil(t, got.LockedUntil)
}

func TestSetLockRequiresThresholdReached(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")

	// Counter below threshold: the conditional update must not lock.
	_, err := repo.IncrementFailedAttempts(context.Background(), admin.ID)
	require.NoError(t, err)
	require.NoError(t, repo.SetLock(context.Background(), admin.ID, time.Now().Add(time.Hour), 3))

	got, err := repo.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Nil(t, got.LockedUntil)

	// At the threshold it takes effect.
	_, err = repo.IncrementFailedAttempts(context.Background(), admin.ID)
	require.NoError(t, err)
	_, err = repo.IncrementFailedAttempts(context.Background(), admin.ID)
	require.NoError(t, err)
	require.NoError(t, repo.SetLock(context.Background(), admin.ID, time.Now().Add(time.Hour), 3))

	got, err = repo.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LockedUntil)
}

func TestRecordLoginSuccessResetsLockoutState(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")

	for i := 0; i < 3; i++ {
		_, err := repo.IncrementFailedAttempts(context.Background(), admin.ID)
		require.NoError(t, err)
	}
	require.NoError(t, repo.SetLock(context.Background(), admin.ID, time.Now().Add(time.Hour), 3))

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLoginSuccess(context.Background(), admin.ID, at))

	got, err := repo.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedAttempts)
	require.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, got.LastLoginAt.Equal(at))
}

func TestClearLockIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")

	require.NoError(t, repo.ClearLock(context.Background(), admin.ID))
	require.NoError(t, repo.ClearLock(context.Background(), admin.ID))

	got, err := repo.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedAttempts)
	require.Nil(t, got.LockedUntil)
}

func TestEnableTwoFactorResetsCounter(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")

	_, err := repo.IncrementFailedAttempts(context.Background(), admin.ID)
	require.NoError(t, err)
	require.NoError(t, repo.EnableTwoFactor(context.Background(), admin.ID))

	got, err := repo.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	require.True(t, got.TOTPEnabled)
	require.Zero(t, got.FailedAttempts)
}

func TestStoreErrorWhenContextExpired(t *testing.T) {
	repo := newTestRepository(t)
	admin := seedAdmin(t, repo, "a@realvista.test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetByID(ctx, admin.ID)
	require.Error(t, err)
	require.True(t, IsStoreError(err))
}
