package auth

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/dbelyakov/realvista/internal/accounts"
	"github.com/dbelyakov/realvista/internal/database/testutil"
	"github.com/dbelyakov/realvista/internal/models"
	"github.com/dbelyakov/realvista/pkg/crypto"
)

var testEncryptionKey = []byte("0123456789abcdef0123456789abcdef")

type totpFixture struct {
	repo  *accounts.Repository
	svc   *TOTPService
	now   time.Time
	admin *models.Admin
}

func newTOTPFixture(t *testing.T) *totpFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	repo, err := accounts.NewRepository(db)
	require.NoError(t, err)

	hash, err := crypto.HashPassword("pw")
	require.NoError(t, err)
	admin := models.Admin{Email: "admin@realvista.test", PasswordHash: hash}
	require.NoError(t, repo.Create(context.Background(), &admin))

	fixture := &totpFixture{
		repo:  repo,
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		admin: &admin,
	}

	svc, err := NewTOTPService(repo, testEncryptionKey,
		WithTOTPClock(func() time.Time { return fixture.now }),
	)
	require.NoError(t, err)
	fixture.svc = svc

	return fixture
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestEnrollProducesProvisioningArtifact(t *testing.T) {
	f := newTOTPFixture(t)

	enrollment, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.URL, "otpauth://totp/")
	require.Contains(t, enrollment.URL, "RealVista")
	require.Contains(t, enrollment.URL, "admin@realvista.test")
	require.True(t, bytes.HasPrefix(enrollment.QRPNG, []byte("\x89PNG")))
}

func TestEnrollStoresEncryptedSecretWithoutActivating(t *testing.T) {
	f := newTOTPFixture(t)

	enrollment, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)

	stored, err := f.repo.GetByIDWithCredentials(context.Background(), f.admin.ID)
	require.NoError(t, err)
	require.False(t, stored.TOTPEnabled)
	require.NotEmpty(t, stored.TOTPSecret)
	require.NotEqual(t, enrollment.Secret, stored.TOTPSecret)

	decrypted, err := crypto.Decrypt(stored.TOTPSecret, testEncryptionKey)
	require.NoError(t, err)
	require.Equal(t, enrollment.Secret, string(decrypted))
}

func TestReEnrollOverwritesPriorSecret(t *testing.T) {
	f := newTOTPFixture(t)

	first, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)
	second, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	// Only the latest secret verifies.
	err = f.svc.Verify(context.Background(), f.admin.ID, codeAt(t, first.Secret, f.now))
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	err = f.svc.Verify(context.Background(), f.admin.ID, codeAt(t, second.Secret, f.now))
	require.NoError(t, err)
}

func TestEnrollUnknownAdmin(t *testing.T) {
	f := newTOTPFixture(t)

	_, err := f.svc.Enroll(context.Background(), "1b6d3c2e-0000-4000-8000-000000000000")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestVerifyActivatesSecondFactor(t *testing.T) {
	f := newTOTPFixture(t)

	enrollment, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)

	err = f.svc.Verify(context.Background(), f.admin.ID, codeAt(t, enrollment.Secret, f.now))
	require.NoError(t, err)

	stored, err := f.repo.GetByID(context.Background(), f.admin.ID)
	require.NoError(t, err)
	require.True(t, stored.TOTPEnabled)
	require.Zero(t, stored.FailedAttempts)
}

func TestVerifyAcceptsAdjacentSteps(t *testing.T) {
	f := newTOTPFixture(t)

	enrollment, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)

	// Codes for the previous and next 30s step are inside the accepted
	// drift window.
	err = f.svc.Verify(context.Background(), f.admin.ID, codeAt(t, enrollment.Secret, f.now.Add(-30*time.Second)))
	require.NoError(t, err)
	err = f.svc.Verify(context.Background(), f.admin.ID, codeAt(t, enrollment.Secret, f.now.Add(30*time.Second)))
	require.NoError(t, err)
}

func TestVerifyRejectsCodesOutsideWindow(t *testing.T) {
	f := newTOTPFixture(t)

	enrollment, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)

	err = f.svc.Verify(context.Background(), f.admin.ID, codeAt(t, enrollment.Secret, f.now.Add(-60*time.Second)))
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	err = f.svc.Verify(context.Background(), f.admin.ID, codeAt(t, enrollment.Secret, f.now.Add(60*time.Second)))
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	f := newTOTPFixture(t)

	_, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)

	for _, code := range []string{"", "      ", "abcdef", "12345"} {
		err := f.svc.Verify(context.Background(), f.admin.ID, code)
		require.Error(t, err, "code=%q", code)
	}
}

func TestVerifyWithoutEnrollment(t *testing.T) {
	f := newTOTPFixture(t)

	err := f.svc.Verify(context.Background(), f.admin.ID, "123456")
	require.ErrorIs(t, err, ErrTwoFactorNotEnrolled)
}

func TestVerifyFailureLeavesLockoutStateAlone(t *testing.T) {
	f := newTOTPFixture(t)

	enrollment, err := f.svc.Enroll(context.Background(), f.admin.ID)
	require.NoError(t, err)

	_, err = f.repo.IncrementFailedAttempts(context.Background(), f.admin.ID)
	require.NoError(t, err)

	err = f.svc.Verify(context.Background(), f.admin.ID, codeAt(t, enrollment.Secret, f.now.Add(-5*time.Minute)))
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)

	stored, err := f.repo.GetByID(context.Background(), f.admin.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.FailedAttempts)
}
