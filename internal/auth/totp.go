package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"

	"github.com/dbelyakov/realvista/internal/accounts"
	"github.com/dbelyakov/realvista/pkg/crypto"
)

const (
	defaultIssuer     = "RealVista"
	defaultQRCodeSize = 256

	totpPeriod = 30
	// totpSkew accepts codes one step either side of now (±30s clock drift).
	totpSkew = 1
)

// TOTPOption customises the TOTP service.
type TOTPOption func(*TOTPService)

// WithIssuer overrides the issuer label encoded in provisioning URIs.
func WithIssuer(issuer string) TOTPOption {
	return func(s *TOTPService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = issuer
		}
	}
}

// WithQRCodeSize controls the pixel size of generated QR codes.
func WithQRCodeSize(size int) TOTPOption {
	return func(s *TOTPService) {
		if size > 0 {
			s.qrCodeSize = size
		}
	}
}

// WithTOTPClock injects a custom clock, primarily for testing.
func WithTOTPClock(clock func() time.Time) TOTPOption {
	return func(s *TOTPService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Enrollment is the artifact handed to the administrator's authenticator app.
type Enrollment struct {
	Secret string
	URL    string
	QRPNG  []byte
}

// TOTPService manages per-admin shared secrets and code verification.
// Secrets are stored encrypted at rest and only the verification paths load
// them.
type TOTPService struct {
	repo          *accounts.Repository
	encryptionKey []byte

	issuer     string
	qrCodeSize int
	now        func() time.Time
}

// NewTOTPService constructs a TOTP service backed by the account store.
func NewTOTPService(repo *accounts.Repository, encryptionKey []byte, opts ...TOTPOption) (*TOTPService, error) {
	if repo == nil {
		return nil, errors.New("totp: repository is required")
	}
	if len(encryptionKey) == 0 {
		return nil, errors.New("totp: encryption key is required")
	}

	service := &TOTPService{
		repo:          repo,
		encryptionKey: encryptionKey,
		issuer:        defaultIssuer,
		qrCodeSize:    defaultQRCodeSize,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Enroll generates a fresh shared secret for the admin, persists it
// (overwriting any prior secret), and returns the provisioning artifact.
// Enrollment never activates the second factor; that happens on the first
// successful Verify.
func (s *TOTPService) Enroll(ctx context.Context, adminID string) (*Enrollment, error) {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return nil, errors.New("totp: admin id is required")
	}

	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: admin.Email,
		Period:      totpPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("totp: generate key: %w", err)
	}

	encrypted, err := crypto.Encrypt([]byte(key.Secret()), s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("totp: encrypt secret: %w", err)
	}

	if err := s.repo.SetTOTPSecret(ctx, adminID, encrypted); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(key.String(), qrcode.Medium, s.qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("totp: render qr code: %w", err)
	}

	return &Enrollment{
		Secret: key.Secret(),
		URL:    key.String(),
		QRPNG:  png,
	}, nil
}

// Verify checks a submitted code against the admin's stored secret within a
// ±1 step window. On the first success it activates the second factor and
// resets the failure counter; a failed code never touches lockout state.
func (s *TOTPService) Verify(ctx context.Context, adminID, code string) error {
	adminID = strings.TrimSpace(adminID)
	code = strings.TrimSpace(code)
	if adminID == "" || code == "" {
		return ErrInvalidTwoFactorCode
	}

	admin, err := s.repo.GetByIDWithCredentials(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.TOTPSecret == "" {
		return ErrTwoFactorNotEnrolled
	}

	secret, err := crypto.Decrypt(admin.TOTPSecret, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("totp: decrypt secret: %w", err)
	}

	valid, err := totp.ValidateCustom(code, string(secret), s.now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("totp: validate code: %w", err)
	}
	if !valid {
		return ErrInvalidTwoFactorCode
	}

	return s.repo.EnableTwoFactor(ctx, adminID)
}
