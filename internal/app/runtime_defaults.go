package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dbelyakov/realvista/pkg/crypto"
)

const (
	jwtSecretBytes     = 48
	totpEncryptionKeyB = 32
)

// ApplyRuntimeDefaults fills in missing secrets with freshly generated
// values and reports which settings were generated so the caller can log
// that fact without logging the values. Development convenience only:
// Config.Validate refuses empty secrets in production before this runs, and
// generated values do not survive a restart — outstanding tokens and
// enrolled TOTP secrets become unreadable.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.Auth.TOTP.EncryptionKey) == "" {
		buf := make([]byte, totpEncryptionKeyB)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate totp encryption key: %w", err)
		}
		cfg.Auth.TOTP.EncryptionKey = hex.EncodeToString(buf)
		generated["auth.totp.encryption_key"] = true
	}

	return generated, nil
}
