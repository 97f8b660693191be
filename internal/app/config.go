package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	iauth "github.com/dbelyakov/realvista/internal/auth"
)

// Config represents the runtime configuration for the RealVista backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"environment"`
}

// Production reports whether the server runs in production mode, which
// forbids generated fallback secrets.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(strings.TrimSpace(s.Environment), "production")
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT     JWTSettings     `mapstructure:"jwt"`
	Lockout LockoutSettings `mapstructure:"lockout"`
	TOTP    TOTPSettings    `mapstructure:"totp"`
}

// JWTSettings configures session tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"token_ttl"`
}

// LockoutSettings defines the brute-force lockout policy.
type LockoutSettings struct {
	Threshold int           `mapstructure:"threshold"`
	Duration  time.Duration `mapstructure:"duration"`
}

// TOTPSettings configures the second-factor manager.
type TOTPSettings struct {
	Issuer        string `mapstructure:"issuer"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AuditConfig controls audit log retention.
type AuditConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	RetentionDays   int    `mapstructure:"retention_days"`
	CleanupSchedule string `mapstructure:"cleanup_schedule"`
}

// JWTServiceConfig converts the settings for the token issuer.
func (a AuthConfig) JWTServiceConfig() iauth.JWTConfig {
	return iauth.JWTConfig{
		Secret:   a.JWT.Secret,
		Issuer:   a.JWT.Issuer,
		TokenTTL: a.JWT.TTL,
	}
}

// LoginServiceConfig converts the settings for the login orchestrator.
func (a AuthConfig) LoginServiceConfig() iauth.LoginConfig {
	return iauth.LoginConfig{
		LockoutThreshold: a.Lockout.Threshold,
		LockoutDuration:  a.Lockout.Duration,
	}
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("REALVISTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate enforces invariants that must fail startup rather than surface at
// request time. In production the signing secret and encryption key must be
// configured explicitly; generated fallbacks are development-only.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Production() {
		if strings.TrimSpace(c.Auth.JWT.Secret) == "" {
			return errors.New("config: auth.jwt.secret must be configured in production")
		}
		if strings.TrimSpace(c.Auth.TOTP.EncryptionKey) == "" {
			return errors.New("config: auth.totp.encryption_key must be configured in production")
		}
	}

	if key := strings.TrimSpace(c.Auth.TOTP.EncryptionKey); key != "" {
		length, err := KeyByteLength(key)
		if err != nil {
			return fmt.Errorf("config: auth.totp.encryption_key: %w", err)
		}
		if length != 16 && length != 24 && length != 32 {
			return fmt.Errorf("config: auth.totp.encryption_key must decode to 16, 24, or 32 bytes (got %d)", length)
		}
	}

	if c.Auth.Lockout.Threshold < 0 {
		return errors.New("config: auth.lockout.threshold must not be negative")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "development")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/realvista.sqlite")

	v.SetDefault("auth.jwt.issuer", "realvista")
	v.SetDefault("auth.jwt.token_ttl", "24h")
	v.SetDefault("auth.lockout.threshold", 3)
	v.SetDefault("auth.lockout.duration", "24h")
	v.SetDefault("auth.totp.issuer", "RealVista")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("audit.cleanup_schedule", "@daily")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
