package shopauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every tunable of the engine. Populate it during
// initialization and treat it as immutable afterwards.
type Config struct {
	JWT          JWTConfig          `yaml:"jwt"`
	Tokens       TokenConfig        `yaml:"tokens"`
	Session      SessionConfig      `yaml:"session"`
	Verification VerificationConfig `yaml:"verification"`
	Reset        ResetConfig        `yaml:"reset"`
	Password     PasswordConfig     `yaml:"password"`
	Tasks        TasksConfig        `yaml:"tasks"`
}

// JWTConfig controls access-token issuance. Secret signs with HS256 and
// must be at least 32 bytes.
type JWTConfig struct {
	Secret    string        `yaml:"secret" env:"SHOPAUTH_JWT_SECRET"`
	AccessTTL time.Duration `yaml:"access_ttl" env:"SHOPAUTH_JWT_ACCESS_TTL" env-default:"15m"`
	Issuer    string        `yaml:"issuer" env:"SHOPAUTH_JWT_ISSUER" env-default:"shopauth"`
	Leeway    time.Duration `yaml:"leeway" env:"SHOPAUTH_JWT_LEEWAY" env-default:"30s"`
}

// TokenConfig controls the opaque-secret codec. DigestSecret keys the HMAC
// applied to refresh and verification secrets before storage.
type TokenConfig struct {
	DigestSecret string `yaml:"digest_secret" env:"SHOPAUTH_TOKEN_DIGEST_SECRET"`
}

// SessionConfig controls per-device refresh sessions.
type SessionConfig struct {
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"SHOPAUTH_SESSION_REFRESH_TTL" env-default:"720h"`
}

// VerificationConfig controls the email-verification workflow.
type VerificationConfig struct {
	RedisPrefix string        `yaml:"redis_prefix" env:"SHOPAUTH_VERIFICATION_PREFIX" env-default:"shopauth:verif"`
	EmailTTL    time.Duration `yaml:"email_ttl" env:"SHOPAUTH_VERIFICATION_EMAIL_TTL" env-default:"24h"`
	ResendTTL   time.Duration `yaml:"resend_ttl" env:"SHOPAUTH_VERIFICATION_RESEND_TTL" env-default:"1h"`
}

// ResetConfig controls the password-reset workflow.
type ResetConfig struct {
	CodeTTL   time.Duration `yaml:"code_ttl" env:"SHOPAUTH_RESET_CODE_TTL" env-default:"10m"`
	OTPDigits int           `yaml:"otp_digits" env:"SHOPAUTH_RESET_OTP_DIGITS" env-default:"6"`
}

// PasswordConfig carries the argon2id parameters, in the same units as
// password.Params.
type PasswordConfig struct {
	MemoryKB    uint32 `yaml:"memory_kb" env:"SHOPAUTH_PASSWORD_MEMORY_KB" env-default:"65536"`
	Time        uint32 `yaml:"time" env:"SHOPAUTH_PASSWORD_TIME" env-default:"2"`
	Parallelism uint8  `yaml:"parallelism" env:"SHOPAUTH_PASSWORD_PARALLELISM" env-default:"2"`
	SaltLength  uint32 `yaml:"salt_length" env:"SHOPAUTH_PASSWORD_SALT_LENGTH" env-default:"16"`
	KeyLength   uint32 `yaml:"key_length" env:"SHOPAUTH_PASSWORD_KEY_LENGTH" env-default:"32"`
}

// TasksConfig controls the background dispatcher used for best-effort side
// effects such as outbound mail.
type TasksConfig struct {
	BufferSize int `yaml:"buffer_size" env:"SHOPAUTH_TASKS_BUFFER" env-default:"256"`
}

// DefaultConfig returns the configuration the engine ships with. Secrets
// have no defaults and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
			Issuer:    "shopauth",
			Leeway:    30 * time.Second,
		},
		Session: SessionConfig{
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Verification: VerificationConfig{
			RedisPrefix: "shopauth:verif",
			EmailTTL:    24 * time.Hour,
			ResendTTL:   time.Hour,
		},
		Reset: ResetConfig{
			CodeTTL:   10 * time.Minute,
			OTPDigits: 6,
		},
		Password: PasswordConfig{
			MemoryKB:    65536,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Tasks: TasksConfig{
			BufferSize: 256,
		},
	}
}

// LoadConfig reads path when non-empty, then overlays environment
// variables. An empty path loads from the environment alone.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("read config from env: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	if len(c.Tokens.DigestSecret) < 32 {
		return errors.New("Tokens DigestSecret must be at least 32 bytes")
	}

	if c.Session.RefreshTTL <= 0 {
		return errors.New("Session RefreshTTL must be > 0")
	}
	if c.Session.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("Session RefreshTTL must be >= JWT AccessTTL")
	}

	if c.Verification.EmailTTL <= 0 {
		return errors.New("Verification EmailTTL must be > 0")
	}
	if c.Verification.ResendTTL <= 0 {
		return errors.New("Verification ResendTTL must be > 0")
	}
	if c.Verification.ResendTTL > c.Verification.EmailTTL {
		return errors.New("Verification ResendTTL must be <= EmailTTL")
	}

	if c.Reset.CodeTTL <= 0 {
		return errors.New("Reset CodeTTL must be > 0")
	}
	if c.Reset.OTPDigits < 4 || c.Reset.OTPDigits > 10 {
		return errors.New("Reset OTPDigits must be between 4 and 10")
	}

	if c.Password.MemoryKB < 8*1024 {
		return errors.New("Password MemoryKB must be >= 8192")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	if c.Tasks.BufferSize <= 0 {
		return errors.New("Tasks BufferSize must be > 0")
	}

	return nil
}
