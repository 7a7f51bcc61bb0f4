// Package config loads walletauth settings from the environment.
package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// Prefix is prepended to every environment variable name.
const Prefix = "WALLETAUTH_"

const (
	EnvLocal      = "local"
	EnvStaging    = "staging"
	EnvProduction = "production"
)

// Config controls the walletauth service.
//
// Redis and the signing key may be omitted locally, in which case an
// in-memory store and an ephemeral key are used.
type Config struct {
	Env        string `env:"ENV"         envDefault:"local" validate:"required,oneof=local staging production"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":9000" validate:"required"`

	RedisURL    string `env:"REDIS_URL"    validate:"required_unless=Env local"`
	EventsTopic string `env:"EVENTS_TOPIC" envDefault:"walletauth.events" validate:"required"`

	// SigningKeyPEM is read from the file named by WALLETAUTH_SIGNING_KEY_FILE.
	SigningKeyPEM string `env:"SIGNING_KEY_FILE,file" validate:"required_unless=Env local"`
	Issuer        string `env:"ISSUER" envDefault:"walletauth"`

	Banner       string        `env:"BANNER"        envDefault:"Web3 Transaction Dashboard Authentication" validate:"required"`
	ChallengeTTL time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"   validate:"gt=0"`
	AccessTTL    time.Duration `env:"ACCESS_TTL"    envDefault:"5m"   validate:"gt=0"`
	RefreshTTL   time.Duration `env:"REFRESH_TTL"   envDefault:"120h" validate:"gt=0"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// Load parses and validates the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsLocal reports whether the service runs in local mode.
func (c Config) IsLocal() bool {
	return c.Env == EnvLocal
}

// SigningKey returns the ES256 key for session tokens. Without a configured
// key a fresh one is generated, which only makes sense locally.
func (c Config) SigningKey() (*ecdsa.PrivateKey, error) {
	if c.SigningKeyPEM == "" {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		return key, nil
	}

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(c.SigningKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing key must be on P-256")
	}
	return key, nil
}
