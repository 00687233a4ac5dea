// Package main wires the auth core into a runnable REST backend.
package main

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :3000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseDSN is the sqlite DSN (file path or :memory:).
	DatabaseDSN string `mapstructure:"DATABASE_DSN"`
	// AccessSigningKey signs access tokens. Required.
	AccessSigningKey string `mapstructure:"ACCESS_SIGNING_KEY"`
	// RenewalSigningKey signs renewal tokens. Required, must differ from the access key.
	RenewalSigningKey string `mapstructure:"RENEWAL_SIGNING_KEY"`
	// AccessTTL is the access token lifetime (e.g. "15m").
	AccessTTL string `mapstructure:"ACCESS_TTL"`
	// RenewalTTL is the renewal token lifetime (e.g. "168h").
	RenewalTTL string `mapstructure:"RENEWAL_TTL"`
	// Issuer is the iss claim on both tokens.
	Issuer string `mapstructure:"TOKEN_ISSUER"`
	// AdminEmail and AdminPassword seed a bootstrap admin when no admin exists.
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	// Env is the application environment ("development" disables the Secure cookie flag).
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Missing .env is ignored; env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("DATABASE_DSN", "file:fleet.db?cache=shared")
	v.SetDefault("ACCESS_TTL", "15m")
	v.SetDefault("RENEWAL_TTL", "168h") // 7d
	v.SetDefault("TOKEN_ISSUER", "fleet-auth")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("APP_ENV", "development")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AccessSigningKey == "" || cfg.RenewalSigningKey == "" {
		return nil, errors.New("config: ACCESS_SIGNING_KEY and RENEWAL_SIGNING_KEY must be set")
	}

	if cfg.AccessSigningKey == cfg.RenewalSigningKey {
		return nil, errors.New("config: access and renewal signing keys must differ")
	}

	return &cfg, nil
}

// authConfig adapts Config to the interface the auth core consumes.
type authConfig struct {
	cfg *Config
}

func (a authConfig) GetAccessSigningKey() string  { return a.cfg.AccessSigningKey }
func (a authConfig) GetRenewalSigningKey() string { return a.cfg.RenewalSigningKey }
func (a authConfig) GetIssuer() string            { return a.cfg.Issuer }
func (a authConfig) GetAccessCookieName() string  { return "jwt" }
func (a authConfig) GetRenewalCookieName() string { return "refreshToken" }

func (a authConfig) GetAccessTokenTTL() time.Duration {
	d, err := time.ParseDuration(a.cfg.AccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

func (a authConfig) GetRenewalTokenTTL() time.Duration {
	d, err := time.ParseDuration(a.cfg.RenewalTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

func (a authConfig) GetCookieSecure() bool {
	return a.cfg.Env != "development"
}
