// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.

The token secret and lifetimes live here and nowhere else; nothing below cmd/
reads the process environment.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/bizaek/pkg/slice"
)

// MinTokenSecretLength is the shortest accepted HS256 signing secret in bytes.
const MinTokenSecretLength = 32

// Registration modes accepted by REGISTRATION_MODE.
const (
	RegistrationModeOTP    = "otp"
	RegistrationModeDirect = "direct"
)

// # Configuration Schema

// Config holds all runtime configuration for the Bizaek API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis): OTP ledger and OAuth state
	RedisURL string `env:"REDIS_URL,required"`

	// Bearer token signing
	TokenSecret   string        `env:"TOKEN_SECRET,required"`
	TokenIssuer   string        `env:"TOKEN_ISSUER"    envDefault:"bizaek.app"`
	UserTokenTTL  time.Duration `env:"USER_TOKEN_TTL"  envDefault:"168h"`
	AdminTokenTTL time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`

	// One-time passcodes
	OTPTTL           time.Duration `env:"OTP_TTL"           envDefault:"15m"`
	RegistrationMode string        `env:"REGISTRATION_MODE" envDefault:"otp"`

	// OTPMaxAttempts is how many wrong codes a pending record survives.
	OTPMaxAttempts int `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`

	// TrustProxyHeaders makes X-Real-IP / X-Forwarded-For the client address.
	// Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// CookieDomain scopes the token cookie in production. Empty means host-only.
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// Guest access (HTTP Basic) in front of admin register/login
	GuestUsername string `env:"GUEST_USERNAME"`
	GuestPassword string `env:"GUEST_PASSWORD"`

	// Outbound mail (SMTP)
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`

	// OAuth identity providers. A provider without a client id is disabled.
	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
	GithubClientID       string `env:"GITHUB_CLIENT_ID"`
	GithubClientSecret   string `env:"GITHUB_CLIENT_SECRET"`

	// OAuthCallbackBaseURL is the public origin providers redirect back to,
	// e.g. https://api.bizaek.app. The callback path is appended per provider.
	OAuthCallbackBaseURL string `env:"OAUTH_CALLBACK_BASE_URL" envDefault:"http://localhost:8080"`
	OAuthSuccessURL      string `env:"OAUTH_SUCCESS_URL"       envDefault:"http://localhost:3000/auth/success"`
	OAuthFailureURL      string `env:"OAUTH_FAILURE_URL"       envDefault:"http://localhost:3000/auth/failure"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.TokenSecret) < MinTokenSecretLength {
		errs = append(errs, fmt.Errorf("TOKEN_SECRET must be at least %d bytes", MinTokenSecretLength))
	}

	switch c.RegistrationMode {
	case RegistrationModeOTP, RegistrationModeDirect:
	default:
		errs = append(errs, fmt.Errorf("REGISTRATION_MODE must be %q or %q, got %q",
			RegistrationModeOTP, RegistrationModeDirect, c.RegistrationMode))
	}

	if c.UserTokenTTL <= 0 || c.AdminTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}

	if c.OTPMaxAttempts <= 0 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be positive"))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MailEnabled reports whether enough SMTP settings are present to send mail.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != ""
}

// Origins returns the parsed EXTRA_ORIGINS list.
func (c *Config) Origins() []string {
	return slice.SplitList(c.ExtraOrigins)
}
