// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: Token cookie configuration and header names.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "bizaek-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// MailDispatchTimeout bounds a single background mail send.
	MailDispatchTimeout = 30 * time.Second

	// OAuthExchangeTimeout bounds the code exchange and profile fetch with a provider.
	OAuthExchangeTimeout = 10 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// TokenCookieName is the cookie that carries the bearer token for browser clients.
	TokenCookieName = "token"

	// TokenCookiePath scopes the token cookie to the whole site.
	TokenCookiePath = "/"

	// TokenCookieMaxAge is the lifetime of the token cookie.
	TokenCookieMaxAge = 7 * 24 * time.Hour

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// GuestRealm is the HTTP Basic realm announced by the guest access gate.
	GuestRealm = "bizaek-guest"
)

// # HTTP Headers

const (
	HeaderAuthorization   = "Authorization"
	HeaderXRequestID      = "X-Request-ID"
	HeaderOrigin          = "Origin"
	HeaderWWWAuthenticate = "WWW-Authenticate"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldToken   = "token"
	FieldUser    = "user"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaUsers = "users"
)

// # Redis Prefixes (Key Taxonomy)

const (
	RedisPrefixOTP        = "auth:otp:"
	RedisPrefixOAuthState = "auth:oauth_state:"
)
