// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the identity and access layer of Bizaek.

It owns the credential store (users.account), the one-time passcode ledger,
registration and login orchestration, the OAuth bridge and the permission gate
that re-validates every bearer token against the live account.

# Architecture

  - Entities: User, OTPRecord, OAuthState.
  - Contracts: UserRepository, OTPLedger, StateStore (store.go).
  - Orchestration: Registrar, Service, Bridge, Gate.
  - Transport: Handler (http.go, http_oauth.go).
*/
package auth

import (
	"time"

	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/pkg/slice"
)

// # Account Lifecycle

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusBlocked  Status = "BLOCKED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusBlocked:
		return true
	}
	return false
}

// AllStatuses lists every status, in display order.
func AllStatuses() []string {
	return slice.Map([]Status{StatusActive, StatusInactive, StatusBlocked}, func(s Status) string {
		return string(s)
	})
}

// # External Identity Providers

// Provider names an OAuth identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderGithub   Provider = "github"
)

// # Domain Entities

// User is a record in the credential store.
//
// PasswordHash is empty for accounts created through an OAuth provider; such
// accounts can never log in with a password.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string       `json:"display_name"`
	ProfileImage string       `json:"profile_image,omitempty"`
	GoogleID     string       `json:"-"`
	FacebookID   string       `json:"-"`
	GithubID     string       `json:"-"`
	Role         sec.UserRole `json:"role"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasPassword reports whether a password hash is on file.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Identity projects the whitelisted token fields out of the record.
func (u *User) Identity() sec.Identity {
	return sec.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// ExternalID returns the id the given provider knows this user by.
func (u *User) ExternalID(provider Provider) string {
	switch provider {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderFacebook:
		return u.FacebookID
	case ProviderGithub:
		return u.GithubID
	}
	return ""
}

// SetExternalID records the id the given provider knows this user by.
func (u *User) SetExternalID(provider Provider, externalID string) {
	switch provider {
	case ProviderGoogle:
		u.GoogleID = externalID
	case ProviderFacebook:
		u.FacebookID = externalID
	case ProviderGithub:
		u.GithubID = externalID
	}
}

// # One-Time Passcodes

// OTPReason scopes a passcode to the flow that issued it.
type OTPReason string

const (
	OTPReasonReset    OTPReason = "RESET"
	OTPReasonLogin    OTPReason = "LOGIN"
	OTPReasonUpdate   OTPReason = "UPDATE"
	OTPReasonRegister OTPReason = "REGISTER"
)

// OTPRecord is a pending passcode. At most one exists per (Reason, Email).
//
// Name and PasswordHash are staged registration fields and are only set for
// OTPReasonRegister.
type OTPRecord struct {
	Email        string
	Code         string
	ExpiresAt    time.Time
	Reason       OTPReason
	Name         string
	PasswordHash string

	// MaxAttempts is how many wrong codes the record absorbs before it is discarded.
	MaxAttempts int
}

// # OAuth

// OAuthState is the server-side half of the CSRF state parameter.
type OAuthState struct {
	Provider  Provider  `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// ProviderProfile is the verified profile an identity provider returns.
type ProviderProfile struct {
	Provider    Provider
	ExternalID  string
	DisplayName string
	Email       string
	AvatarURL   string
}

// # Field Identifiers

// Field names used in request bodies and validation errors.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldName        = "name"
	FieldCode        = "code"
	FieldNewPassword = "new_password"
	FieldProvider    = "provider"
)
