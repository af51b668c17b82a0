// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Credential Store

// UserRepository defines the data access contract for user accounts.
//
// Lookups return [dberr.ErrNotFound] when no live (non soft-deleted) row
// matches. Writes that collide with a unique index return an error for which
// [dberr.IsUniqueViolation] is true.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - ctx: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByID(ctx context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email (exact match).

		Parameters:
		  - ctx: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByEmail(ctx context.Context, email string) (*User, error)

	/*
		FindByExternalID returns the account linked to a provider identity.

		Parameters:
		  - ctx: context.Context
		  - provider: Provider
		  - externalID: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or retrieval failures
	*/
	FindByExternalID(ctx context.Context, provider Provider, externalID string) (*User, error)

	/*
		Create persists a brand-new user account.

		Parameters:
		  - ctx: context.Context
		  - user: *User (ID, timestamps already set)

		Returns:
		  - error: unique violation on email or provider id, or persistence failures
	*/
	Create(ctx context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - ctx: context.Context
		  - userID: string
		  - passwordHash: string

		Returns:
		  - error: dberr.ErrNotFound or persistence failures
	*/
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	/*
		LinkExternalID attaches a provider identity to an existing account.

		Parameters:
		  - ctx: context.Context
		  - userID: string
		  - provider: Provider
		  - externalID: string

		Returns:
		  - error: unique violation if another account holds the id, or persistence failures
	*/
	LinkExternalID(ctx context.Context, userID string, provider Provider, externalID string) error
}

// # One-Time Passcode Ledger

// OTPLedger stores pending passcodes keyed by (reason, email).
type OTPLedger interface {

	/*
		Issue replaces any pending record for (record.Reason, record.Email)
		with record. The record becomes unreadable at record.ExpiresAt.

		Parameters:
		  - ctx: context.Context
		  - record: *OTPRecord

		Returns:
		  - error: Storage failures
	*/
	Issue(ctx context.Context, record *OTPRecord) error

	/*
		Consume atomically matches and deletes a pending record.

		Description: The record is returned and removed only when code matches
		exactly and now is strictly before ExpiresAt. A wrong code leaves the
		record in place until MaxAttempts wrong codes have been presented, at
		which point the record is discarded.

		Parameters:
		  - ctx: context.Context
		  - reason: OTPReason
		  - email: string
		  - code: string
		  - now: time.Time

		Returns:
		  - *OTPRecord: the consumed record
		  - error: ErrInvalidOTP for wrong, expired, exhausted and missing alike; storage failures otherwise
	*/
	Consume(ctx context.Context, reason OTPReason, email, code string, now time.Time) (*OTPRecord, error)
}

// # OAuth State

// StateStore keeps OAuth CSRF state between the redirect and the callback.
type StateStore interface {

	/*
		Save stores state for ttl.

		Parameters:
		  - ctx: context.Context
		  - state: string
		  - value: OAuthState
		  - ttl: time.Duration

		Returns:
		  - error: Storage failures
	*/
	Save(ctx context.Context, state string, value OAuthState, ttl time.Duration) error

	/*
		Consume reads and deletes state in one step.

		Parameters:
		  - ctx: context.Context
		  - state: string

		Returns:
		  - *OAuthState: the stored value
		  - error: ErrInvalidState when absent or expired; storage failures otherwise
	*/
	Consume(ctx context.Context, state string) (*OAuthState, error)
}
