// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// OAuthStateTTL is how long a started OAuth round trip may take.
	OAuthStateTTL = 5 * time.Minute

	// OAuthStateLength is the byte length of the random state parameter.
	OAuthStateLength = 32

	// DefaultOTPMaxAttempts is the wrong-code budget of a pending record when
	// Settings leaves it unset.
	DefaultOTPMaxAttempts = 5

	// MinPasswordLength applies to every password set through this package.
	MinPasswordLength = 8

	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72

	// MaxNameLength caps display names.
	MaxNameLength = 100

	// MaxEmailLength follows the RFC 5321 path limit.
	MaxEmailLength = 254
)

// # Client-facing messages

const (
	MsgOTPSent           = "A verification code has been sent to your email"
	MsgResetRequested    = "If an account exists for this email, a reset code has been sent"
	MsgPasswordReset     = "Your password has been reset"
	MsgDuplicateIdentity = "An account with this email already exists"
	MsgUnknownIdentity   = "No account exists for this email"
	MsgInvalidCredential = "Incorrect email or password"
	MsgAccountBlocked    = "This account has been blocked"
	MsgAccountInactive   = "This account is inactive"
	MsgInvalidOTP        = "The code is invalid or has expired"
	MsgAdminRequired     = "Administrator access required"
)
