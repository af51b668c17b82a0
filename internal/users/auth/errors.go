// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"errors"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
)

// Domain failures. [apperr.AppError] compares by code, so errors.Is works
// against these values even for freshly constructed errors of the same kind.
var (
	ErrDuplicateIdentity = apperr.DuplicateIdentity(MsgDuplicateIdentity)
	ErrUnknownIdentity   = apperr.UnknownIdentity(MsgUnknownIdentity)
	ErrInvalidCredential = apperr.InvalidCredential(MsgInvalidCredential)
	ErrAccountBlocked    = apperr.AccountBlocked(MsgAccountBlocked)
	ErrAccountInactive   = apperr.AccountInactive(MsgAccountInactive)
	ErrInvalidOTP        = apperr.InvalidOTP(MsgInvalidOTP)
	ErrForbiddenRole     = apperr.Forbidden(MsgAdminRequired)
)

// ErrInvalidState is returned when an OAuth callback carries an unknown,
// expired or already used state.
var ErrInvalidState = errors.New("auth: invalid oauth state")

// ErrUnknownProvider is returned for providers that are not configured.
var ErrUnknownProvider = apperr.NotFound("Identity provider")
