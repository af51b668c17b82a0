// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
	"github.com/taibuivan/bizaek/internal/platform/constants"
	"github.com/taibuivan/bizaek/internal/platform/dberr"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/pkg/uuid"
)

// # Permission Gate

// TokenVerifier checks a raw bearer token. [*sec.TokenService] implements it.
type TokenVerifier interface {
	Verify(raw string) (*sec.Claims, error)
}

// Gate authenticates bearer tokens against the live credential store.
//
// A valid signature is not enough: the account must still exist and be ACTIVE,
// so blocking a user takes effect on their next request.
type Gate struct {
	users  UserRepository
	tokens TokenVerifier
}

// NewGate constructs a new [Gate].
func NewGate(users UserRepository, tokens TokenVerifier) *Gate {
	return &Gate{users: users, tokens: tokens}
}

/*
Authenticate resolves an Authorization header value into a live identity.

Parameters:
  - ctx: context.Context
  - authorization: string (raw header value)

Returns:
  - *sec.Identity: Built from the current account record
  - error: apperr Unauthorized for bad tokens, Forbidden for missing or non-active accounts
*/
func (gate *Gate) Authenticate(ctx context.Context, authorization string) (*sec.Identity, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		return nil, apperr.Unauthorized("Missing or malformed bearer token")
	}

	claims, err := gate.tokens.Verify(raw)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}
	if !uuid.Valid(claims.UserID) {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	user, err := gate.users.FindByID(ctx, claims.UserID)
	if dberr.IsNotFound(err) {
		return nil, apperr.Forbidden("Account no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("auth_gate_lookup_failed: %w", err)
	}

	if user.Status != StatusActive {
		return nil, apperr.Forbidden("Account is not active")
	}

	identity := user.Identity()
	return &identity, nil
}

// bearerToken strips a case-insensitive "Bearer " prefix.
func bearerToken(header string) (string, bool) {
	prefixLength := len(constants.BearerPrefix)
	if len(header) <= prefixLength || !strings.EqualFold(header[:prefixLength], constants.BearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[prefixLength:])
	return token, token != ""
}
