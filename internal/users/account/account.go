// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account exposes the authenticated user's own record and the admin
control over account lifecycle.

# Architecture

  - Domain: This package depends on the auth package for the User entity and
    its Status values.
  - Security: Every route sits behind the permission gate; status changes
    additionally require the admin role.
*/
package account

import (
	"context"

	"github.com/taibuivan/bizaek/internal/users/auth"
)

// # Repository Contracts

// AccountRepository defines the persistence contract for account lifecycle.
type AccountRepository interface {
	/*
		FindByID retrieves a user record by their unique ID.

		Parameters:
		  - ctx: context.Context
		  - userID: string

		Returns:
		  - *auth.User: The user entity
		  - error: dberr.ErrNotFound or execution errors
	*/
	FindByID(ctx context.Context, userID string) (*auth.User, error)

	/*
		UpdateStatus moves a live account to a new lifecycle state.

		Parameters:
		  - ctx: context.Context
		  - userID: string
		  - status: auth.Status

		Returns:
		  - error: dberr.ErrNotFound when no live row matched
	*/
	UpdateStatus(ctx context.Context, userID string, status auth.Status) error
}

// # Field Identifiers

const (
	FieldStatus = "status"
	FieldID     = "id"
)
