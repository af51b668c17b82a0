// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
	"github.com/taibuivan/bizaek/internal/platform/dberr"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/platform/validate"
	"github.com/taibuivan/bizaek/internal/users/auth"
)

// # Service Layer

// Service orchestrates reads of the caller's record and admin status changes.
type Service struct {
	accountRepository AccountRepository
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(accountRepo AccountRepository) *Service {
	return &Service{accountRepository: accountRepo}
}

/*
GetProfile retrieves the full private identity of a user.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - *auth.User: The hydrated user profile
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(ctx context.Context, userID string) (*auth.User, error) {
	user, err := service.accountRepository.FindByID(ctx, userID)
	if dberr.IsNotFound(err) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user, nil
}

/*
SetStatus changes the lifecycle state of another account.

Description: Blocking or deactivating takes effect on the target's next
request, since the permission gate re-reads the record every time. Admins
cannot change their own status, which keeps at least the acting admin able to
undo a mistake.

Parameters:
  - ctx: context.Context
  - actor: *sec.Identity (the authenticated admin)
  - userID: string
  - status: string

Returns:
  - *auth.User: The updated record
  - error: Validation, Forbidden, NotFound or execution failures
*/
func (service *Service) SetStatus(ctx context.Context, actor *sec.Identity, userID, status string) (*auth.User, error) {
	v := &validate.Validator{}
	v.UUID(FieldID, userID).
		Required(FieldStatus, status).
		OneOf(FieldStatus, status, auth.AllStatuses()...)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if actor.UserID == userID {
		return nil, apperr.Forbidden("Administrators cannot change their own status")
	}

	err := service.accountRepository.UpdateStatus(ctx, userID, auth.Status(status))
	if dberr.IsNotFound(err) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("account_service_set_status_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "account_status_changed",
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("actor_id", actor.UserID),
	)

	return service.GetProfile(ctx, userID)
}
