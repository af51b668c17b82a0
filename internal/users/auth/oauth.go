// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
	"github.com/taibuivan/bizaek/internal/platform/dberr"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/platform/validate"
	"github.com/taibuivan/bizaek/pkg/uuid"
)

// # OAuth Bridge

// Bridge reconciles provider profiles with the credential store.
type Bridge struct {
	users UserRepository
	now   func() time.Time
}

// NewBridge constructs a new [Bridge]. A nil clock means [time.Now].
func NewBridge(users UserRepository, now func() time.Time) *Bridge {
	if now == nil {
		now = time.Now
	}
	return &Bridge{users: users, now: now}
}

/*
HandleCallback finds or creates the account behind a provider profile.

Description: Lookup order is the provider's external id, then an existing
account with the same email (which gets the id linked), then a new password-less
member account. When a concurrent callback wins the insert, the unique violation
is resolved by reading the winner's record, so the call is idempotent per
external id.

Parameters:
  - ctx: context.Context
  - profile: ProviderProfile

Returns:
  - *User: Linked or created account
  - error: validation or storage errors
*/
func (bridge *Bridge) HandleCallback(ctx context.Context, profile ProviderProfile) (*User, error) {
	profile.Email = normalizeEmail(profile.Email)

	v := &validate.Validator{}
	v.Required(FieldProvider, profile.ExternalID).Required(FieldEmail, profile.Email)
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := bridge.findOrLink(ctx, profile)
	if err == nil {
		return user, nil
	}
	if !dberr.IsNotFound(err) {
		return nil, err
	}

	user, err = bridge.create(ctx, profile)
	if dberr.IsUniqueViolation(err) {
		return bridge.findOrLink(ctx, profile)
	}
	return user, err
}

// findOrLink returns dberr.ErrNotFound when neither the external id nor the
// email is known.
func (bridge *Bridge) findOrLink(ctx context.Context, profile ProviderProfile) (*User, error) {
	user, err := bridge.users.FindByExternalID(ctx, profile.Provider, profile.ExternalID)
	if err == nil {
		return user, nil
	}
	if !dberr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_bridge_lookup_failed: %w", err)
	}

	user, err = bridge.users.FindByEmail(ctx, profile.Email)
	if dberr.IsNotFound(err) {
		return nil, dberr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth_bridge_lookup_failed: %w", err)
	}

	if existing := user.ExternalID(profile.Provider); existing != "" && existing != profile.ExternalID {
		return nil, fmt.Errorf("auth_bridge_link_conflict: account already linked to another %s identity", profile.Provider)
	}

	if err := bridge.users.LinkExternalID(ctx, user.ID, profile.Provider, profile.ExternalID); err != nil {
		return nil, fmt.Errorf("auth_bridge_link_failed: %w", err)
	}
	user.SetExternalID(profile.Provider, profile.ExternalID)

	ctxutil.GetLogger(ctx).InfoContext(ctx, "oauth_identity_linked",
		slog.String("user_id", user.ID),
		slog.String("provider", string(profile.Provider)),
	)
	return user, nil
}

func (bridge *Bridge) create(ctx context.Context, profile ProviderProfile) (*User, error) {
	now := bridge.now()
	user := &User{
		ID:           uuid.New(),
		Email:        profile.Email,
		DisplayName:  displayNameFor(profile),
		ProfileImage: profile.AvatarURL,
		Role:         sec.RoleMember,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.SetExternalID(profile.Provider, profile.ExternalID)

	if err := bridge.users.Create(ctx, user); err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_bridge_create_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "oauth_user_created",
		slog.String("user_id", user.ID),
		slog.String("provider", string(profile.Provider)),
	)
	return user, nil
}

// displayNameFor falls back to the local part of the email.
func displayNameFor(profile ProviderProfile) string {
	if name := strings.TrimSpace(profile.DisplayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(profile.Email, "@")
	return local
}
