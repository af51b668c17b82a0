// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"

	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/platform/validate"
)

// # Registration

// RegisterInput is the material a client submits to create an account.
// Password is optional for members; accounts without one can only sign in
// through OAuth. Administrators always need one.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// RegisterOutcome is either a created account with its token, or Pending when
// the account is waiting on an emailed code.
type RegisterOutcome struct {
	User    *User
	Token   string
	Pending bool
}

// Registrar is the one registration capability; the deployment picks the strategy.
type Registrar interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterOutcome, error)
}

// DirectRegistrar creates the account immediately with a fixed role.
type DirectRegistrar struct {
	service *Service
	role    sec.UserRole
}

// NewDirectRegistrar returns a Registrar that creates accounts with the given role.
func NewDirectRegistrar(service *Service, role sec.UserRole) *DirectRegistrar {
	return &DirectRegistrar{service: service, role: role}
}

/*
Register creates and signs in a new account.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *RegisterOutcome: User and token
  - error: ErrDuplicateIdentity, validation or storage errors
*/
func (registrar *DirectRegistrar) Register(ctx context.Context, input RegisterInput) (*RegisterOutcome, error) {
	input, hash, err := registrar.service.prepareRegistration(ctx, input, registrar.role.AtLeast(sec.RoleAdmin))
	if err != nil {
		return nil, err
	}

	user, err := registrar.service.createUser(ctx, newUserInput{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
		Role:         registrar.role,
	})
	if err != nil {
		return nil, err
	}

	session, err := registrar.service.startSession(user)
	if err != nil {
		return nil, err
	}

	return &RegisterOutcome{User: session.User, Token: session.Token}, nil
}

// OTPRegistrar stages the account and mails a REGISTER code. The account is
// created by [Service.VerifyAndRegister].
type OTPRegistrar struct {
	service *Service
}

// NewOTPRegistrar returns a Registrar that defers creation to code verification.
func NewOTPRegistrar(service *Service) *OTPRegistrar {
	return &OTPRegistrar{service: service}
}

/*
Register stages a pending registration.

Description: Issuing replaces any earlier pending registration for the email,
so only the most recently mailed code is accepted.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *RegisterOutcome: Pending outcome
  - error: ErrDuplicateIdentity, validation or storage errors
*/
func (registrar *OTPRegistrar) Register(ctx context.Context, input RegisterInput) (*RegisterOutcome, error) {
	service := registrar.service

	input, hash, err := service.prepareRegistration(ctx, input, false)
	if err != nil {
		return nil, err
	}

	record := &OTPRecord{
		Email:        input.Email,
		Reason:       OTPReasonRegister,
		Name:         input.Name,
		PasswordHash: hash,
	}
	if err := service.issueOTP(ctx, record); err != nil {
		return nil, err
	}

	service.dispatch(ctx, registerMessage(record.Email, record.Code, service.settings.OTPTTL))

	ctxutil.GetLogger(ctx).InfoContext(ctx, "registration_pending", slog.String("email", record.Email))
	return &RegisterOutcome{Pending: true}, nil
}

// prepareRegistration validates input, rejects taken emails and hashes the
// password. The password may only be omitted when passwordRequired is false.
func (service *Service) prepareRegistration(ctx context.Context, input RegisterInput, passwordRequired bool) (RegisterInput, string, error) {
	input.Email = normalizeEmail(input.Email)

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, MaxEmailLength).
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, MaxNameLength)
	if passwordRequired {
		v.Required(FieldPassword, input.Password)
	}
	if input.Password != "" {
		validatePassword(v, FieldPassword, input.Password)
	}
	if err := v.Err(); err != nil {
		return input, "", err
	}

	if err := service.ensureEmailAvailable(ctx, input.Email); err != nil {
		return input, "", err
	}

	hash, err := hashOptional(input.Password)
	if err != nil {
		return input, "", err
	}

	return input, hash, nil
}
