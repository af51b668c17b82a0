// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
	"github.com/taibuivan/bizaek/internal/platform/dberr"
	"github.com/taibuivan/bizaek/internal/platform/mailer"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/platform/validate"
	"github.com/taibuivan/bizaek/pkg/uuid"
)

// # Contracts & Types

// TokenIssuer signs bearer tokens. [*sec.TokenService] implements it.
type TokenIssuer interface {
	Issue(identity sec.Identity, timeToLive time.Duration) (string, error)
}

// Settings are the lifetimes and limits the service applies. They come from config.Config.
type Settings struct {
	UserTokenTTL  time.Duration
	AdminTokenTTL time.Duration
	OTPTTL        time.Duration

	// OTPMaxAttempts is the wrong-code budget per record. Zero means
	// DefaultOTPMaxAttempts.
	OTPMaxAttempts int
}

// Service implements the identity use cases shared by every registration mode:
// OTP verification, login, password reset and OAuth sign-in.
type Service struct {
	users    UserRepository
	ledger   OTPLedger
	tokens   TokenIssuer
	mail     mailer.Mailer
	settings Settings
	now      func() time.Time
}

// NewService constructs a new [Service]. A nil clock means [time.Now].
func NewService(
	users UserRepository,
	ledger OTPLedger,
	tokens TokenIssuer,
	mail mailer.Mailer,
	settings Settings,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		users:    users,
		ledger:   ledger,
		tokens:   tokens,
		mail:     mail,
		settings: settings,
		now:      now,
	}
}

// LoginSession is the result of every flow that ends in a bearer token.
type LoginSession struct {
	User  *User
	Token string
}

// # Registration Completion

/*
VerifyAndRegister completes an OTP-gated registration.

Description: Consumes the REGISTER record for the email, then creates the user
from the staged name and password hash and issues a token. A code can only be
used once; wrong, expired and unknown codes fail identically.

Parameters:
  - ctx: context.Context
  - email: string
  - code: string

Returns:
  - *LoginSession: Created user and token
  - error: ErrInvalidOTP, ErrDuplicateIdentity, validation or storage errors
*/
func (service *Service) VerifyAndRegister(ctx context.Context, email, code string) (*LoginSession, error) {
	email = normalizeEmail(email)

	v := &validate.Validator{}
	v.Required(FieldEmail, email).Required(FieldCode, code).Digits(FieldCode, code, sec.OTPDigits)
	if err := v.Err(); err != nil {
		return nil, err
	}

	record, err := service.ledger.Consume(ctx, OTPReasonRegister, email, code, service.now())
	if err != nil {
		return nil, err
	}

	// The address may have been taken (OAuth, direct admin) while the code was pending.
	if err := service.ensureEmailAvailable(ctx, email); err != nil {
		return nil, err
	}

	user, err := service.createUser(ctx, newUserInput{
		Email:        record.Email,
		Name:         record.Name,
		PasswordHash: record.PasswordHash,
		Role:         sec.RoleMember,
	})
	if err != nil {
		return nil, err
	}

	return service.startSession(user)
}

// # Login

/*
Login authenticates an email and password.

Description: The checks run in a fixed order so the outcome does not depend on
which facts an attacker can guess: unknown email, then blocked (regardless of
password), then inactive, then the password itself. Accounts without a password
on file never pass.

Parameters:
  - ctx: context.Context
  - email: string
  - password: string

Returns:
  - *LoginSession: User and token
  - error: ErrUnknownIdentity, ErrAccountBlocked, ErrAccountInactive, ErrInvalidCredential
*/
func (service *Service) Login(ctx context.Context, email, password string) (*LoginSession, error) {
	user, err := service.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return service.startSession(user)
}

/*
AdminLogin is [Service.Login] restricted to administrators.

Parameters:
  - ctx: context.Context
  - email: string
  - password: string

Returns:
  - *LoginSession: User and a short-lived admin token
  - error: as Login, plus ErrForbiddenRole for non-admin accounts
*/
func (service *Service) AdminLogin(ctx context.Context, email, password string) (*LoginSession, error) {
	user, err := service.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if !sec.AtLeast(sec.RoleAdmin)(user.Role) {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "admin_login_denied", slog.String("user_id", user.ID))
		return nil, ErrForbiddenRole
	}

	return service.startSession(user)
}

func (service *Service) authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	v := &validate.Validator{}
	v.Required(FieldEmail, email).Required(FieldPassword, password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := service.users.FindByEmail(ctx, email)
	if dberr.IsNotFound(err) {
		return nil, ErrUnknownIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_failed: %w", err)
	}

	switch user.Status {
	case StatusBlocked:
		return nil, ErrAccountBlocked
	case StatusInactive:
		return nil, ErrAccountInactive
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredential
	}

	return user, nil
}

// # Password Reset

/*
RequestPasswordReset issues a RESET passcode and mails it.

Description: Always succeeds for well-formed input so the endpoint cannot be
used to discover which emails are registered. Blocked accounts get no code.

Parameters:
  - ctx: context.Context
  - email: string

Returns:
  - error: validation or storage errors only
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	v := &validate.Validator{}
	v.Required(FieldEmail, email).Email(FieldEmail, email)
	if err := v.Err(); err != nil {
		return err
	}

	user, err := service.users.FindByEmail(ctx, email)
	if dberr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}
	if user.Status == StatusBlocked {
		return nil
	}

	record := &OTPRecord{Email: user.Email, Reason: OTPReasonReset}
	if err := service.issueOTP(ctx, record); err != nil {
		return err
	}

	service.dispatch(ctx, resetMessage(user.Email, record.Code, service.settings.OTPTTL))
	return nil
}

/*
ResetPassword consumes a RESET passcode and stores a new password.

Parameters:
  - ctx: context.Context
  - email: string
  - code: string
  - newPassword: string

Returns:
  - error: ErrInvalidOTP, validation or storage errors
*/
func (service *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)

	v := &validate.Validator{}
	v.Required(FieldEmail, email).Required(FieldCode, code).Digits(FieldCode, code, sec.OTPDigits)
	validatePassword(v, FieldNewPassword, newPassword)
	if err := v.Err(); err != nil {
		return err
	}

	if _, err := service.ledger.Consume(ctx, OTPReasonReset, email, code, service.now()); err != nil {
		return err
	}

	user, err := service.users.FindByEmail(ctx, email)
	if dberr.IsNotFound(err) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}

	hash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("auth_service_reset_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "password_reset", slog.String("user_id", user.ID))
	return nil
}

// # OAuth Sign-in

/*
OAuthLogin reconciles a provider profile with the credential store and issues
a member token.

Parameters:
  - ctx: context.Context
  - bridge: *Bridge
  - profile: ProviderProfile

Returns:
  - *LoginSession: User and token
  - error: ErrAccountBlocked, ErrAccountInactive or bridge errors
*/
func (service *Service) OAuthLogin(ctx context.Context, bridge *Bridge, profile ProviderProfile) (*LoginSession, error) {
	user, err := bridge.HandleCallback(ctx, profile)
	if err != nil {
		return nil, err
	}

	switch user.Status {
	case StatusBlocked:
		return nil, ErrAccountBlocked
	case StatusInactive:
		return nil, ErrAccountInactive
	}

	return service.startSession(user)
}

// # Shared steps

// newUserInput is the validated material for a new account.
type newUserInput struct {
	Email        string
	Name         string
	PasswordHash string
	Role         sec.UserRole
}

// ensureEmailAvailable fails with ErrDuplicateIdentity when email is taken.
func (service *Service) ensureEmailAvailable(ctx context.Context, email string) error {
	_, err := service.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateIdentity
	case dberr.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("auth_service_duplicate_check_failed: %w", err)
	}
}

// createUser persists an ACTIVE account. A unique violation on email, which
// happens when two registrations race past ensureEmailAvailable, is reported
// as ErrDuplicateIdentity.
func (service *Service) createUser(ctx context.Context, input newUserInput) (*User, error) {
	now := service.now()
	user := &User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		DisplayName:  input.Name,
		Role:         input.Role,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.users.Create(ctx, user); err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("auth_service_create_user_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// startSession issues a token whose lifetime depends on the user's role.
func (service *Service) startSession(user *User) (*LoginSession, error) {
	ttl := service.settings.UserTokenTTL
	if user.Role == sec.RoleAdmin {
		ttl = service.settings.AdminTokenTTL
	}

	token, err := service.tokens.Issue(user.Identity(), ttl)
	if err != nil {
		return nil, fmt.Errorf("auth_service_issue_token_failed: %w", err)
	}

	return &LoginSession{User: user, Token: token}, nil
}

// issueOTP fills in Code and ExpiresAt and stores the record, replacing any
// pending record for the same (reason, email).
func (service *Service) issueOTP(ctx context.Context, record *OTPRecord) error {
	code, err := sec.GenerateOTP(sec.OTPDigits)
	if err != nil {
		return fmt.Errorf("auth_service_otp_failed: %w", err)
	}

	record.Code = code
	record.ExpiresAt = service.now().Add(service.settings.OTPTTL)
	record.MaxAttempts = service.settings.OTPMaxAttempts

	if err := service.ledger.Issue(ctx, record); err != nil {
		return fmt.Errorf("auth_service_otp_failed: %w", err)
	}
	return nil
}

// dispatch hands a message to the mailer. Delivery problems are logged and
// never change the outcome of the calling flow.
func (service *Service) dispatch(ctx context.Context, msg mailer.Message) {
	if err := service.mail.Send(ctx, msg); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "otp_mail_not_sent",
			slog.String("to", msg.To),
			slog.Any("error", err),
		)
	}
}

// # Input helpers

// normalizeEmail trims surrounding whitespace. Case is preserved and compared exactly.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// validatePassword applies the password policy to a required password field.
func validatePassword(v *validate.Validator, field, password string) {
	v.Required(field, password).
		MinLen(field, password, MinPasswordLength).
		Custom(field, len(password) > MaxPasswordLength, fmt.Sprintf("Maximum %d bytes", MaxPasswordLength))
}

// hashOptional hashes password when one was supplied.
func hashOptional(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := sec.HashPassword(password)
	if errors.Is(err, sec.ErrPasswordTooLong) {
		return "", validate.RequiredError(FieldPassword, fmt.Sprintf("Maximum %d bytes", MaxPasswordLength))
	}
	if err != nil {
		return "", fmt.Errorf("auth_service_hash_failed: %w", err)
	}
	return hash, nil
}
