// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Bizaek.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Taxonomy: Identity failures (duplicate, bad credential, blocked, OTP) have their
    own codes so clients can branch on them without parsing messages.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer as a client-facing failure is an [AppError].
Anything else is treated as an upstream failure and rendered as a generic 500.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUpstream        = "UPSTREAM_FAILURE"
	CodeDuplicate       = "DUPLICATE_IDENTITY"
	CodeUnknownIdentity = "UNKNOWN_IDENTITY"
	CodeInvalidCred     = "INVALID_CREDENTIAL"
	CodeAccountBlocked  = "ACCOUNT_BLOCKED"
	CodeAccountInactive = "ACCOUNT_INACTIVE"
	CodeInvalidOTP      = "INVALID_OR_EXPIRED_OTP"
)

// AppError is the canonical error type for the Bizaek API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "DUPLICATE_IDENTITY").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches two AppErrors by code, so sentinel values declared with the
// constructors below work with [errors.Is].
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("User") // Returns "User not found"
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg)
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, msg)
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	err := newError(CodeValidation, http.StatusBadRequest, msg)
	err.Details = details
	return err
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return newError(CodeRateLimited, http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
}

// # Identity Errors

// DuplicateIdentity is returned when an email is already registered.
// The public contract answers 403 rather than 409.
func DuplicateIdentity(msg string) *AppError {
	return newError(CodeDuplicate, http.StatusForbidden, msg)
}

// UnknownIdentity is returned by login when no account has the email.
func UnknownIdentity(msg string) *AppError {
	return newError(CodeUnknownIdentity, http.StatusBadRequest, msg)
}

// InvalidCredential is returned when a password does not match.
func InvalidCredential(msg string) *AppError {
	return newError(CodeInvalidCred, http.StatusBadRequest, msg)
}

// AccountBlocked is returned for BLOCKED accounts.
func AccountBlocked(msg string) *AppError {
	return newError(CodeAccountBlocked, http.StatusBadRequest, msg)
}

// AccountInactive is returned for INACTIVE accounts.
func AccountInactive(msg string) *AppError {
	return newError(CodeAccountInactive, http.StatusBadRequest, msg)
}

// InvalidOTP covers wrong, expired and never-issued passcodes alike.
func InvalidOTP(msg string) *AppError {
	return newError(CodeInvalidOTP, http.StatusBadRequest, msg)
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	err := newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	err.Cause = cause
	return err
}

// Upstream creates a 502 [AppError] for failures of an external provider
// (OAuth identity provider, mail relay).
func Upstream(cause error) *AppError {
	err := newError(CodeUpstream, http.StatusBadGateway, "An upstream service is unavailable")
	err.Cause = cause
	return err
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
