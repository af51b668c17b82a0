// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// Services validate their inputs here before touching a store. Handlers only
// decode JSON and report [ErrInvalidJSON].
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
	"github.com/taibuivan/bizaek/pkg/uuid"
)

// ErrInvalidJSON is returned when the request body cannot be decoded.
var ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

// Validator collects field-level validation errors via a fluent, chainable API.
//
// A Validator is not safe for concurrent use; build one per operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(field, strings.TrimSpace(value) == "", "This field is required")
}

// MaxLen fails if the value has more than max characters.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	return v.Custom(field, utf8.RuneCountInString(value) > max, fmt.Sprintf("Maximum %d characters", max))
}

// MinLen fails if the value has fewer than min characters.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	return v.Custom(field, utf8.RuneCountInString(value) < min, fmt.Sprintf("Minimum %d characters", min))
}

// Email fails unless the value is a bare address. Display-name forms such as
// "A <a@x.com>" and surrounding whitespace are rejected.
func (v *Validator) Email(field, value string) *Validator {
	addr, err := mail.ParseAddress(value)
	return v.Custom(field, err != nil || addr.Address != value, "Must be a valid email address")
}

// Digits fails unless a non-empty value is exactly n ASCII digits. Empty
// values are left to [Validator.Required].
func (v *Validator) Digits(field, value string, n int) *Validator {
	if value == "" {
		return v
	}
	valid := len(value) == n
	for i := 0; valid && i < len(value); i++ {
		valid = value[i] >= '0' && value[i] <= '9'
	}
	return v.Custom(field, !valid, fmt.Sprintf("Must be exactly %d digits", n))
}

// UUID fails if the value is not a canonical UUID string.
func (v *Validator) UUID(field, value string) *Validator {
	return v.Custom(field, !uuid.Valid(value), "Must be a valid UUID")
}

// OneOf fails if the value is not in the allowed set.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, candidate := range allowed {
		if value == candidate {
			return v
		}
	}
	return v.Custom(field, true, "Must be one of: "+strings.Join(allowed, ", "))
}

// Custom records message against field when failed is true.
//
//	v.Custom("password", len(password) > 72, "Maximum 72 bytes")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
	}
	return v
}

// Err returns a VALIDATION_ERROR carrying every failed rule, or nil.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// RequiredError is a shortcut to create a single-field validation error.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{
		Field:   field,
		Message: message,
	})
}
