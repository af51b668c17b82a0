// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// Repositories call [Wrap] on every query error. Services then only ever see
// three shapes: [ErrNotFound], [ErrUniqueViolation] (via errors.Is), or an
// opaque infrastructure error that the HTTP layer renders as 500.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")

	// ErrUniqueViolation marks an insert or update rejected by a unique index.
	ErrUniqueViolation = errors.New("dberr: unique violation")
)

// UniqueViolation carries the name of the violated constraint.
type UniqueViolation struct {
	Constraint string
	cause      error
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("dberr: unique violation on %s", e.Constraint)
}

// Is makes errors.Is(err, ErrUniqueViolation) true.
func (e *UniqueViolation) Is(target error) bool { return target == ErrUniqueViolation }

func (e *UniqueViolation) Unwrap() error { return e.cause }

// Wrap inspects a database error and classifies it.
//
// # Parameters
//   - err: error returned by pgx
//   - action: short label such as "user_create", used as the message prefix
//
// # Returns
//   - nil for nil
//   - [ErrNotFound] for [pgx.ErrNoRows]
//   - [*UniqueViolation] for SQLSTATE 23505
//   - "<action>: <err>" otherwise
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &UniqueViolation{Constraint: pgErr.ConstraintName, cause: err}
	}

	// 3. Everything else is an infrastructure failure
	return fmt.Errorf("%s: %w", action, err)
}

// IsNotFound reports whether err is the not-found classification.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}
