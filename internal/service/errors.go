// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the application's policy core: the circulation
// engine governing book checkout state and the identity operations over user
// accounts. Every operation takes an explicit actor and consults the access
// gate before any side effect.
package service

import (
	"database/sql"
	"errors"
	"fmt"
)

// Domain error kinds. All are recoverable at the request boundary; handlers
// map them to a flash message and redirect.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrBookNotFound       = errors.New("book not found")
	ErrAlreadyCheckedOut  = errors.New("book is already checked out")
	ErrNotCheckedOut      = errors.New("book is not checked out")
	ErrNotBorrower        = errors.New("book is checked out by someone else")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrOutstandingLoans   = errors.New("user still has checked-out books")
	ErrLastAdmin          = errors.New("cannot delete the last admin")
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// ValidationError reports a rejected input field. The first failing check
// wins; callers see a single validation failure per request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// storeErr classifies a store failure: row absence passes through as notFound,
// anything else is a transient infrastructure failure the caller may retry.
func storeErr(err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
