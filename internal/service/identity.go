// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/libris/libris/internal/access"
	"github.com/libris/libris/internal/auth"
	"github.com/libris/libris/internal/model"
	"github.com/libris/libris/internal/store"
)

// Sign-up input limits, matching the public registration form.
const (
	MinEmailLen    = 4
	MinNameLen     = 2
	MinPasswordLen = 7
)

// IdentityService implements registration, login, and the admin-only
// account-management operations.
type IdentityService struct {
	queries *store.Queries
	now     func() time.Time
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(db *sql.DB) *IdentityService {
	return &IdentityService{queries: store.New(db), now: time.Now}
}

// SignUp registers a self-service account. The role is always student; the
// first failing validation is reported.
func (s *IdentityService) SignUp(ctx context.Context, email, name, password, confirm string) (model.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
		return model.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, storeErr(err, ErrUserNotFound)
	}
	if len(email) < MinEmailLen {
		return model.User{}, validationErr("email", "must be at least 4 characters")
	}
	if len(name) < MinNameLen {
		return model.User{}, validationErr("name", "must be at least 2 characters")
	}
	if len(password) < MinPasswordLen {
		return model.User{}, validationErr("password", "must be at least 7 characters")
	}
	if password != confirm {
		return model.User{}, validationErr("confirm", "passwords don't match")
	}

	return s.createUser(ctx, email, name, model.RoleStudent, password)
}

// Login verifies credentials and returns the user. Unknown email and hash
// mismatch are indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (model.User, error) {
	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "email", email)
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, storeErr(err, ErrInvalidCredentials)
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err, "user_id", user.ID)
		return model.User{}, ErrInvalidCredentials
	}
	if !valid {
		slog.Debug("invalid password attempt", "email", email)
		return model.User{}, ErrInvalidCredentials
	}

	// Re-hash if the stored hash uses outdated parameters.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    s.now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			}
		}
	}

	if err := s.queries.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: s.now(), Valid: true},
		ID:          user.ID,
	}); err != nil {
		// Don't block login on this error.
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	return user, nil
}

// CreateUser adds an account with an admin-chosen role.
func (s *IdentityService) CreateUser(ctx context.Context, actor model.Actor, email, name, role, password string) (model.User, error) {
	if err := access.Authorize(actor.Role, access.IntentAddUser); err != nil {
		return model.User{}, err
	}

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if !model.ValidRole(role) {
		return model.User{}, validationErr("role", "unknown role")
	}
	if len(email) < MinEmailLen {
		return model.User{}, validationErr("email", "must be at least 4 characters")
	}
	if len(name) < MinNameLen {
		return model.User{}, validationErr("name", "must be at least 2 characters")
	}
	if len(password) < MinPasswordLen {
		return model.User{}, validationErr("password", "must be at least 7 characters")
	}
	if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
		return model.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, storeErr(err, ErrUserNotFound)
	}

	user, err := s.createUser(ctx, email, name, role, password)
	if err != nil {
		return model.User{}, err
	}
	slog.Info("user created", "user_id", user.ID, "email", user.Email, "role", user.Role, "created_by", actor.ID)
	return user, nil
}

// ModifyRole overwrites a user's role, addressed by email. Unknown roles are
// rejected rather than stored.
func (s *IdentityService) ModifyRole(ctx context.Context, actor model.Actor, email, newRole string) (model.User, error) {
	if err := access.Authorize(actor.Role, access.IntentModifyRole); err != nil {
		return model.User{}, err
	}

	if !model.ValidRole(newRole) {
		return model.User{}, validationErr("role", "unknown role")
	}

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return model.User{}, storeErr(err, ErrUserNotFound)
	}

	if err := s.queries.UpdateUserRole(ctx, store.UpdateUserRoleParams{
		Role:      newRole,
		UpdatedAt: s.now(),
		ID:        user.ID,
	}); err != nil {
		return model.User{}, storeErr(err, ErrUserNotFound)
	}

	slog.Info("user role modified", "user_id", user.ID, "email", user.Email,
		"old_role", user.Role, "new_role", newRole, "modified_by", actor.ID)

	user.Role = newRole
	return user, nil
}

// DeleteUser removes an account, addressed by email. A user with outstanding
// loans cannot be deleted, so a book never points at a vanished borrower.
// Self-deletion and deleting the last admin are also refused.
func (s *IdentityService) DeleteUser(ctx context.Context, actor model.Actor, email string) (model.User, error) {
	if err := access.Authorize(actor.Role, access.IntentDeleteUser); err != nil {
		return model.User{}, err
	}

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return model.User{}, storeErr(err, ErrUserNotFound)
	}

	if user.ID == actor.ID {
		return model.User{}, ErrSelfDelete
	}

	if user.Role == model.RoleAdmin {
		adminCount, err := s.queries.CountUsersByRole(ctx, model.RoleAdmin)
		if err != nil {
			return model.User{}, storeErr(err, ErrUserNotFound)
		}
		if adminCount <= 1 {
			return model.User{}, ErrLastAdmin
		}
	}

	loans, err := s.queries.CountBooksByBorrower(ctx, user.ID)
	if err != nil {
		return model.User{}, storeErr(err, ErrUserNotFound)
	}
	if loans > 0 {
		return model.User{}, ErrOutstandingLoans
	}

	if err := s.queries.DeleteUser(ctx, user.ID); err != nil {
		return model.User{}, storeErr(err, ErrUserNotFound)
	}

	slog.Info("user deleted", "user_id", user.ID, "email", user.Email, "deleted_by", actor.ID)
	return user, nil
}

// ListUsers returns all accounts for the admin view.
func (s *IdentityService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.queries.ListUsers(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeErr(err, ErrUserNotFound)
	}
	return users, nil
}

func (s *IdentityService) createUser(ctx context.Context, email, name, role, password string) (model.User, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	user, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// The unique index may still fire if two sign-ups race past the
		// existence check.
		if strings.Contains(err.Error(), "UNIQUE") {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, storeErr(err, ErrUserNotFound)
	}
	return user, nil
}
