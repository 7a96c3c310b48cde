// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application, including User, Book, and the Role enumeration.
package model

import (
	"database/sql"
	"time"
)

// User roles. The set is closed: every role written to the database must be
// one of these values.
const (
	RoleStudent   = "student"
	RoleFaculty   = "faculty"
	RoleLibrarian = "librarian"
	RoleAdmin     = "admin"
)

// ValidRoles contains all valid user roles.
var ValidRoles = []string{RoleStudent, RoleFaculty, RoleLibrarian, RoleAdmin}

// ValidRole reports whether role is a member of the closed role set.
func ValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a library user.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Role         string       `json:"role"`
	Name         string       `json:"name"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanBorrow returns true if the user's role permits borrowing books.
func (u *User) CanBorrow() bool {
	return u.Role == RoleStudent || u.Role == RoleFaculty
}

// Actor identifies the authenticated user performing an operation. Services
// take an explicit Actor rather than reading any ambient request state.
type Actor struct {
	ID   int64
	Role string
}

// ActorFor builds an Actor from a user record.
func ActorFor(u *User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
