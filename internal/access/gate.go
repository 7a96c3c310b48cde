// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package access maps user roles to the operations they may perform. It is the
// single source of truth for authorization: every mutating service call and
// every role-gated view consults Authorize before doing anything else.
package access

import (
	"errors"
	"fmt"

	"github.com/libris/libris/internal/model"
)

// Intent names a requested operation or view.
type Intent string

// All intents the gate knows about.
const (
	IntentViewStudentPage   Intent = "view_student_page"
	IntentViewFacultyPage   Intent = "view_faculty_page"
	IntentViewLibrarianPage Intent = "view_librarian_page"
	IntentViewAdminPage     Intent = "view_admin_page"
	IntentCheckoutBook      Intent = "checkout_book"
	IntentReturnBook        Intent = "return_book"
	IntentAddBook           Intent = "add_book"
	IntentRemoveBook        Intent = "remove_book"
	IntentModifyRole        Intent = "modify_role"
	IntentAddUser           Intent = "add_user"
	IntentDeleteUser        Intent = "delete_user"
)

// ErrForbidden is returned when a role lacks permission for an intent.
var ErrForbidden = errors.New("forbidden")

// permissions is the static role-to-intent table. Roles are not hierarchical:
// an admin manages accounts but does not borrow books.
var permissions = map[string]map[Intent]bool{
	model.RoleStudent: {
		IntentViewStudentPage: true,
		IntentCheckoutBook:    true,
		IntentReturnBook:      true,
	},
	model.RoleFaculty: {
		IntentViewFacultyPage: true,
		IntentCheckoutBook:    true,
		IntentReturnBook:      true,
	},
	model.RoleLibrarian: {
		IntentViewLibrarianPage: true,
		IntentAddBook:           true,
		IntentRemoveBook:        true,
	},
	model.RoleAdmin: {
		IntentViewAdminPage: true,
		IntentModifyRole:    true,
		IntentAddUser:       true,
		IntentDeleteUser:    true,
	},
}

// Authorize returns nil if role may perform intent, ErrForbidden otherwise.
// Unknown roles are denied everything.
func Authorize(role string, intent Intent) error {
	if permissions[role][intent] {
		return nil
	}
	return fmt.Errorf("role %q may not %s: %w", role, intent, ErrForbidden)
}

// LandingIntent returns the view intent for a role's home page.
func LandingIntent(role string) (Intent, bool) {
	switch role {
	case model.RoleStudent:
		return IntentViewStudentPage, true
	case model.RoleFaculty:
		return IntentViewFacultyPage, true
	case model.RoleLibrarian:
		return IntentViewLibrarianPage, true
	case model.RoleAdmin:
		return IntentViewAdminPage, true
	default:
		return "", false
	}
}
