// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteSignUp is the self-service registration route.
	RouteSignUp = "/sign-up"

	// RouteStudent is the student landing page.
	RouteStudent = "/student"
	// RouteFaculty is the faculty landing page.
	RouteFaculty = "/faculty"
	// RouteLibrarian is the librarian landing page.
	RouteLibrarian = "/librarian"
	// RouteAdmin is the admin landing page.
	RouteAdmin = "/admin"

	// RouteBooks is the book collection route.
	RouteBooks = "/books"
	// RouteBookDelete removes a book from the catalog.
	RouteBookDelete = "/books/{id}/delete"
	// RouteBookCheckout checks a book out to the current user.
	RouteBookCheckout = "/books/{id}/checkout"
	// RouteBookReturn returns a checked-out book.
	RouteBookReturn = "/books/{id}/return"

	// RouteAdminUsers creates a user account.
	RouteAdminUsers = "/admin/users"
	// RouteAdminUsersRole changes a user's role.
	RouteAdminUsersRole = "/admin/users/role"
	// RouteAdminUsersDelete deletes a user account.
	RouteAdminUsersDelete = "/admin/users/delete"

	// RouteHealth is the health check route.
	RouteHealth = "/health"
)
