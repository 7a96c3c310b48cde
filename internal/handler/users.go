// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/libris/libris/internal/access"
	"github.com/libris/libris/internal/middleware"
	"github.com/libris/libris/internal/model"
	"github.com/libris/libris/internal/render"
	"github.com/libris/libris/internal/service"
)

// UsersHandler handles the admin user-management pages and actions.
type UsersHandler struct {
	identity *service.IdentityService
	renderer *render.Renderer
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(db *sql.DB, renderer *render.Renderer) *UsersHandler {
	return &UsersHandler{
		identity: service.NewIdentityService(db),
		renderer: renderer,
	}
}

// adminView is the data for the admin page.
type adminView struct {
	Users []model.User
	Roles []string
}

// Admin renders the admin page with the list of all users.
func (h *UsersHandler) Admin(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "listing users", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "admin/users", render.TemplateData{
		Title: "Admin",
		User:  middleware.GetUser(r),
		Data:  adminView{Users: users, Roles: model.ValidRoles},
	})
	if err != nil {
		logAndInternalError(w, "rendering admin page", "error", err)
	}
}

// CreateUser handles POST /admin/users.
func (h *UsersHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, RouteAdmin) {
		return
	}

	email := r.FormValue("email")
	user, err := h.identity.CreateUser(r.Context(), actor,
		email, r.FormValue("name"), r.FormValue("role"), r.FormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, access.ErrForbidden):
			flashError(w, r, h.renderer, landingPath(actor.Role), "You do not have permission to add users.")
		case errors.Is(err, service.ErrDuplicateEmail):
			flashError(w, r, h.renderer, RouteAdmin, fmt.Sprintf("User with email %s already exists.", email))
		case service.IsValidation(err):
			flashError(w, r, h.renderer, RouteAdmin, "Invalid input. Please check your data.")
		default:
			logAndInternalError(w, "creating user", "error", err)
		}
		return
	}

	flashSuccess(w, r, h.renderer, RouteAdmin, fmt.Sprintf("User %s added successfully.", user.Email))
}

// ModifyRole handles POST /admin/users/role.
func (h *UsersHandler) ModifyRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, RouteAdmin) {
		return
	}

	email := r.FormValue("email")
	newRole := r.FormValue("role")

	user, err := h.identity.ModifyRole(r.Context(), actor, email, newRole)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrForbidden):
			flashError(w, r, h.renderer, landingPath(actor.Role), "You do not have permission to modify roles.")
		case errors.Is(err, service.ErrUserNotFound):
			flashError(w, r, h.renderer, RouteAdmin, fmt.Sprintf("User with email %s not found.", email))
		case service.IsValidation(err):
			flashError(w, r, h.renderer, RouteAdmin, fmt.Sprintf("Unknown role %s.", newRole))
		default:
			logAndInternalError(w, "modifying role", "error", err)
		}
		return
	}

	flashSuccess(w, r, h.renderer, RouteAdmin, fmt.Sprintf("Role for %s modified to %s.", user.Email, user.Role))
}

// DeleteUser handles POST /admin/users/delete.
func (h *UsersHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, RouteAdmin) {
		return
	}

	email := r.FormValue("email")

	user, err := h.identity.DeleteUser(r.Context(), actor, email)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrForbidden):
			flashError(w, r, h.renderer, landingPath(actor.Role), "You do not have permission to delete users.")
		case errors.Is(err, service.ErrUserNotFound):
			flashError(w, r, h.renderer, RouteAdmin, fmt.Sprintf("User with email %s not found.", email))
		case errors.Is(err, service.ErrSelfDelete):
			flashError(w, r, h.renderer, RouteAdmin, "You cannot delete your own account.")
		case errors.Is(err, service.ErrLastAdmin):
			flashError(w, r, h.renderer, RouteAdmin, "Cannot delete the last admin account.")
		case errors.Is(err, service.ErrOutstandingLoans):
			flashError(w, r, h.renderer, RouteAdmin, fmt.Sprintf("User %s still has checked-out books.", email))
		default:
			logAndInternalError(w, "deleting user", "error", err)
		}
		return
	}

	flashSuccess(w, r, h.renderer, RouteAdmin, fmt.Sprintf("User %s deleted successfully.", user.Email))
}
