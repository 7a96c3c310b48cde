// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/libris/libris/internal/middleware"
	"github.com/libris/libris/internal/render"
	"github.com/libris/libris/internal/service"
)

// AuthHandler handles login, logout, and self-service registration.
type AuthHandler struct {
	identity        *service.IdentityService
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		identity:        service.NewIdentityService(db),
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
	}
}

// LoginForm renders the login page. Already-authenticated users are sent
// straight to their landing page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		http.Redirect(w, r, landingPath(user.Role), http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/login", render.TemplateData{Title: "Login"}); err != nil {
		logAndInternalError(w, "rendering login page", "error", err)
	}
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteLogin) {
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, RouteLogin, "Email and password are required.")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			flashError(w, r, h.renderer, RouteLogin,
				fmt.Sprintf("Account temporarily locked. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	user, err := h.identity.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			if h.loginProtection != nil {
				if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
					flashError(w, r, h.renderer, RouteLogin,
						fmt.Sprintf("Too many failed attempts. Account locked for %s.", formatDuration(lockDuration)))
					return
				}
			}
			flashError(w, r, h.renderer, RouteLogin, "Incorrect email or password. Please try again.")
			return
		}
		slog.Error("login failed", "error", err)
		flashError(w, r, h.renderer, RouteLogin, "Something went wrong. Please try again.")
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)

	flashSuccess(w, r, h.renderer, landingPath(user.Role), "Logged in successfully!")
}

// SignUpForm renders the registration page.
func (h *AuthHandler) SignUpForm(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		http.Redirect(w, r, landingPath(user.Role), http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/sign_up", render.TemplateData{Title: "Sign Up"}); err != nil {
		logAndInternalError(w, "rendering sign-up page", "error", err)
	}
}

// SignUp handles the registration form submission. New accounts are always
// created as students; the session is established immediately on success.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteSignUp) {
		return
	}

	email := r.FormValue("email")
	name := r.FormValue("firstName")
	password := r.FormValue("password1")
	confirm := r.FormValue("password2")

	user, err := h.identity.SignUp(r.Context(), email, name, password, confirm)
	if err != nil {
		flashError(w, r, h.renderer, RouteSignUp, signUpMessage(err))
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user signed up", "user_id", user.ID, "email", user.Email)

	flashSuccess(w, r, h.renderer, landingPath(user.Role), "Account created!")
}

// signUpMessage maps a registration failure to its user-facing message.
func signUpMessage(err error) string {
	var ve *service.ValidationError
	switch {
	case errors.Is(err, service.ErrDuplicateEmail):
		return "Email already exists."
	case errors.As(err, &ve) && ve.Field == "confirm":
		return "Passwords don't match."
	case errors.As(err, &ve):
		return "Invalid input. Please check your data."
	default:
		return "Something went wrong. Please try again."
	}
}

// Logout destroys the session and returns to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)

	flashAndRedirect(w, r, h.renderer, RouteLogin, "You have been logged out.", "info")
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return fmt.Sprintf("%d hours %d minutes", int(d.Hours()), int(d.Minutes())%60)
}
