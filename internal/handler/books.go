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
	"github.com/libris/libris/internal/render"
	"github.com/libris/libris/internal/service"
)

// BooksHandler handles catalog management and the checkout lifecycle.
type BooksHandler struct {
	circulation *service.CirculationService
	renderer    *render.Renderer
}

// NewBooksHandler creates a new BooksHandler.
func NewBooksHandler(db *sql.DB, renderer *render.Renderer) *BooksHandler {
	return &BooksHandler{
		circulation: service.NewCirculationService(db),
		renderer:    renderer,
	}
}

// AddBook handles POST /books. Librarian only.
func (h *BooksHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, RouteLibrarian) {
		return
	}

	book, err := h.circulation.AddBook(r.Context(), actor, r.FormValue("title"), r.FormValue("author"))
	if err != nil {
		switch {
		case errors.Is(err, access.ErrForbidden):
			flashError(w, r, h.renderer, landingPath(actor.Role), "You do not have permission to add books.")
		case service.IsValidation(err):
			flashError(w, r, h.renderer, RouteLibrarian, "Title and author are required.")
		default:
			logAndInternalError(w, "adding book", "error", err)
		}
		return
	}

	flashSuccess(w, r, h.renderer, RouteLibrarian, fmt.Sprintf("Book %q added successfully!", book.Title))
}

// RemoveBook handles POST /books/{id}/delete. Librarian only; a checked-out
// book must be returned before it can be removed.
func (h *BooksHandler) RemoveBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	bookID, err := parseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, RouteLibrarian, "Book not found.")
		return
	}

	book, err := h.circulation.RemoveBook(r.Context(), actor, bookID)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrForbidden):
			flashError(w, r, h.renderer, landingPath(actor.Role), "You do not have permission to remove books.")
		case errors.Is(err, service.ErrBookNotFound):
			flashError(w, r, h.renderer, RouteLibrarian, "Book not found.")
		case errors.Is(err, service.ErrAlreadyCheckedOut):
			flashError(w, r, h.renderer, RouteLibrarian, "Book is checked out and cannot be removed.")
		default:
			logAndInternalError(w, "removing book", "error", err, "book_id", bookID)
		}
		return
	}

	flashSuccess(w, r, h.renderer, RouteLibrarian, fmt.Sprintf("Book %q removed successfully!", book.Title))
}

// Checkout handles POST /books/{id}/checkout for students and faculty.
func (h *BooksHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	back := landingPath(actor.Role)

	bookID, err := parseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, back, "Book not available for checkout.")
		return
	}

	book, err := h.circulation.Checkout(r.Context(), actor, bookID)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrForbidden):
			flashError(w, r, h.renderer, back, "You do not have permission to check out books.")
		case errors.Is(err, service.ErrBookNotFound),
			errors.Is(err, service.ErrAlreadyCheckedOut):
			flashError(w, r, h.renderer, back, "Book not available for checkout.")
		default:
			logAndInternalError(w, "checking out book", "error", err, "book_id", bookID)
		}
		return
	}

	flashSuccess(w, r, h.renderer, back, fmt.Sprintf("You have checked out %s!", book.Title))
}

// Return handles POST /books/{id}/return.
func (h *BooksHandler) Return(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	back := landingPath(actor.Role)

	bookID, err := parseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, back, "Invalid book or not checked out by you.")
		return
	}

	book, err := h.circulation.Return(r.Context(), actor, bookID)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrForbidden):
			flashError(w, r, h.renderer, back, "You do not have permission to return books.")
		case errors.Is(err, service.ErrBookNotFound),
			errors.Is(err, service.ErrNotCheckedOut),
			errors.Is(err, service.ErrNotBorrower):
			flashError(w, r, h.renderer, back, "Invalid book or not checked out by you.")
		default:
			logAndInternalError(w, "returning book", "error", err, "book_id", bookID)
		}
		return
	}

	flashSuccess(w, r, h.renderer, back, fmt.Sprintf("You have returned %s.", book.Title))
}
