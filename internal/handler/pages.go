// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/libris/libris/internal/middleware"
	"github.com/libris/libris/internal/model"
	"github.com/libris/libris/internal/render"
	"github.com/libris/libris/internal/service"
)

// PagesHandler serves the role landing pages.
type PagesHandler struct {
	circulation *service.CirculationService
	renderer    *render.Renderer
}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler(db *sql.DB, renderer *render.Renderer) *PagesHandler {
	return &PagesHandler{
		circulation: service.NewCirculationService(db),
		renderer:    renderer,
	}
}

// loanView decorates a checked-out book with its overdue state and fine.
type loanView struct {
	model.Book
	Overdue bool
	Fine    int64
}

// shelfView is the data for the student and faculty pages.
type shelfView struct {
	Available []model.Book
	Loans     []loanView
}

// Home redirects the authenticated user to their role's landing page.
func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, landingPath(user.Role), http.StatusSeeOther)
}

// Student renders the student page: available books plus the student's own
// loans with due dates and accrued fines.
func (h *PagesHandler) Student(w http.ResponseWriter, r *http.Request) {
	h.borrowerPage(w, r, "pages/student", "Student")
}

// Faculty renders the faculty page. Same shelf as the student page; the loan
// period difference lives in the circulation service.
func (h *PagesHandler) Faculty(w http.ResponseWriter, r *http.Request) {
	h.borrowerPage(w, r, "pages/faculty", "Faculty")
}

func (h *PagesHandler) borrowerPage(w http.ResponseWriter, r *http.Request, template, title string) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}

	shelf, err := h.circulation.ShelfFor(r.Context(), actor)
	if err != nil {
		logAndInternalError(w, "loading shelf", "error", err, "user_id", actor.ID)
		return
	}

	now := time.Now()
	view := shelfView{Available: shelf.Available}
	for _, b := range shelf.CheckedOut {
		view.Loans = append(view.Loans, loanView{
			Book:    b,
			Overdue: b.IsOverdue(now),
			Fine:    b.Fine(now),
		})
	}

	err = h.renderer.Render(w, r, template, render.TemplateData{
		Title: title,
		User:  middleware.GetUser(r),
		Data:  view,
	})
	if err != nil {
		logAndInternalError(w, "rendering page", "error", err, "template", template)
	}
}

// Librarian renders the librarian page with the full catalog.
func (h *PagesHandler) Librarian(w http.ResponseWriter, r *http.Request) {
	books, err := h.circulation.Catalog(r.Context())
	if err != nil {
		logAndInternalError(w, "loading catalog", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "pages/librarian", render.TemplateData{
		Title: "Librarian",
		User:  middleware.GetUser(r),
		Data:  books,
	})
	if err != nil {
		logAndInternalError(w, "rendering librarian page", "error", err)
	}
}
