// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/libris/libris/internal/access"
	"github.com/libris/libris/internal/model"
	"github.com/libris/libris/internal/store"
)

// CirculationService governs the checkout lifecycle of books: which actor may
// trigger which transition, with what due date, and what fine accrues.
type CirculationService struct {
	queries *store.Queries
	now     func() time.Time
}

// NewCirculationService creates a CirculationService.
func NewCirculationService(db *sql.DB) *CirculationService {
	return &CirculationService{queries: store.New(db), now: time.Now}
}

// Checkout transitions an available book to checked out by the actor. The due
// date follows the actor's role: 14 days for students, 140 days for faculty.
func (s *CirculationService) Checkout(ctx context.Context, actor model.Actor, bookID int64) (model.Book, error) {
	if err := access.Authorize(actor.Role, access.IntentCheckoutBook); err != nil {
		return model.Book{}, err
	}

	period, ok := model.LoanPeriod(actor.Role)
	if !ok {
		// Unreachable while the gate and loan table agree, but the due date
		// must never come from an unknown role.
		return model.Book{}, access.ErrForbidden
	}

	if _, err := s.queries.GetBookByID(ctx, bookID); err != nil {
		return model.Book{}, storeErr(err, ErrBookNotFound)
	}

	due := s.now().Add(period)
	n, err := s.queries.CheckoutBook(ctx, store.CheckoutBookParams{
		DueDate:    due,
		BorrowerID: actor.ID,
		ID:         bookID,
	})
	if err != nil {
		return model.Book{}, storeErr(err, ErrBookNotFound)
	}
	if n == 0 {
		// Lost the race or the book was already out; either way it is not
		// available to this actor.
		return model.Book{}, ErrAlreadyCheckedOut
	}

	slog.Info("book checked out", "book_id", bookID, "borrower_id", actor.ID, "due", due)

	book, err := s.queries.GetBookByID(ctx, bookID)
	if err != nil {
		return model.Book{}, storeErr(err, ErrBookNotFound)
	}
	return book, nil
}

// Return transitions a checked-out book back to available. Only the borrower
// may return it; returning an available book fails with ErrNotCheckedOut.
func (s *CirculationService) Return(ctx context.Context, actor model.Actor, bookID int64) (model.Book, error) {
	if err := access.Authorize(actor.Role, access.IntentReturnBook); err != nil {
		return model.Book{}, err
	}

	n, err := s.queries.ReturnBook(ctx, store.ReturnBookParams{ID: bookID, BorrowerID: actor.ID})
	if err != nil {
		return model.Book{}, storeErr(err, ErrBookNotFound)
	}
	if n == 0 {
		// The CAS missed: read the current state to say why.
		book, err := s.queries.GetBookByID(ctx, bookID)
		if err != nil {
			return model.Book{}, storeErr(err, ErrBookNotFound)
		}
		if !book.IsCheckedOut {
			return model.Book{}, ErrNotCheckedOut
		}
		return model.Book{}, ErrNotBorrower
	}

	slog.Info("book returned", "book_id", bookID, "borrower_id", actor.ID)

	book, err := s.queries.GetBookByID(ctx, bookID)
	if err != nil {
		return model.Book{}, storeErr(err, ErrBookNotFound)
	}
	return book, nil
}

// AddBook creates a new available catalog entry. Librarian only.
func (s *CirculationService) AddBook(ctx context.Context, actor model.Actor, title, author string) (model.Book, error) {
	if err := access.Authorize(actor.Role, access.IntentAddBook); err != nil {
		return model.Book{}, err
	}

	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return model.Book{}, validationErr("title", "is required")
	}
	if author == "" {
		return model.Book{}, validationErr("author", "is required")
	}

	book, err := s.queries.CreateBook(ctx, store.CreateBookParams{
		Title:     title,
		Author:    author,
		CreatedAt: s.now(),
	})
	if err != nil {
		return model.Book{}, storeErr(err, ErrBookNotFound)
	}

	slog.Info("book added", "book_id", book.ID, "title", book.Title, "added_by", actor.ID)
	return book, nil
}

// RemoveBook deletes a catalog entry. Librarian only. A checked-out book may
// not be removed; it has to be returned first so no loan record is orphaned.
func (s *CirculationService) RemoveBook(ctx context.Context, actor model.Actor, bookID int64) (model.Book, error) {
	if err := access.Authorize(actor.Role, access.IntentRemoveBook); err != nil {
		return model.Book{}, err
	}

	book, err := s.queries.GetBookByID(ctx, bookID)
	if err != nil {
		return model.Book{}, storeErr(err, ErrBookNotFound)
	}
	if book.IsCheckedOut {
		return model.Book{}, ErrAlreadyCheckedOut
	}

	n, err := s.queries.DeleteBook(ctx, bookID)
	if err != nil {
		return model.Book{}, storeErr(err, ErrBookNotFound)
	}
	if n == 0 {
		return model.Book{}, ErrBookNotFound
	}

	slog.Info("book removed", "book_id", bookID, "title", book.Title, "removed_by", actor.ID)
	return book, nil
}

// Fine returns the fine accrued on a book as of now. Pure read-side query.
func (s *CirculationService) Fine(book *model.Book) int64 {
	return book.Fine(s.now())
}

// Shelf holds the books shown on a borrower's landing page.
type Shelf struct {
	Available  []model.Book
	CheckedOut []model.Book
}

// ShelfFor loads the available books plus the actor's own loans.
func (s *CirculationService) ShelfFor(ctx context.Context, actor model.Actor) (Shelf, error) {
	available, err := s.queries.ListAvailableBooks(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Shelf{}, storeErr(err, ErrBookNotFound)
	}
	mine, err := s.queries.ListBooksByBorrower(ctx, actor.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Shelf{}, storeErr(err, ErrBookNotFound)
	}
	return Shelf{Available: available, CheckedOut: mine}, nil
}

// Catalog returns the full catalog for the librarian view.
func (s *CirculationService) Catalog(ctx context.Context) ([]model.Book, error) {
	books, err := s.queries.ListBooks(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeErr(err, ErrBookNotFound)
	}
	return books, nil
}
