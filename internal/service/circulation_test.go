// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/libris/libris/internal/access"
	"github.com/libris/libris/internal/model"
)

func TestCheckout_Student(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	book := seedBook(t, db, "Dune")

	start := time.Now()
	got, err := svc.Checkout(ctx, model.ActorFor(&student), book.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if !got.IsCheckedOut {
		t.Fatal("book should be checked out")
	}
	if got.BorrowerID.Int64 != student.ID {
		t.Errorf("BorrowerID = %d, want %d", got.BorrowerID.Int64, student.ID)
	}
	wantDue := start.Add(model.LoanPeriodStudent)
	if diff := got.DueDate.Time.Sub(wantDue); diff < -time.Minute || diff > time.Minute {
		t.Errorf("DueDate = %v, want about %v", got.DueDate.Time, wantDue)
	}
}

func TestCheckout_FacultyLoanPeriod(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	faculty := seedUser(t, db, "prof@example.com", model.RoleFaculty, "password1")
	book := seedBook(t, db, "Dune")

	start := time.Now()
	got, err := svc.Checkout(ctx, model.ActorFor(&faculty), book.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	wantDue := start.Add(model.LoanPeriodFaculty)
	if diff := got.DueDate.Time.Sub(wantDue); diff < -time.Minute || diff > time.Minute {
		t.Errorf("DueDate = %v, want about %v", got.DueDate.Time, wantDue)
	}
}

func TestCheckout_AlreadyCheckedOut(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	faculty := seedUser(t, db, "prof@example.com", model.RoleFaculty, "password1")
	book := seedBook(t, db, "Dune")

	if _, err := svc.Checkout(ctx, model.ActorFor(&student), book.ID); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	_, err := svc.Checkout(ctx, model.ActorFor(&faculty), book.ID)
	if !errors.Is(err, ErrAlreadyCheckedOut) {
		t.Fatalf("err = %v, want ErrAlreadyCheckedOut", err)
	}
}

// Two borrowers race for the same copy; exactly one checkout wins.
func TestCheckout_Race(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	faculty := seedUser(t, db, "prof@example.com", model.RoleFaculty, "password1")
	book := seedBook(t, db, "Dune")

	var wg sync.WaitGroup
	var wins, losses atomic.Int32
	for _, u := range []model.User{student, faculty} {
		wg.Add(1)
		go func(actor model.Actor) {
			defer wg.Done()
			_, err := svc.Checkout(ctx, actor, book.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyCheckedOut):
				losses.Add(1)
			default:
				t.Errorf("Checkout: %v", err)
			}
		}(model.ActorFor(&u))
	}
	wg.Wait()

	if wins.Load() != 1 || losses.Load() != 1 {
		t.Fatalf("wins = %d, losses = %d, want exactly one of each", wins.Load(), losses.Load())
	}

	got, err := svc.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if !got[0].IsCheckedOut || !got[0].BorrowerID.Valid {
		t.Fatalf("book state after race: %+v", got[0])
	}
}

func TestCheckout_Forbidden(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	librarian := seedUser(t, db, "lib@example.com", model.RoleLibrarian, "password1")
	admin := seedUser(t, db, "admin@example.com", model.RoleAdmin, "password1")
	book := seedBook(t, db, "Dune")

	for _, actor := range []model.User{librarian, admin} {
		if _, err := svc.Checkout(ctx, model.ActorFor(&actor), book.ID); !errors.Is(err, access.ErrForbidden) {
			t.Errorf("Checkout as %s: err = %v, want ErrForbidden", actor.Role, err)
		}
	}

	// No side effect happened.
	got, err := svc.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if got[0].IsCheckedOut {
		t.Error("forbidden checkout must not mutate the book")
	}
}

func TestCheckout_BookNotFound(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)

	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	_, err := svc.Checkout(context.Background(), model.ActorFor(&student), 999)
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("err = %v, want ErrBookNotFound", err)
	}
}

func TestReturn_Lifecycle(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	other := seedUser(t, db, "other@example.com", model.RoleStudent, "password1")
	book := seedBook(t, db, "Dune")
	actor := model.ActorFor(&student)

	// Returning an available book fails.
	if _, err := svc.Return(ctx, actor, book.ID); !errors.Is(err, ErrNotCheckedOut) {
		t.Fatalf("return of available book: err = %v, want ErrNotCheckedOut", err)
	}

	if _, err := svc.Checkout(ctx, actor, book.ID); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// Someone else cannot return it.
	if _, err := svc.Return(ctx, model.ActorFor(&other), book.ID); !errors.Is(err, ErrNotBorrower) {
		t.Fatalf("return by non-borrower: err = %v, want ErrNotBorrower", err)
	}

	got, err := svc.Return(ctx, actor, book.ID)
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if got.IsCheckedOut || got.DueDate.Valid || got.BorrowerID.Valid {
		t.Fatalf("checkout triple not cleared: %+v", got)
	}

	// A second return reports the book as not checked out.
	if _, err := svc.Return(ctx, actor, book.ID); !errors.Is(err, ErrNotCheckedOut) {
		t.Fatalf("double return: err = %v, want ErrNotCheckedOut", err)
	}
}

func TestAddBook(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	librarian := seedUser(t, db, "lib@example.com", model.RoleLibrarian, "password1")
	book, err := svc.AddBook(ctx, model.ActorFor(&librarian), "  Snow Crash ", "Neal Stephenson")
	if err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	if book.Title != "Snow Crash" {
		t.Errorf("Title = %q, want trimmed %q", book.Title, "Snow Crash")
	}
	if book.IsCheckedOut {
		t.Error("new book must be available")
	}
}

func TestAddBook_Forbidden(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	if _, err := svc.AddBook(ctx, model.ActorFor(&student), "Dune", "Frank Herbert"); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// No book was created.
	books, err := svc.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(books) != 0 {
		t.Errorf("catalog has %d books, want 0", len(books))
	}
}

func TestAddBook_Validation(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	librarian := seedUser(t, db, "lib@example.com", model.RoleLibrarian, "password1")
	actor := model.ActorFor(&librarian)

	if _, err := svc.AddBook(ctx, actor, "", "Author"); !IsValidation(err) {
		t.Errorf("empty title: err = %v, want ValidationError", err)
	}
	if _, err := svc.AddBook(ctx, actor, "Title", "   "); !IsValidation(err) {
		t.Errorf("blank author: err = %v, want ValidationError", err)
	}
}

func TestRemoveBook(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	librarian := seedUser(t, db, "lib@example.com", model.RoleLibrarian, "password1")
	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	book := seedBook(t, db, "Dune")
	actor := model.ActorFor(&librarian)

	// Students cannot remove books.
	if _, err := svc.RemoveBook(ctx, model.ActorFor(&student), book.ID); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("remove as student: err = %v, want ErrForbidden", err)
	}

	// A checked-out book cannot be removed.
	if _, err := svc.Checkout(ctx, model.ActorFor(&student), book.ID); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if _, err := svc.RemoveBook(ctx, actor, book.ID); !errors.Is(err, ErrAlreadyCheckedOut) {
		t.Fatalf("remove checked-out book: err = %v, want ErrAlreadyCheckedOut", err)
	}

	if _, err := svc.Return(ctx, model.ActorFor(&student), book.ID); err != nil {
		t.Fatalf("Return: %v", err)
	}
	if _, err := svc.RemoveBook(ctx, actor, book.ID); err != nil {
		t.Fatalf("RemoveBook: %v", err)
	}

	if _, err := svc.RemoveBook(ctx, actor, book.ID); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("remove missing book: err = %v, want ErrBookNotFound", err)
	}
}

// Student checks out on day 0 (due day 14); at day 20 the fine is 12 and the
// book can still be returned.
func TestFine_OverdueScenario(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	book := seedBook(t, db, "Dune")
	actor := model.ActorFor(&student)

	day0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day0 }

	out, err := svc.Checkout(ctx, actor, book.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if !out.DueDate.Time.Equal(day0.Add(model.LoanPeriodStudent)) {
		t.Fatalf("DueDate = %v, want day 14", out.DueDate.Time)
	}

	day20 := day0.Add(20 * 24 * time.Hour)
	svc.now = func() time.Time { return day20 }

	if !out.IsOverdue(day20) {
		t.Fatal("book should be overdue at day 20")
	}
	if fine := svc.Fine(&out); fine != 12 {
		t.Errorf("Fine = %d, want 12", fine)
	}

	// Overdue does not block return.
	got, err := svc.Return(ctx, actor, book.ID)
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if got.IsCheckedOut || got.DueDate.Valid || got.BorrowerID.Valid {
		t.Fatalf("checkout triple not cleared: %+v", got)
	}
}

func TestShelfFor(t *testing.T) {
	db := testDB(t)
	svc := NewCirculationService(db)
	ctx := context.Background()

	student := seedUser(t, db, "student@example.com", model.RoleStudent, "password1")
	other := seedUser(t, db, "other@example.com", model.RoleStudent, "password1")
	b1 := seedBook(t, db, "Mine")
	_ = seedBook(t, db, "Free")
	b3 := seedBook(t, db, "Theirs")

	if _, err := svc.Checkout(ctx, model.ActorFor(&student), b1.ID); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if _, err := svc.Checkout(ctx, model.ActorFor(&other), b3.ID); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	shelf, err := svc.ShelfFor(ctx, model.ActorFor(&student))
	if err != nil {
		t.Fatalf("ShelfFor: %v", err)
	}
	if len(shelf.Available) != 1 {
		t.Errorf("len(Available) = %d, want 1", len(shelf.Available))
	}
	if len(shelf.CheckedOut) != 1 || shelf.CheckedOut[0].ID != b1.ID {
		t.Errorf("CheckedOut = %+v, want only book %d", shelf.CheckedOut, b1.ID)
	}
}
