package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/libris/libris/internal/model"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "libris-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func createTestUser(t *testing.T, q *Queries, email, role string) model.User {
	t.Helper()
	now := time.Now()
	u, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Name:         "Test User",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func createTestBook(t *testing.T, q *Queries, title string) model.Book {
	t.Helper()
	b, err := q.CreateBook(context.Background(), CreateBookParams{
		Title:     title,
		Author:    "Anonymous",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	return b
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	user := createTestUser(t, q, "test@example.com", model.RoleStudent)

	if user.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "test@example.com")
	}
	if user.Role != model.RoleStudent {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleStudent)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	createTestUser(t, q, "dup@example.com", model.RoleStudent)

	now := time.Now()
	_, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:        "dup@example.com",
		PasswordHash: "hash",
		Role:         model.RoleFaculty,
		Name:         "Other",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err == nil {
		t.Fatal("expected unique constraint violation for duplicate email")
	}
}

func TestGetUserByEmail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	created := createTestUser(t, q, "find@example.com", model.RoleAdmin)

	found, err := q.GetUserByEmail(ctx, "find@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	_, err := q.GetUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestUpdateUserRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "promote@example.com", model.RoleStudent)

	if err := q.UpdateUserRole(ctx, UpdateUserRoleParams{
		Role:      model.RoleLibrarian,
		UpdatedAt: time.Now(),
		ID:        u.ID,
	}); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}

	got, err := q.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != model.RoleLibrarian {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleLibrarian)
	}
}

func TestDeleteUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "gone@example.com", model.RoleStudent)

	if err := q.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := q.GetUserByID(ctx, u.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestCreateBook(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	b := createTestBook(t, q, "Dune")

	if b.ID == 0 {
		t.Error("book.ID should not be 0")
	}
	if b.IsCheckedOut {
		t.Error("new book should not be checked out")
	}
	if b.DueDate.Valid || b.BorrowerID.Valid {
		t.Error("new book should have no due date or borrower")
	}
}

func TestCheckoutBook(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "reader@example.com", model.RoleStudent)
	b := createTestBook(t, q, "Dune")

	due := time.Now().Add(14 * 24 * time.Hour)
	n, err := q.CheckoutBook(ctx, CheckoutBookParams{DueDate: due, BorrowerID: u.ID, ID: b.ID})
	if err != nil {
		t.Fatalf("CheckoutBook: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows affected = %d, want 1", n)
	}

	got, err := q.GetBookByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBookByID: %v", err)
	}
	if !got.IsCheckedOut || !got.DueDate.Valid || !got.BorrowerID.Valid {
		t.Fatalf("checkout triple not set atomically: %+v", got)
	}
	if got.BorrowerID.Int64 != u.ID {
		t.Errorf("BorrowerID = %d, want %d", got.BorrowerID.Int64, u.ID)
	}
}

func TestCheckoutBook_AlreadyCheckedOut(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	a := createTestUser(t, q, "a@example.com", model.RoleStudent)
	b := createTestUser(t, q, "b@example.com", model.RoleFaculty)
	book := createTestBook(t, q, "Dune")

	due := time.Now().Add(14 * 24 * time.Hour)
	if n, err := q.CheckoutBook(ctx, CheckoutBookParams{DueDate: due, BorrowerID: a.ID, ID: book.ID}); err != nil || n != 1 {
		t.Fatalf("first checkout: n=%d err=%v", n, err)
	}

	n, err := q.CheckoutBook(ctx, CheckoutBookParams{DueDate: due, BorrowerID: b.ID, ID: book.ID})
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if n != 0 {
		t.Fatalf("second checkout rows affected = %d, want 0", n)
	}

	// The first borrower must still hold the book.
	got, err := q.GetBookByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBookByID: %v", err)
	}
	if got.BorrowerID.Int64 != a.ID {
		t.Errorf("BorrowerID = %d, want %d", got.BorrowerID.Int64, a.ID)
	}
}

func TestCheckoutBook_ConcurrentAttempts(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	book := createTestBook(t, q, "Dune")

	const attempts = 8
	borrowers := make([]model.User, attempts)
	for i := range borrowers {
		borrowers[i] = createTestUser(t, q, string(rune('a'+i))+"@example.com", model.RoleStudent)
	}

	var wg sync.WaitGroup
	wins := make(chan int64, attempts)
	due := time.Now().Add(14 * 24 * time.Hour)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(borrowerID int64) {
			defer wg.Done()
			n, err := q.CheckoutBook(ctx, CheckoutBookParams{
				DueDate: due, BorrowerID: borrowerID, ID: book.ID,
			})
			if err != nil {
				t.Errorf("CheckoutBook: %v", err)
				return
			}
			if n == 1 {
				wins <- borrowerID
			}
		}(borrowers[i].ID)
	}
	wg.Wait()
	close(wins)

	var winners []int64
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("got %d successful checkouts, want exactly 1", len(winners))
	}

	got, err := q.GetBookByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBookByID: %v", err)
	}
	if got.BorrowerID.Int64 != winners[0] {
		t.Errorf("BorrowerID = %d, want winning borrower %d", got.BorrowerID.Int64, winners[0])
	}
}

func TestReturnBook(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "reader@example.com", model.RoleStudent)
	other := createTestUser(t, q, "other@example.com", model.RoleStudent)
	book := createTestBook(t, q, "Dune")

	due := time.Now().Add(14 * 24 * time.Hour)
	if n, err := q.CheckoutBook(ctx, CheckoutBookParams{DueDate: due, BorrowerID: u.ID, ID: book.ID}); err != nil || n != 1 {
		t.Fatalf("checkout: n=%d err=%v", n, err)
	}

	// Wrong borrower clears nothing.
	if n, err := q.ReturnBook(ctx, ReturnBookParams{ID: book.ID, BorrowerID: other.ID}); err != nil || n != 0 {
		t.Fatalf("wrong-borrower return: n=%d err=%v, want n=0", n, err)
	}

	// The borrower returns it.
	n, err := q.ReturnBook(ctx, ReturnBookParams{ID: book.ID, BorrowerID: u.ID})
	if err != nil {
		t.Fatalf("ReturnBook: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows affected = %d, want 1", n)
	}

	got, err := q.GetBookByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBookByID: %v", err)
	}
	if got.IsCheckedOut || got.DueDate.Valid || got.BorrowerID.Valid {
		t.Fatalf("checkout triple not cleared atomically: %+v", got)
	}

	// A second return is a no-op.
	if n, err := q.ReturnBook(ctx, ReturnBookParams{ID: book.ID, BorrowerID: u.ID}); err != nil || n != 0 {
		t.Fatalf("double return: n=%d err=%v, want n=0", n, err)
	}
}

func TestListBooksFilters(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "reader@example.com", model.RoleStudent)
	b1 := createTestBook(t, q, "Available One")
	_ = createTestBook(t, q, "Available Two")
	due := time.Now().Add(14 * 24 * time.Hour)
	if n, err := q.CheckoutBook(ctx, CheckoutBookParams{DueDate: due, BorrowerID: u.ID, ID: b1.ID}); err != nil || n != 1 {
		t.Fatalf("checkout: n=%d err=%v", n, err)
	}

	available, err := q.ListAvailableBooks(ctx)
	if err != nil {
		t.Fatalf("ListAvailableBooks: %v", err)
	}
	if len(available) != 1 {
		t.Fatalf("len(available) = %d, want 1", len(available))
	}

	mine, err := q.ListBooksByBorrower(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListBooksByBorrower: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != b1.ID {
		t.Fatalf("ListBooksByBorrower = %+v, want book %d", mine, b1.ID)
	}

	count, err := q.CountBooksByBorrower(ctx, u.ID)
	if err != nil {
		t.Fatalf("CountBooksByBorrower: %v", err)
	}
	if count != 1 {
		t.Errorf("CountBooksByBorrower = %d, want 1", count)
	}
}

func TestDeleteBook(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	b := createTestBook(t, q, "Ephemeral")

	n, err := q.DeleteBook(ctx, b.ID)
	if err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows affected = %d, want 1", n)
	}

	if n, err := q.DeleteBook(ctx, b.ID); err != nil || n != 0 {
		t.Fatalf("second delete: n=%d err=%v, want n=0", n, err)
	}
}

func TestCheckConstraintRejectsPartialTriple(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	// A checked-out row without a borrower violates the schema invariant.
	_, err := db.Exec(`INSERT INTO books (title, author, is_checked_out, created_at)
		VALUES ('Broken', 'Nobody', 1, ?)`, time.Now())
	if err == nil {
		t.Fatal("expected CHECK constraint violation")
	}
}

func TestSeed(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	q := New(db)
	admin, err := q.GetUserByEmail(ctx, DefaultAdminEmail)
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if admin.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", admin.Role, model.RoleAdmin)
	}

	// Seeding twice creates no duplicate.
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	count, err := q.CountUsersByRole(ctx, model.RoleAdmin)
	if err != nil {
		t.Fatalf("CountUsersByRole: %v", err)
	}
	if count != 1 {
		t.Errorf("admin count = %d, want 1", count)
	}
}
