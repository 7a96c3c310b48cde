// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/libris/libris/internal/model"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by Queries.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries provides typed access to the users and books tables.
type Queries struct {
	db DBTX
}

// New creates a Queries instance backed by db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const userColumns = `id, email, password_hash, role, name, created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, role, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		p.Email, p.PasswordHash, p.Role, p.Name, p.CreatedAt, p.UpdatedAt)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by its unique email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// ListUsers returns all users ordered by creation.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountUsersByRole returns the number of users with the given role.
func (q *Queries) CountUsersByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n)
	return n, err
}

// UpdateUserRoleParams holds the fields for UpdateUserRole.
type UpdateUserRoleParams struct {
	Role      string
	UpdatedAt time.Time
	ID        int64
}

// UpdateUserRole overwrites a user's role.
func (q *Queries) UpdateUserRole(ctx context.Context, p UpdateUserRoleParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		p.Role, p.UpdatedAt, p.ID)
	return err
}

// UpdateUserPasswordParams holds the fields for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, p UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		p.PasswordHash, p.UpdatedAt, p.ID)
	return err
}

// UpdateUserLastLoginParams holds the fields for UpdateUserLastLogin.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

// UpdateUserLastLogin records the time of the user's latest login.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, p UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`,
		p.LastLoginAt, p.ID)
	return err
}

// DeleteUser removes a user row.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

const bookColumns = `id, title, author, is_checked_out, due_date, borrower_id, created_at`

func scanBook(row interface{ Scan(...any) error }) (model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.IsCheckedOut,
		&b.DueDate, &b.BorrowerID, &b.CreatedAt)
	return b, err
}

func (q *Queries) listBooks(ctx context.Context, query string, args ...any) ([]model.Book, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// CreateBookParams holds the fields for CreateBook.
type CreateBookParams struct {
	Title     string
	Author    string
	CreatedAt time.Time
}

// CreateBook inserts a new available book and returns the stored row.
func (q *Queries) CreateBook(ctx context.Context, p CreateBookParams) (model.Book, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO books (title, author, created_at)
		VALUES (?, ?, ?)
		RETURNING `+bookColumns,
		p.Title, p.Author, p.CreatedAt)
	return scanBook(row)
}

// GetBookByID fetches a book by primary key.
func (q *Queries) GetBookByID(ctx context.Context, id int64) (model.Book, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// ListBooks returns the full catalog ordered by title.
func (q *Queries) ListBooks(ctx context.Context) ([]model.Book, error) {
	return q.listBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title, id`)
}

// ListAvailableBooks returns all books not currently checked out.
func (q *Queries) ListAvailableBooks(ctx context.Context) ([]model.Book, error) {
	return q.listBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE is_checked_out = 0 ORDER BY title, id`)
}

// ListBooksByBorrower returns the books currently checked out to a user.
func (q *Queries) ListBooksByBorrower(ctx context.Context, borrowerID int64) ([]model.Book, error) {
	return q.listBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE is_checked_out = 1 AND borrower_id = ? ORDER BY due_date, id`,
		borrowerID)
}

// CountBooksByBorrower returns the number of books checked out to a user.
func (q *Queries) CountBooksByBorrower(ctx context.Context, borrowerID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books WHERE is_checked_out = 1 AND borrower_id = ?`,
		borrowerID).Scan(&n)
	return n, err
}

// DeleteBook removes a book row. Returns the number of rows deleted.
func (q *Queries) DeleteBook(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CheckoutBookParams holds the fields for CheckoutBook.
type CheckoutBookParams struct {
	DueDate    time.Time
	BorrowerID int64
	ID         int64
}

// CheckoutBook marks a book checked out with a due date and borrower in a
// single compare-and-set update. Returns the number of rows updated: 0 means
// the book was missing or already checked out, so concurrent checkouts of the
// same book cannot both succeed.
func (q *Queries) CheckoutBook(ctx context.Context, p CheckoutBookParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE books
		SET is_checked_out = 1, due_date = ?, borrower_id = ?
		WHERE id = ? AND is_checked_out = 0`,
		p.DueDate, p.BorrowerID, p.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReturnBookParams holds the fields for ReturnBook.
type ReturnBookParams struct {
	ID         int64
	BorrowerID int64
}

// ReturnBook clears the checkout triple in a single compare-and-set update
// guarded by the borrower. Returns the number of rows updated: 0 means the
// book was not checked out by that borrower.
func (q *Queries) ReturnBook(ctx context.Context, p ReturnBookParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE books
		SET is_checked_out = 0, due_date = NULL, borrower_id = NULL
		WHERE id = ? AND is_checked_out = 1 AND borrower_id = ?`,
		p.ID, p.BorrowerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
