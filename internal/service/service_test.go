package service

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/libris/libris/internal/auth"
	"github.com/libris/libris/internal/model"
	"github.com/libris/libris/internal/store"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "libris-svc-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

func seedUser(t *testing.T, db *sql.DB, email, role, password string) model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now()
	u, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
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

func seedBook(t *testing.T, db *sql.DB, title string) model.Book {
	t.Helper()
	b, err := store.New(db).CreateBook(context.Background(), store.CreateBookParams{
		Title:     title,
		Author:    "Anonymous",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	return b
}
