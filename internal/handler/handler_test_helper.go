// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/libris/libris/internal/auth"
	"github.com/libris/libris/internal/middleware"
	"github.com/libris/libris/internal/model"
	"github.com/libris/libris/internal/render"
	"github.com/libris/libris/internal/store"
	"github.com/libris/libris/web"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "libris-handler-test-*.db")
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

// testRenderer builds a renderer over the real embedded templates.
// The session manager is nil, so flash helpers are no-ops.
func testRenderer(t *testing.T) *render.Renderer {
	t.Helper()

	tfs, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	r, err := render.New(render.Config{TemplatesFS: tfs})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return r
}

// testSessionManager creates a memory-backed session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// createTestUser creates a user with a real password hash.
func createTestUser(t *testing.T, db *sql.DB, email, role, password string) model.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	now := time.Now()
	user, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Name:         "Test User",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

// createTestBook creates an available book.
func createTestBook(t *testing.T, db *sql.DB, title string) model.Book {
	t.Helper()

	book, err := store.New(db).CreateBook(context.Background(), store.CreateBookParams{
		Title:     title,
		Author:    "Test Author",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("creating test book: %v", err)
	}
	return book
}

// withUser places a user in the request context the way LoadUser does.
func withUser(r *http.Request, user model.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, user)
	return r.WithContext(ctx)
}

// withURLParams adds chi URL parameters to a request.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withSession wraps a request with a loaded session context.
func withSession(sm *scs.SessionManager, r *http.Request) *http.Request {
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		return r
	}
	return r.WithContext(ctx)
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// assertRedirect checks a redirect response's Location header.
func assertRedirect(t *testing.T, rec interface{ Header() http.Header }, want string) {
	t.Helper()
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("Location = %q; want %q", got, want)
	}
}
