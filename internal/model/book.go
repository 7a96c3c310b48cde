// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Loan periods by borrower role.
const (
	LoanPeriodStudent = 14 * 24 * time.Hour  // 2 weeks
	LoanPeriodFaculty = 140 * 24 * time.Hour // 20 weeks
)

// FinePerDay is the fine charged per whole day a book is overdue,
// in currency units. Fines are computed, never collected here.
const FinePerDay = 2

// LoanPeriod returns the loan period for a borrower role, or false if the
// role may not borrow.
func LoanPeriod(role string) (time.Duration, bool) {
	switch role {
	case RoleStudent:
		return LoanPeriodStudent, true
	case RoleFaculty:
		return LoanPeriodFaculty, true
	default:
		return 0, false
	}
}

// Book represents a catalog entry. DueDate and BorrowerID are set exactly
// when IsCheckedOut is true; the three fields only ever change together in a
// single store update.
type Book struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	IsCheckedOut bool          `json:"is_checked_out"`
	DueDate      sql.NullTime  `json:"due_date,omitempty"`
	BorrowerID   sql.NullInt64 `json:"borrower_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsOverdue reports whether the book is checked out past its due date.
func (b *Book) IsOverdue(now time.Time) bool {
	return b.IsCheckedOut && b.DueDate.Valid && now.After(b.DueDate.Time)
}

// Fine returns the fine accrued as of now: whole days past the due date
// times FinePerDay, or 0 when the book is not overdue.
func (b *Book) Fine(now time.Time) int64 {
	if !b.IsOverdue(now) {
		return 0
	}
	days := int64(now.Sub(b.DueDate.Time) / (24 * time.Hour))
	return days * FinePerDay
}
