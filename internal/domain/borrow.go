package domain

import "time"

// Borrow records one loan of a book to a user.
type Borrow struct {
	Base
	BookID       string     `json:"book_id"`
	UserID       string     `json:"user_id"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	Returned     bool       `json:"returned"`
	ReturnedDate *time.Time `json:"returned_date,omitempty"`
}

// IsActive reports whether the book is still out.
func (b *Borrow) IsActive() bool {
	return !b.Returned
}

// IsOverdue reports whether the loan is active and past its end date.
func (b *Borrow) IsOverdue(now time.Time) bool {
	return b.IsActive() && now.After(b.EndDate)
}

// MarkReturned closes the loan at the given time.
func (b *Borrow) MarkReturned(at time.Time) {
	b.Returned = true
	b.ReturnedDate = &at
	b.UpdatedAt = at
}
