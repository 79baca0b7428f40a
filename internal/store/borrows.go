package store

import (
	"context"
	"errors"

	"github.com/maktabaapp/maktaba-server/internal/domain"
)

// CreateBorrow stores a new loan. Returns ErrAlreadyExists when the book
// already has an active loan.
func (s *Store) CreateBorrow(ctx context.Context, borrow *domain.Borrow) error {
	return s.Borrows.Create(ctx, borrow.ID, borrow)
}

// GetBorrow retrieves a loan by ID.
func (s *Store) GetBorrow(ctx context.Context, id string) (*domain.Borrow, error) {
	return s.Borrows.Get(ctx, id)
}

// UpdateBorrow applies fn to the stored loan in one transaction.
// Closing a loan frees the book's active-loan index entry.
func (s *Store) UpdateBorrow(ctx context.Context, id string, fn func(*domain.Borrow) error) error {
	return s.Borrows.Mutate(ctx, id, fn)
}

// ActiveBorrowForBook returns the open loan on a book, or nil when it is on the shelf.
func (s *Store) ActiveBorrowForBook(ctx context.Context, bookID string) (*domain.Borrow, error) {
	b, err := s.Borrows.GetByIndex(ctx, indexActiveBook, bookID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// FindBorrows returns every loan for which keep returns true.
func (s *Store) FindBorrows(ctx context.Context, keep func(*domain.Borrow) bool) ([]*domain.Borrow, error) {
	return s.Borrows.Collect(ctx, keep)
}
