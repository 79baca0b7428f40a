package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/store"
)

func newBorrow(id, bookID string) *domain.Borrow {
	now := time.Now()
	b := &domain.Borrow{BookID: bookID, UserID: "user-1", StartDate: now, EndDate: now.Add(time.Hour)}
	b.ID = id
	b.InitTimestamps()
	return b
}

func TestBorrows_OneActiveLoanPerBook(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBorrow(ctx, newBorrow("borrow-1", "book-1")))

	err := s.CreateBorrow(ctx, newBorrow("borrow-2", "book-1"))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	active, err := s.ActiveBorrowForBook(ctx, "book-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "borrow-1", active.ID)

	require.NoError(t, s.UpdateBorrow(ctx, "borrow-1", func(b *domain.Borrow) error {
		b.MarkReturned(time.Now())
		return nil
	}))

	active, err = s.ActiveBorrowForBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	require.NoError(t, s.CreateBorrow(ctx, newBorrow("borrow-2", "book-1")), "returned loan frees the book")

	open, err := s.FindBorrows(ctx, func(b *domain.Borrow) bool { return b.IsActive() })
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
