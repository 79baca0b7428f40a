package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/id"
	"github.com/maktabaapp/maktaba-server/internal/store"
)

func createBook(t *testing.T, s *store.Store, title, shelf, number, subjectID string) *domain.Book {
	t.Helper()

	b := &domain.Book{CategoryID: "category-x", SubjectID: subjectID}
	b.ID = id.MustGenerate(domain.PrefixBook)
	b.InitTimestamps()
	b.SetTitle(title)
	b.ShelfNumber = shelf
	b.BookNumber = number
	b.ApplyDefaults()

	require.NoError(t, s.CreateBook(context.Background(), b))
	return b
}

func TestBooks_CRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b := createBook(t, s, "الرسالة", "1", "1", "")

	got, err := s.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "الرساله", got.NormalizedTitle)

	require.NoError(t, s.UpdateBook(ctx, b.ID, func(book *domain.Book) error {
		book.SetTitle("الرسالة للشافعي")
		return nil
	}))
	got, err = s.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "الرساله للشافعي", got.NormalizedTitle)

	count, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.DeleteBook(ctx, b.ID))
	_, err = s.GetBook(ctx, b.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindBooks(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createBook(t, s, "أ", "3", "1", "")
	createBook(t, s, "ب", "3", "2", "")
	createBook(t, s, "ج", "4", "1", "")

	onShelf, err := s.FindBooks(ctx, func(b *domain.Book) bool { return b.ShelfNumber == "3" })
	require.NoError(t, err)
	assert.Len(t, onShelf, 2)

	all, err := s.FindBooks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSetClassifications(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := createBook(t, s, "1", "1", "1", "subject-a")
	b := createBook(t, s, "2", "1", "2", "subject-a")
	c := createBook(t, s, "3", "1", "3", "subject-b")

	matched, modified, err := s.SetClassifications(ctx, domain.UpdateSubject, []store.ClassificationChange{
		{BookID: a.ID, Value: "subject-b"},
		{BookID: b.ID, Value: "subject-b"},
		{BookID: c.ID, Value: "subject-b"},
		{BookID: "book-missing", Value: "subject-b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, matched)
	assert.Equal(t, 2, modified, "c already had subject-b")

	for _, bookID := range []string{a.ID, b.ID, c.ID} {
		got, err := s.GetBook(ctx, bookID)
		require.NoError(t, err)
		assert.Equal(t, "subject-b", got.SubjectID)
		assert.Equal(t, "category-x", got.CategoryID, "other field untouched")
	}

	_, _, err = s.SetClassifications(ctx, domain.UpdateSubject, []store.ClassificationChange{{BookID: a.ID, Value: ""}})
	require.NoError(t, err)
	got, err := s.GetBook(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.SubjectID)
}
