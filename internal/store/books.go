package store

import (
	"context"

	"github.com/maktabaapp/maktaba-server/internal/domain"
)

// CreateBook stores a new book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	return s.Books.Create(ctx, book.ID, book)
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.Books.Get(ctx, id)
}

// UpdateBook applies fn to the stored book in one transaction.
func (s *Store) UpdateBook(ctx context.Context, id string, fn func(*domain.Book) error) error {
	return s.Books.Mutate(ctx, id, fn)
}

// GetBooksByIDs batch-loads books. Missing IDs are skipped.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) (map[string]*domain.Book, error) {
	return s.Books.GetMany(ctx, ids)
}

// DeleteBook removes a book. Missing books are not an error.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	return s.Books.Delete(ctx, id)
}

// CountBooks returns the total number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return s.Books.Count(ctx)
}

// FindBooks returns every book for which keep returns true, in ID order.
// A nil keep returns the whole collection.
func (s *Store) FindBooks(ctx context.Context, keep func(*domain.Book) bool) ([]*domain.Book, error) {
	return s.Books.Collect(ctx, keep)
}

// ClassificationChange sets one book's subject or category.
// An empty Value clears the field.
type ClassificationChange struct {
	BookID string
	Value  string
}

// SetClassifications writes each change's value into the field named by t.
//
// matched counts books that still exist; modified counts books whose value
// actually changed. Both describe committed work even when err is non-nil.
func (s *Store) SetClassifications(ctx context.Context, t domain.UpdateType, changes []ClassificationChange) (matched, modified int, err error) {
	values := make(map[string]string, len(changes))
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		if _, dup := values[c.BookID]; !dup {
			ids = append(ids, c.BookID)
		}
		values[c.BookID] = c.Value
	}

	matched, modified, err = s.Books.MutateMany(ctx, ids, func(b *domain.Book) (bool, error) {
		if !b.SetClassification(t, values[b.ID]) {
			return false, nil
		}
		b.Touch()
		return true, nil
	})

	s.logger.Debug("classifications written",
		"update_type", t,
		"requested", len(ids),
		"matched", matched,
		"modified", modified,
	)
	return matched, modified, err
}
