// Package service provides the catalog's business logic: reference
// resolution, book records, search, bulk reclassification and borrowing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/dto"
	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
	"github.com/maktabaapp/maktaba-server/internal/id"
	"github.com/maktabaapp/maktaba-server/internal/store"
	"github.com/maktabaapp/maktaba-server/internal/validation"
)

// BookInput is the payload for creating a book. Reference fields accept IDs,
// objects or names.
type BookInput struct {
	Title        string           `json:"title" validate:"notblank,max=1000"`
	Authors      domain.RefList   `json:"authors,omitempty"`
	Editors      domain.RefList   `json:"editors,omitempty"`
	Commentators domain.RefList   `json:"commentators,omitempty"`
	Caretakers   domain.RefList   `json:"caretakers,omitempty"`
	Muhashis     domain.RefList   `json:"muhashis,omitempty"`
	Publishers   domain.RefList   `json:"publishers,omitempty"`
	Category     domain.EntityRef `json:"category"`
	Subject      domain.EntityRef `json:"subject,omitempty"`

	RoomNumber  string `json:"room_number,omitempty" validate:"max=50"`
	ShelfNumber string `json:"shelf_number,omitempty" validate:"max=50"`
	WallNumber  string `json:"wall_number,omitempty" validate:"max=50"`
	BookNumber  string `json:"book_number,omitempty" validate:"max=50"`

	NumberOfVolumes int  `json:"number_of_volumes,omitempty" validate:"gte=0"`
	NumberOfFolders int  `json:"number_of_folders,omitempty" validate:"gte=0"`
	EditionNumber   *int `json:"edition_number,omitempty"`
	PublicationYear *int `json:"publication_year,omitempty"`
	PageCount       *int `json:"page_count,omitempty"`

	ImageURL string `json:"image_url,omitempty" validate:"max=2048"`
	Notes    string `json:"notes,omitempty" validate:"max=10000"`
}

// BookPatch is a partial update. Nil fields are left unchanged; reference
// fields that are present are resolved again.
type BookPatch struct {
	Title        *string           `json:"title,omitempty"`
	Authors      *domain.RefList   `json:"authors,omitempty"`
	Editors      *domain.RefList   `json:"editors,omitempty"`
	Commentators *domain.RefList   `json:"commentators,omitempty"`
	Caretakers   *domain.RefList   `json:"caretakers,omitempty"`
	Muhashis     *domain.RefList   `json:"muhashis,omitempty"`
	Publishers   *domain.RefList   `json:"publishers,omitempty"`
	Category     *domain.EntityRef `json:"category,omitempty"`
	Subject      *domain.EntityRef `json:"subject,omitempty"`

	RoomNumber  *string `json:"room_number,omitempty"`
	ShelfNumber *string `json:"shelf_number,omitempty"`
	WallNumber  *string `json:"wall_number,omitempty"`
	BookNumber  *string `json:"book_number,omitempty"`

	NumberOfVolumes *int `json:"number_of_volumes,omitempty"`
	NumberOfFolders *int `json:"number_of_folders,omitempty"`
	EditionNumber   *int `json:"edition_number,omitempty"`
	PublicationYear *int `json:"publication_year,omitempty"`
	PageCount       *int `json:"page_count,omitempty"`

	ImageURL *string `json:"image_url,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// BookService orchestrates book operations.
type BookService struct {
	store     *store.Store
	resolver  *ResolverService
	enricher  *dto.Enricher
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store *store.Store, resolver *ResolverService, enricher *dto.Enricher, validator *validation.Validator, logger *slog.Logger) *BookService {
	return &BookService{
		store:     store,
		resolver:  resolver,
		enricher:  enricher,
		validator: validator,
		logger:    logger,
	}
}

// CreateBook resolves the input's references, stores the book and returns
// its joined view.
func (s *BookService) CreateBook(ctx context.Context, in BookInput) (*dto.Book, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if in.Category.IsZero() {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"category": "is required"})
	}

	bookID, err := id.Generate(domain.PrefixBook)
	if err != nil {
		return nil, err
	}

	book := &domain.Book{
		Address: domain.Address{
			RoomNumber:  strings.TrimSpace(in.RoomNumber),
			ShelfNumber: strings.TrimSpace(in.ShelfNumber),
			WallNumber:  strings.TrimSpace(in.WallNumber),
			BookNumber:  strings.TrimSpace(in.BookNumber),
		},
		NumberOfVolumes: in.NumberOfVolumes,
		NumberOfFolders: in.NumberOfFolders,
		EditionNumber:   in.EditionNumber,
		PublicationYear: in.PublicationYear,
		PageCount:       in.PageCount,
		ImageURL:        strings.TrimSpace(in.ImageURL),
		Notes:           in.Notes,
	}
	book.ID = bookID
	book.InitTimestamps()
	book.SetTitle(strings.TrimSpace(in.Title))
	book.ApplyDefaults()

	if err := checkBookBounds(book); err != nil {
		return nil, err
	}

	lists := []struct {
		target Target
		refs   domain.RefList
		dst    *[]string
	}{
		{TargetAuthors, in.Authors, &book.AuthorIDs},
		{TargetEditors, in.Editors, &book.EditorIDs},
		{TargetCommentators, in.Commentators, &book.CommentatorIDs},
		{TargetCaretakers, in.Caretakers, &book.CaretakerIDs},
		{TargetMuhashis, in.Muhashis, &book.MuhashiIDs},
		{TargetPublishers, in.Publishers, &book.PublisherIDs},
	}
	for _, l := range lists {
		if *l.dst, err = s.resolver.ResolveAll(ctx, l.target, l.refs); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", l.target.Kind, err)
		}
	}
	if book.CategoryID, err = s.resolver.Resolve(ctx, TargetCategory, in.Category); err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}
	if book.SubjectID, err = s.resolver.Resolve(ctx, TargetSubject, in.Subject); err != nil {
		return nil, fmt.Errorf("resolve subject: %w", err)
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Debug("book created", "book_id", book.ID, "category_id", book.CategoryID)
	return s.enricher.EnrichBook(ctx, book)
}

// GetBook returns the joined view of a book.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*dto.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, bookError(err, bookID)
	}
	return s.enricher.EnrichBook(ctx, book)
}

// UpdateBook applies a partial update. Reference fields present in the patch
// are resolved before the stored book is touched.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, patch BookPatch) (*dto.Book, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"title": "is required"})
	}
	if patch.Category != nil && patch.Category.IsZero() {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"category": "is required"})
	}

	// Fail fast before resolution creates any referenced records.
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, bookError(err, bookID)
	}

	resolved := make(map[*domain.RefList][]string)
	for _, l := range []struct {
		target Target
		refs   *domain.RefList
	}{
		{TargetAuthors, patch.Authors},
		{TargetEditors, patch.Editors},
		{TargetCommentators, patch.Commentators},
		{TargetCaretakers, patch.Caretakers},
		{TargetMuhashis, patch.Muhashis},
		{TargetPublishers, patch.Publishers},
	} {
		if l.refs == nil {
			continue
		}
		ids, err := s.resolver.ResolveAll(ctx, l.target, *l.refs)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", l.target.Kind, err)
		}
		resolved[l.refs] = ids
	}

	var categoryID, subjectID string
	var err error
	if patch.Category != nil {
		if categoryID, err = s.resolver.Resolve(ctx, TargetCategory, *patch.Category); err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
	}
	if patch.Subject != nil {
		if subjectID, err = s.resolver.Resolve(ctx, TargetSubject, *patch.Subject); err != nil {
			return nil, fmt.Errorf("resolve subject: %w", err)
		}
	}

	var updated domain.Book
	err = s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		if patch.Title != nil {
			b.SetTitle(strings.TrimSpace(*patch.Title))
		}
		setIDs(&b.AuthorIDs, patch.Authors, resolved)
		setIDs(&b.EditorIDs, patch.Editors, resolved)
		setIDs(&b.CommentatorIDs, patch.Commentators, resolved)
		setIDs(&b.CaretakerIDs, patch.Caretakers, resolved)
		setIDs(&b.MuhashiIDs, patch.Muhashis, resolved)
		setIDs(&b.PublisherIDs, patch.Publishers, resolved)
		if patch.Category != nil {
			b.CategoryID = categoryID
		}
		if patch.Subject != nil {
			b.SubjectID = subjectID
		}

		setTrimmed(&b.RoomNumber, patch.RoomNumber)
		setTrimmed(&b.ShelfNumber, patch.ShelfNumber)
		setTrimmed(&b.WallNumber, patch.WallNumber)
		setTrimmed(&b.BookNumber, patch.BookNumber)
		setTrimmed(&b.ImageURL, patch.ImageURL)
		if patch.Notes != nil {
			b.Notes = *patch.Notes
		}

		if patch.NumberOfVolumes != nil {
			b.NumberOfVolumes = *patch.NumberOfVolumes
		}
		if patch.NumberOfFolders != nil {
			b.NumberOfFolders = *patch.NumberOfFolders
		}
		if patch.EditionNumber != nil {
			b.EditionNumber = patch.EditionNumber
		}
		if patch.PublicationYear != nil {
			b.PublicationYear = patch.PublicationYear
		}
		if patch.PageCount != nil {
			b.PageCount = patch.PageCount
		}

		if err := checkBookBounds(b); err != nil {
			return err
		}
		b.Touch()
		updated = *b
		return nil
	})
	if err != nil {
		return nil, bookError(err, bookID)
	}

	s.logger.Debug("book updated", "book_id", bookID)
	return s.enricher.EnrichBook(ctx, &updated)
}

// DeleteBook removes a book. Books out on loan cannot be deleted.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return bookError(err, bookID)
	}

	active, err := s.store.ActiveBorrowForBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("check active borrow: %w", err)
	}
	if active != nil {
		return domainerrors.Conflictf("book %s is borrowed until %s", bookID, active.EndDate.Format("2006-01-02"))
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// checkBookBounds enforces the numeric invariants of a book.
func checkBookBounds(b *domain.Book) error {
	details := make(map[string]string)
	if b.NumberOfVolumes < 1 {
		details["number_of_volumes"] = "must be at least 1"
	}
	if b.NumberOfFolders < 1 {
		details["number_of_folders"] = "must be at least 1"
	}
	if b.EditionNumber != nil && *b.EditionNumber < 1 {
		details["edition_number"] = "must be at least 1"
	}
	if b.PublicationYear != nil && *b.PublicationYear < 0 {
		details["publication_year"] = "must be greater than or equal to 0"
	}
	if b.PageCount != nil && *b.PageCount < 0 {
		details["page_count"] = "must be greater than or equal to 0"
	}
	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("validation failed", details)
	}
	return nil
}

func setIDs(dst *[]string, refs *domain.RefList, resolved map[*domain.RefList][]string) {
	if refs != nil {
		*dst = resolved[refs]
	}
}

func setTrimmed(dst, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// bookError maps store errors for a book lookup to domain errors.
func bookError(err error, bookID string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFoundf("book %s not found", bookID)
	}
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("book %s: %w", bookID, err)
}
