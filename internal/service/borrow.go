package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
	"github.com/maktabaapp/maktaba-server/internal/id"
	"github.com/maktabaapp/maktaba-server/internal/store"
)

// BorrowStore is the persistence the borrowing workflow needs.
type BorrowStore interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) (map[string]*domain.Book, error)
	CreateBorrow(ctx context.Context, borrow *domain.Borrow) error
	GetBorrow(ctx context.Context, id string) (*domain.Borrow, error)
	UpdateBorrow(ctx context.Context, id string, fn func(*domain.Borrow) error) error
	ActiveBorrowForBook(ctx context.Context, bookID string) (*domain.Borrow, error)
	FindBorrows(ctx context.Context, keep func(*domain.Borrow) bool) ([]*domain.Borrow, error)
}

// BorrowRequest lends a book. StartDate defaults to now and EndDate to the
// configured loan period after the start.
type BorrowRequest struct {
	BookID    string
	UserID    string
	StartDate *time.Time
	EndDate   *time.Time
}

// BorrowView is a loan joined with its book's title.
type BorrowView struct {
	*domain.Borrow
	BookTitle string `json:"book_title"`
}

// BorrowService lends and takes back books.
type BorrowService struct {
	store       BorrowStore
	defaultDays int
	logger      *slog.Logger
	now         func() time.Time
}

// NewBorrowService creates a new borrow service.
func NewBorrowService(store BorrowStore, defaultDays int, logger *slog.Logger) *BorrowService {
	if defaultDays <= 0 {
		defaultDays = 14
	}
	return &BorrowService{
		store:       store,
		defaultDays: defaultDays,
		logger:      logger,
		now:         time.Now,
	}
}

var errAlreadyReturned = errors.New("already returned")

// Borrow opens a loan. A book can be out on at most one loan at a time.
func (s *BorrowService) Borrow(ctx context.Context, req BorrowRequest) (*domain.Borrow, error) {
	bookID, userID := strings.TrimSpace(req.BookID), strings.TrimSpace(req.UserID)
	if bookID == "" {
		return nil, domainerrors.Validation("book id is required")
	}
	if userID == "" {
		return nil, domainerrors.Validation("user id is required")
	}

	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, bookError(err, bookID)
	}

	active, err := s.store.ActiveBorrowForBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("check active borrow: %w", err)
	}
	if active != nil {
		return nil, domainerrors.Conflictf("book %s is already borrowed", bookID)
	}

	start := s.now()
	if req.StartDate != nil {
		start = *req.StartDate
	}
	end := start.AddDate(0, 0, s.defaultDays)
	if req.EndDate != nil {
		end = *req.EndDate
	}
	if !end.After(start) {
		return nil, domainerrors.Validation("end date must be after start date")
	}

	borrowID, err := id.Generate(domain.PrefixBorrow)
	if err != nil {
		return nil, err
	}
	borrow := &domain.Borrow{
		BookID:    bookID,
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	}
	borrow.ID = borrowID
	borrow.InitTimestamps()

	if err := s.store.CreateBorrow(ctx, borrow); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) || errors.Is(err, store.ErrConflict) {
			return nil, domainerrors.Conflictf("book %s is already borrowed", bookID)
		}
		return nil, fmt.Errorf("create borrow: %w", err)
	}

	s.logger.Info("book borrowed", "borrow_id", borrowID, "book_id", bookID, "user_id", userID)
	return borrow, nil
}

// Return closes a loan.
func (s *BorrowService) Return(ctx context.Context, borrowID string) (*domain.Borrow, error) {
	var returned domain.Borrow
	err := s.store.UpdateBorrow(ctx, borrowID, func(b *domain.Borrow) error {
		if b.Returned {
			return errAlreadyReturned
		}
		b.MarkReturned(s.now())
		returned = *b
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, domainerrors.NotFoundf("borrow %s not found", borrowID)
	case errors.Is(err, errAlreadyReturned):
		return nil, domainerrors.Conflictf("borrow %s was already returned", borrowID)
	case err != nil:
		return nil, fmt.Errorf("return borrow: %w", err)
	}

	s.logger.Info("book returned", "borrow_id", borrowID, "book_id", returned.BookID)
	return &returned, nil
}

// ListActive returns open loans, soonest due first.
func (s *BorrowService) ListActive(ctx context.Context) ([]*BorrowView, error) {
	return s.list(ctx, func(b *domain.Borrow) bool { return b.IsActive() })
}

// ListOverdue returns open loans past their end date, most overdue first.
func (s *BorrowService) ListOverdue(ctx context.Context) ([]*BorrowView, error) {
	now := s.now()
	return s.list(ctx, func(b *domain.Borrow) bool { return b.IsOverdue(now) })
}

func (s *BorrowService) list(ctx context.Context, keep func(*domain.Borrow) bool) ([]*BorrowView, error) {
	borrows, err := s.store.FindBorrows(ctx, keep)
	if err != nil {
		return nil, fmt.Errorf("find borrows: %w", err)
	}

	slices.SortFunc(borrows, func(a, b *domain.Borrow) int {
		if c := a.EndDate.Compare(b.EndDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	bookIDs := make([]string, len(borrows))
	for i, b := range borrows {
		bookIDs[i] = b.BookID
	}
	books, err := s.store.GetBooksByIDs(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch borrowed books: %w", err)
	}

	views := make([]*BorrowView, len(borrows))
	for i, b := range borrows {
		views[i] = &BorrowView{Borrow: b}
		if book, ok := books[b.BookID]; ok {
			views[i].BookTitle = book.Title
		}
	}
	return views, nil
}
