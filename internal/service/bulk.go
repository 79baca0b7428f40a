package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
	"github.com/maktabaapp/maktaba-server/internal/id"
	"github.com/maktabaapp/maktaba-server/internal/store"
)

// historyPrefix is the ID prefix of bulk update history records.
const historyPrefix = "history"

// BulkBookStore is the catalog access bulk reclassification needs.
type BulkBookStore interface {
	FindBooks(ctx context.Context, keep func(*domain.Book) bool) ([]*domain.Book, error)
	SetClassifications(ctx context.Context, t domain.UpdateType, changes []store.ClassificationChange) (matched, modified int, err error)
	RefTitle(ctx context.Context, kind domain.EntityKind, refID string) (string, error)
}

// HistoryStore persists bulk update history.
type HistoryStore interface {
	CreateHistory(ctx context.Context, h *domain.BulkUpdateHistory) error
	GetHistory(ctx context.Context, id string) (*domain.BulkUpdateHistory, error)
	MarkHistoryUndone(ctx context.Context, id string, at time.Time) error
	ListHistory(ctx context.Context, userID string, offset, limit int) ([]*domain.BulkUpdateHistory, int, error)
}

// ReclassifyRequest asks for every book in a shelf range to get a new
// subject or category. Book number bounds are kept as sent so that a
// non-integer bound is reported as such.
type ReclassifyRequest struct {
	UpdateType     string
	RoomNumber     string
	WallNumber     string
	ShelfNumber    string
	BookNumberFrom string
	BookNumberTo   string
	NewValueID     string
	UserID         string
}

// UndoData is what a client needs to offer an immediate undo.
type UndoData struct {
	HistoryID     string                `json:"history_id"`
	AffectedBooks []domain.AffectedBook `json:"affected_books"`
}

// ReclassifyResult reports a completed bulk reclassification.
// HistoryID is empty when no book matched.
type ReclassifyResult struct {
	MatchedCount  int             `json:"matched_count"`
	ModifiedCount int             `json:"modified_count"`
	NewValue      domain.ValueRef `json:"new_value"`
	HistoryID     string          `json:"history_id,omitempty"`
	UndoData      *UndoData       `json:"undo_data,omitempty"`
}

// UndoResult reports a completed undo.
type UndoResult struct {
	HistoryID     string `json:"history_id"`
	RestoredCount int    `json:"restored_count"`
}

// Stages at which a bulk reclassification can fail after writing.
const (
	StageUpdate  = "update"
	StageHistory = "history"
)

// BulkFailure is returned when a bulk write or its history record failed.
// The books touched so far were put back; RollbackErr is set when that
// also failed and the catalog may be left partially updated.
type BulkFailure struct {
	Stage       string
	Err         error
	RolledBack  int
	RollbackErr error
}

func (f *BulkFailure) Error() string {
	msg := fmt.Sprintf("bulk %s failed: %v", f.Stage, f.Err)
	if f.RollbackErr != nil {
		return msg + fmt.Sprintf("; rollback failed after restoring %d books: %v", f.RolledBack, f.RollbackErr)
	}
	return msg + fmt.Sprintf("; rolled back %d books", f.RolledBack)
}

// Unwrap exposes both the original failure and the rollback failure.
func (f *BulkFailure) Unwrap() []error {
	if f.RollbackErr == nil {
		return []error{f.Err}
	}
	return []error{f.Err, f.RollbackErr}
}

// BulkOptions bounds bulk requests.
type BulkOptions struct {
	MaxRange        int
	DefaultPageSize int
	MaxPageSize     int
}

// BulkService reclassifies shelf ranges and undoes earlier reclassifications.
type BulkService struct {
	books   BulkBookStore
	history HistoryStore
	opts    BulkOptions
	logger  *slog.Logger
	now     func() time.Time
}

// NewBulkService creates a new bulk service.
func NewBulkService(books BulkBookStore, history HistoryStore, opts BulkOptions, logger *slog.Logger) *BulkService {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	return &BulkService{
		books:   books,
		history: history,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// criteria is a validated ReclassifyRequest.
type criteria struct {
	updateType domain.UpdateType
	shelf      domain.ShelfCriteria
	newValueID string
	userID     string
}

func (s *BulkService) validate(req ReclassifyRequest) (criteria, error) {
	var c criteria

	c.userID = strings.TrimSpace(req.UserID)
	if c.userID == "" {
		return c, domainerrors.Validation("acting user is required")
	}

	c.updateType = domain.UpdateType(strings.TrimSpace(req.UpdateType))
	if !c.updateType.IsValid() {
		return c, domainerrors.Validationf("unknown update type %q: must be subject or category", req.UpdateType)
	}

	c.shelf.ShelfNumber = strings.TrimSpace(req.ShelfNumber)
	if c.shelf.ShelfNumber == "" {
		return c, domainerrors.Validation("shelf number is required")
	}
	c.shelf.RoomNumber = strings.TrimSpace(req.RoomNumber)
	c.shelf.WallNumber = strings.TrimSpace(req.WallNumber)

	rawFrom, rawTo := strings.TrimSpace(req.BookNumberFrom), strings.TrimSpace(req.BookNumberTo)
	if rawFrom == "" || rawTo == "" {
		return c, domainerrors.Validation("book number range is required: both from and to must be given")
	}

	from, errFrom := strconv.Atoi(rawFrom)
	to, errTo := strconv.Atoi(rawTo)
	if errFrom != nil || errTo != nil {
		return c, domainerrors.Validationf("book number bounds must be integers, got %q and %q", rawFrom, rawTo)
	}
	if from > to {
		return c, domainerrors.Validationf("book number from (%d) must not exceed to (%d)", from, to)
	}
	// to-from can overflow int; the unsigned difference cannot.
	if span := uint64(to) - uint64(from); s.opts.MaxRange > 0 && span >= uint64(s.opts.MaxRange) {
		return c, domainerrors.Validationf("book number range %d..%d spans more than the maximum of %d numbers", from, to, s.opts.MaxRange)
	}
	c.shelf.BookNumberFrom, c.shelf.BookNumberTo = from, to

	c.newValueID = strings.TrimSpace(req.NewValueID)
	if c.newValueID == "" {
		return c, domainerrors.Validationf("new %s is required", c.updateType)
	}

	return c, nil
}

// selector matches books on the shelf whose book number is one of the
// decimal strings from..to. Book numbers are free text and match textually.
func selector(sc domain.ShelfCriteria) func(*domain.Book) bool {
	numbers := make(map[string]struct{})
	for n := sc.BookNumberFrom; ; n++ {
		numbers[strconv.Itoa(n)] = struct{}{}
		if n == sc.BookNumberTo {
			break
		}
	}

	return func(b *domain.Book) bool {
		if b.ShelfNumber != sc.ShelfNumber {
			return false
		}
		if sc.RoomNumber != "" && b.RoomNumber != sc.RoomNumber {
			return false
		}
		if sc.WallNumber != "" && b.WallNumber != sc.WallNumber {
			return false
		}
		_, ok := numbers[b.BookNumber]
		return ok
	}
}

// modeValue returns the most frequent non-empty value. Ties go to the value
// whose first occurrence comes earliest.
func modeValue(values []string) string {
	counts := make(map[string]int, len(values))
	maxCount := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
		maxCount = max(maxCount, counts[v])
	}
	for _, v := range values {
		if v != "" && counts[v] == maxCount {
			return v
		}
	}
	return ""
}

func refKind(t domain.UpdateType) domain.EntityKind {
	if t == domain.UpdateSubject {
		return domain.KindSubject
	}
	return domain.KindCategory
}

// Reclassify sets a new subject or category on every book in a shelf range
// and records the change so it can be undone.
//
// The previous values are snapshotted before anything is written. If the
// write or the history record fails, the snapshot is written back and a
// *BulkFailure is returned.
func (s *BulkService) Reclassify(ctx context.Context, req ReclassifyRequest) (*ReclassifyResult, error) {
	c, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	kind := refKind(c.updateType)
	newTitle, err := s.books.RefTitle(ctx, kind, c.newValueID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("%s %s not found", kind, c.newValueID)
	}
	if err != nil {
		return nil, fmt.Errorf("look up new %s: %w", kind, err)
	}
	newValue := domain.ValueRef{ID: c.newValueID, Title: newTitle}

	books, err := s.books.FindBooks(ctx, selector(c.shelf))
	if err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	if len(books) == 0 {
		s.logger.Info("bulk reclassify matched no books",
			"update_type", c.updateType,
			"shelf", c.shelf.ShelfNumber,
			"from", c.shelf.BookNumberFrom,
			"to", c.shelf.BookNumberTo,
		)
		return &ReclassifyResult{NewValue: newValue}, nil
	}

	snapshot := make([]domain.AffectedBook, len(books))
	previous := make([]string, len(books))
	changes := make([]store.ClassificationChange, len(books))
	for i, b := range books {
		prev := b.Classification(c.updateType)
		snapshot[i] = domain.AffectedBook{BookID: b.ID, BookTitle: b.Title, PreviousValueID: prev}
		previous[i] = prev
		changes[i] = store.ClassificationChange{BookID: b.ID, Value: c.newValueID}
	}

	var oldValue *domain.ValueRef
	if oldID := modeValue(previous); oldID != "" {
		oldTitle, err := s.books.RefTitle(ctx, kind, oldID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("look up old %s: %w", kind, err)
		}
		oldValue = &domain.ValueRef{ID: oldID, Title: oldTitle}
	}

	matched, modified, err := s.books.SetClassifications(ctx, c.updateType, changes)
	if err != nil {
		return nil, s.rollback(ctx, StageUpdate, err, c.updateType, snapshot)
	}

	historyID, err := id.Generate(historyPrefix)
	if err != nil {
		return nil, s.rollback(ctx, StageHistory, err, c.updateType, snapshot)
	}
	record := &domain.BulkUpdateHistory{
		ID:            historyID,
		UpdateID:      uuid.NewString(),
		UserID:        c.userID,
		UpdateType:    c.updateType,
		Criteria:      c.shelf,
		OldValue:      oldValue,
		NewValue:      newValue,
		AffectedBooks: snapshot,
		Status:        domain.HistoryActive,
		CreatedAt:     s.now(),
	}
	if err := s.history.CreateHistory(ctx, record); err != nil {
		return nil, s.rollback(ctx, StageHistory, err, c.updateType, snapshot)
	}

	s.logger.Info("bulk reclassify applied",
		"history_id", historyID,
		"update_type", c.updateType,
		"user_id", c.userID,
		"matched", matched,
		"modified", modified,
	)

	return &ReclassifyResult{
		MatchedCount:  matched,
		ModifiedCount: modified,
		NewValue:      newValue,
		HistoryID:     historyID,
		UndoData:      &UndoData{HistoryID: historyID, AffectedBooks: snapshot},
	}, nil
}

// rollback writes the snapshot back after a failed write.
func (s *BulkService) rollback(ctx context.Context, stage string, cause error, t domain.UpdateType, snapshot []domain.AffectedBook) error {
	s.logger.Warn("bulk reclassify failed, rolling back",
		"stage", stage,
		"books", len(snapshot),
		"error", cause,
	)

	// The caller may have given up; the restore must still run.
	ctx = context.WithoutCancel(ctx)

	restored, _, err := s.books.SetClassifications(ctx, t, restoreChanges(snapshot))
	failure := &BulkFailure{Stage: stage, Err: cause, RolledBack: restored}
	if err != nil {
		failure.RollbackErr = err
		s.logger.Error("bulk reclassify rollback failed",
			"stage", stage,
			"restored", restored,
			"books", len(snapshot),
			"error", err,
		)
	}
	return failure
}

func restoreChanges(snapshot []domain.AffectedBook) []store.ClassificationChange {
	changes := make([]store.ClassificationChange, len(snapshot))
	for i, ab := range snapshot {
		changes[i] = store.ClassificationChange{BookID: ab.BookID, Value: ab.PreviousValueID}
	}
	return changes
}

// Undo restores the values recorded in a history record and marks it
// undone. Books deleted since the update are skipped. Undo does not create
// a history record of its own.
func (s *BulkService) Undo(ctx context.Context, historyID string) (*UndoResult, error) {
	h, err := s.history.GetHistory(ctx, historyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("bulk update %s not found", historyID)
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if h.IsUndone() {
		return nil, domainerrors.AlreadyUndone(fmt.Sprintf("bulk update %s was already undone", historyID))
	}

	restored, _, err := s.books.SetClassifications(ctx, h.UpdateType, restoreChanges(h.AffectedBooks))
	if err != nil {
		return nil, fmt.Errorf("restore previous values: %w", err)
	}

	switch err := s.history.MarkHistoryUndone(ctx, historyID, s.now()); {
	case errors.Is(err, store.ErrAlreadyUndone):
		// A concurrent undo won; both restored the same values.
		return nil, domainerrors.AlreadyUndone(fmt.Sprintf("bulk update %s was already undone", historyID))
	case errors.Is(err, store.ErrNotFound):
		return nil, domainerrors.NotFoundf("bulk update %s not found", historyID)
	case err != nil:
		return nil, fmt.Errorf("mark history undone: %w", err)
	}

	s.logger.Info("bulk reclassify undone",
		"history_id", historyID,
		"update_type", h.UpdateType,
		"restored", restored,
	)
	return &UndoResult{HistoryID: historyID, RestoredCount: restored}, nil
}

// ListHistory returns bulk updates newest first. An empty userID lists
// every user's updates.
func (s *BulkService) ListHistory(ctx context.Context, userID string, page, pageSize int) (*store.PaginatedResult[*domain.BulkUpdateHistory], error) {
	p := store.NewPage(page, pageSize, s.opts.DefaultPageSize, s.opts.MaxPageSize)

	items, total, err := s.history.ListHistory(ctx, strings.TrimSpace(userID), p.Offset(), p.Size)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	result := store.NewPaginatedResult(items, total, p)
	return &result, nil
}
