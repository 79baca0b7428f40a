package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/store"
)

// historyColumns is the ordered list of columns selected in history queries.
// Must match the scan order in scanHistory.
const historyColumns = `id, update_id, user_id, update_type,
	room_number, wall_number, shelf_number, book_number_from, book_number_to,
	old_value_id, old_value_title, new_value_id, new_value_title,
	status, created_at, undone_at`

func scanHistory(scanner interface{ Scan(dest ...any) error }) (*domain.BulkUpdateHistory, error) {
	var h domain.BulkUpdateHistory

	var (
		updateType    string
		roomNumber    sql.NullString
		wallNumber    sql.NullString
		oldValueID    sql.NullString
		oldValueTitle sql.NullString
		status        string
		createdAt     string
		undoneAt      sql.NullString
	)

	err := scanner.Scan(
		&h.ID,
		&h.UpdateID,
		&h.UserID,
		&updateType,
		&roomNumber,
		&wallNumber,
		&h.Criteria.ShelfNumber,
		&h.Criteria.BookNumberFrom,
		&h.Criteria.BookNumberTo,
		&oldValueID,
		&oldValueTitle,
		&h.NewValue.ID,
		&h.NewValue.Title,
		&status,
		&createdAt,
		&undoneAt,
	)
	if err != nil {
		return nil, err
	}

	h.UpdateType = domain.UpdateType(updateType)
	h.Status = domain.HistoryStatus(status)
	h.Criteria.RoomNumber = roomNumber.String
	h.Criteria.WallNumber = wallNumber.String

	if oldValueID.Valid {
		h.OldValue = &domain.ValueRef{ID: oldValueID.String, Title: oldValueTitle.String}
	}

	h.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	h.UndoneAt, err = parseNullableTime(undoneAt)
	if err != nil {
		return nil, err
	}

	return &h, nil
}

// CreateHistory inserts a history record and its per-book snapshots in one
// transaction. Returns store.ErrAlreadyExists if the ID or update ID is taken.
func (s *Store) CreateHistory(ctx context.Context, h *domain.BulkUpdateHistory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var oldID, oldTitle sql.NullString
	if h.OldValue != nil {
		oldID = sql.NullString{String: h.OldValue.ID, Valid: true}
		oldTitle = sql.NullString{String: h.OldValue.Title, Valid: true}
	}

	status := h.Status
	if status == "" {
		status = domain.HistoryActive
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bulk_update_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID,
		h.UpdateID,
		h.UserID,
		string(h.UpdateType),
		nullString(h.Criteria.RoomNumber),
		nullString(h.Criteria.WallNumber),
		h.Criteria.ShelfNumber,
		h.Criteria.BookNumberFrom,
		h.Criteria.BookNumberTo,
		oldID,
		oldTitle,
		h.NewValue.ID,
		h.NewValue.Title,
		string(status),
		formatTime(h.CreatedAt),
		nullTimeString(h.UndoneAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert bulk_update_history: %w", err)
	}

	for i, ab := range h.AffectedBooks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bulk_update_affected_books (history_id, position, book_id, book_title, previous_value_id)
			VALUES (?, ?, ?, ?, ?)`,
			h.ID, i, ab.BookID, ab.BookTitle, nullString(ab.PreviousValueID),
		)
		if err != nil {
			return fmt.Errorf("insert bulk_update_affected_books: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	h.Status = status
	return nil
}

// GetHistory retrieves a history record with its snapshots.
// Returns store.ErrNotFound if the record does not exist.
func (s *Store) GetHistory(ctx context.Context, id string) (*domain.BulkUpdateHistory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM bulk_update_history WHERE id = ?`, id)

	h, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	h.AffectedBooks, err = s.affectedBooks(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// MarkHistoryUndone flips an active record to undone.
//
// The update is conditional on status = 'active', so of two concurrent undo
// requests exactly one succeeds. Returns store.ErrNotFound for unknown IDs and
// store.ErrAlreadyUndone when the record was already undone.
func (s *Store) MarkHistoryUndone(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bulk_update_history
		SET status = 'undone', undone_at = ?
		WHERE id = ? AND status = 'active'`,
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("mark history undone: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM bulk_update_history WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrAlreadyUndone
}

// ListHistory returns one page of history records, newest first, and the
// total number of matching records. An empty userID lists every user's records.
func (s *Store) ListHistory(ctx context.Context, userID string, offset, limit int) ([]*domain.BulkUpdateHistory, int, error) {
	where, args := "", []any{}
	if userID != "" {
		where, args = " WHERE user_id = ?", append(args, userID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bulk_update_history`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM bulk_update_history`+where+`
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []*domain.BulkUpdateHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, h := range history {
		if h.AffectedBooks, err = s.affectedBooks(ctx, h.ID); err != nil {
			return nil, 0, err
		}
	}

	return history, total, nil
}

func (s *Store) affectedBooks(ctx context.Context, historyID string) ([]domain.AffectedBook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, book_title, previous_value_id
		FROM bulk_update_affected_books
		WHERE history_id = ?
		ORDER BY position`, historyID)
	if err != nil {
		return nil, fmt.Errorf("query affected books: %w", err)
	}
	defer rows.Close()

	books := []domain.AffectedBook{}
	for rows.Next() {
		var (
			ab   domain.AffectedBook
			prev sql.NullString
		)
		if err := rows.Scan(&ab.BookID, &ab.BookTitle, &prev); err != nil {
			return nil, err
		}
		ab.PreviousValueID = prev.String
		books = append(books, ab)
	}
	return books, rows.Err()
}
