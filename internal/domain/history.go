package domain

import "time"

// UpdateType names the book field a bulk reclassification rewrites.
type UpdateType string

// Supported bulk update types.
const (
	UpdateSubject  UpdateType = "subject"
	UpdateCategory UpdateType = "category"
)

// IsValid checks if the update type is a recognized value.
func (t UpdateType) IsValid() bool {
	return t == UpdateSubject || t == UpdateCategory
}

// HistoryStatus tracks whether a bulk update is still in effect.
type HistoryStatus string

// History statuses. active -> undone is the only transition.
const (
	HistoryActive HistoryStatus = "active"
	HistoryUndone HistoryStatus = "undone"
)

// ShelfCriteria selects a contiguous run of books on one shelf.
type ShelfCriteria struct {
	RoomNumber     string `json:"room_number,omitempty"`
	WallNumber     string `json:"wall_number,omitempty"`
	ShelfNumber    string `json:"shelf_number"`
	BookNumberFrom int    `json:"book_number_from"`
	BookNumberTo   int    `json:"book_number_to"`
}

// ValueRef is a denormalized {id, title} pair recorded in history so the log
// stays readable after the referenced record is renamed or removed.
type ValueRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AffectedBook is the per-book snapshot taken before a bulk write.
type AffectedBook struct {
	BookID          string `json:"book_id"`
	BookTitle       string `json:"book_title"`
	PreviousValueID string `json:"previous_value_id,omitempty"`
}

// BulkUpdateHistory is the append-only record of one bulk reclassification.
// Only Status and UndoneAt ever change after creation.
type BulkUpdateHistory struct {
	ID            string         `json:"id"`
	UpdateID      string         `json:"update_id"`
	UserID        string         `json:"user_id"`
	UpdateType    UpdateType     `json:"update_type"`
	Criteria      ShelfCriteria  `json:"criteria"`
	OldValue      *ValueRef      `json:"old_value,omitempty"`
	NewValue      ValueRef       `json:"new_value"`
	AffectedBooks []AffectedBook `json:"affected_books"`
	Status        HistoryStatus  `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UndoneAt      *time.Time     `json:"undone_at,omitempty"`
}

// IsUndone reports whether the update was already reverted.
func (h *BulkUpdateHistory) IsUndone() bool {
	return h.Status == HistoryUndone
}
