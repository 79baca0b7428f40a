package domain

import "github.com/maktabaapp/maktaba-server/internal/normalize"

// Book is a catalog record. Credits, publishers and classification are held
// as IDs of their own records; the joined view lives in package dto.
type Book struct {
	Base
	Title           string `json:"title"`
	NormalizedTitle string `json:"normalized_title"`

	AuthorIDs      []string `json:"author_ids,omitempty"`
	EditorIDs      []string `json:"editor_ids,omitempty"`
	CommentatorIDs []string `json:"commentator_ids,omitempty"`
	CaretakerIDs   []string `json:"caretaker_ids,omitempty"`
	MuhashiIDs     []string `json:"muhashi_ids,omitempty"`
	PublisherIDs   []string `json:"publisher_ids,omitempty"`

	CategoryID string `json:"category_id"`
	SubjectID  string `json:"subject_id,omitempty"`

	Address

	NumberOfVolumes int  `json:"number_of_volumes"`
	NumberOfFolders int  `json:"number_of_folders"`
	EditionNumber   *int `json:"edition_number,omitempty"`
	PublicationYear *int `json:"publication_year,omitempty"`
	PageCount       *int `json:"page_count,omitempty"`

	ImageURL string `json:"image_url,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Address locates a physical copy. Every part is free text: "12", "ب" and
// "3a" are all valid shelf numbers.
type Address struct {
	RoomNumber  string `json:"room_number,omitempty"`
	ShelfNumber string `json:"shelf_number,omitempty"`
	WallNumber  string `json:"wall_number,omitempty"`
	BookNumber  string `json:"book_number,omitempty"`
}

// SetTitle updates the title and recomputes NormalizedTitle.
func (b *Book) SetTitle(title string) {
	b.Title = title
	b.NormalizedTitle = normalize.Text(title)
}

// ApplyDefaults fills the volume and folder counts when unset.
func (b *Book) ApplyDefaults() {
	if b.NumberOfVolumes == 0 {
		b.NumberOfVolumes = 1
	}
	if b.NumberOfFolders == 0 {
		b.NumberOfFolders = 1
	}
}

// Classification returns the value currently held for an update type.
func (b *Book) Classification(t UpdateType) string {
	if t == UpdateSubject {
		return b.SubjectID
	}
	return b.CategoryID
}

// SetClassification writes the value for an update type and reports whether
// it changed.
func (b *Book) SetClassification(t UpdateType, value string) bool {
	target := &b.CategoryID
	if t == UpdateSubject {
		target = &b.SubjectID
	}
	if *target == value {
		return false
	}
	*target = value
	return true
}

// PersonIDs returns the credit list for a role.
func (b *Book) PersonIDs(role PersonRole) []string {
	switch role {
	case RoleAuthor:
		return b.AuthorIDs
	case RoleEditor:
		return b.EditorIDs
	case RoleCommentator:
		return b.CommentatorIDs
	case RoleCaretaker:
		return b.CaretakerIDs
	case RoleMuhashi:
		return b.MuhashiIDs
	default:
		return nil
	}
}

// AllPersonIDs returns every credited person ID in role order, duplicates kept.
func (b *Book) AllPersonIDs() []string {
	ids := make([]string, 0, len(b.AuthorIDs)+len(b.EditorIDs)+len(b.CommentatorIDs)+len(b.CaretakerIDs)+len(b.MuhashiIDs))
	ids = append(ids, b.AuthorIDs...)
	ids = append(ids, b.EditorIDs...)
	ids = append(ids, b.CommentatorIDs...)
	ids = append(ids, b.CaretakerIDs...)
	ids = append(ids, b.MuhashiIDs...)
	return ids
}
