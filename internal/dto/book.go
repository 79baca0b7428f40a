// Package dto provides the joined views returned by the API and the CLI.
//
// A dto.Book keeps the stored reference IDs and adds the referenced records'
// display fields, so clients can render a book without further lookups.
package dto

import "github.com/maktabaapp/maktaba-server/internal/domain"

// PersonRef is a credited person as shown alongside a book.
type PersonRef struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
}

// TitleRef is a publisher, category or subject as shown alongside a book.
type TitleRef struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	NormalizedTitle string `json:"normalized_title"`
}

// Book is the client-facing representation of a book.
//
// References that no longer resolve are dropped from the joined lists and
// the single-valued fields stay nil. The book itself is always returned.
type Book struct {
	*domain.Book

	Authors      []PersonRef `json:"authors"`
	Editors      []PersonRef `json:"editors"`
	Commentators []PersonRef `json:"commentators"`
	Caretakers   []PersonRef `json:"caretakers"`
	Muhashis     []PersonRef `json:"muhashis"`
	Publishers   []TitleRef  `json:"publishers"`
	Category     *TitleRef   `json:"category,omitempty"`
	Subject      *TitleRef   `json:"subject,omitempty"`
}

// People returns the joined list for a role.
func (b *Book) People(role domain.PersonRole) []PersonRef {
	switch role {
	case domain.RoleAuthor:
		return b.Authors
	case domain.RoleEditor:
		return b.Editors
	case domain.RoleCommentator:
		return b.Commentators
	case domain.RoleCaretaker:
		return b.Caretakers
	case domain.RoleMuhashi:
		return b.Muhashis
	default:
		return nil
	}
}
