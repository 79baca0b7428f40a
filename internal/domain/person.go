package domain

import (
	"time"

	"github.com/maktabaapp/maktaba-server/internal/normalize"
)

// Person is anyone credited on a book. The same human credited in two roles
// is stored as two people, one per role.
type Person struct {
	Base
	Name           string     `json:"name"`
	NormalizedName string     `json:"normalized_name"`
	Role           PersonRole `json:"role"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath    *time.Time `json:"date_of_death,omitempty"`
}

// SetName updates the display name and its normalized form together.
func (p *Person) SetName(name string) {
	p.Name = name
	p.NormalizedName = normalize.Text(name)
}

// NaturalKey is the unique lookup key for a person: normalized name plus role.
func (p *Person) NaturalKey() string {
	return PersonKey(p.NormalizedName, p.Role)
}

// PersonKey builds the natural key for a name and role.
func PersonKey(name string, role PersonRole) string {
	return normalize.Key(name, string(role))
}

// PersonRole is the capacity in which a person is credited.
type PersonRole string

// Person roles. RolePublisher is kept for records created before publishers
// became their own entity.
const (
	RoleAuthor      PersonRole = "author"
	RoleEditor      PersonRole = "editor"
	RoleCaretaker   PersonRole = "caretaker"
	RoleCommentator PersonRole = "commentator"
	RoleMuhashi     PersonRole = "muhashi"
	RolePublisher   PersonRole = "publisher"
)

// String returns the string representation of the role.
func (r PersonRole) String() string {
	return string(r)
}

// IsValid checks if the role is a recognized value.
func (r PersonRole) IsValid() bool {
	switch r {
	case RoleAuthor, RoleEditor, RoleCaretaker, RoleCommentator, RoleMuhashi, RolePublisher:
		return true
	default:
		return false
	}
}
