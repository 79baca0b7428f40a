package domain

import "github.com/maktabaapp/maktaba-server/internal/normalize"

// Publisher is a publishing house, deduplicated by normalized title.
type Publisher struct {
	Base
	Title           string `json:"title"`
	NormalizedTitle string `json:"normalized_title"`
}

// SetTitle updates the title and its normalized form together.
func (p *Publisher) SetTitle(title string) {
	p.Title = title
	p.NormalizedTitle = normalize.Text(title)
}

// Category is the top-level classification every book belongs to.
type Category struct {
	Base
	Title           string `json:"title"`
	NormalizedTitle string `json:"normalized_title"`

	// Subjects lists the subjects seen on this category's books. It is a
	// cache rebuilt by RebuildCategorySubjects; book writes never touch it.
	Subjects []CategorySubject `json:"subjects,omitempty"`
}

// CategorySubject is a subject as cached on its category.
type CategorySubject struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	NormalizedTitle string `json:"normalized_title"`
}

// SetTitle updates the title and its normalized form together.
func (c *Category) SetTitle(title string) {
	c.Title = title
	c.NormalizedTitle = normalize.Text(title)
}

// Subject is an optional finer classification.
type Subject struct {
	Base
	Title           string `json:"title"`
	NormalizedTitle string `json:"normalized_title"`
}

// SetTitle updates the title and its normalized form together.
func (s *Subject) SetTitle(title string) {
	s.Title = title
	s.NormalizedTitle = normalize.Text(title)
}
