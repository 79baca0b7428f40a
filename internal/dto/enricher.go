package dto

import (
	"context"
	"fmt"

	"github.com/maktabaapp/maktaba-server/internal/domain"
)

// Store defines the batch lookups the Enricher needs.
// Missing IDs are simply absent from the returned maps.
type Store interface {
	GetPeopleByIDs(ctx context.Context, ids []string) (map[string]*domain.Person, error)
	GetPublishersByIDs(ctx context.Context, ids []string) (map[string]*domain.Publisher, error)
	GetCategoriesByIDs(ctx context.Context, ids []string) (map[string]*domain.Category, error)
	GetSubjectsByIDs(ctx context.Context, ids []string) (map[string]*domain.Subject, error)
}

// Enricher joins books with their referenced records.
//
// Lookups are batched: one fetch per referenced kind regardless of how many
// books are enriched.
type Enricher struct {
	store Store
}

// NewEnricher creates a new enricher.
func NewEnricher(store Store) *Enricher {
	return &Enricher{store: store}
}

// EnrichBook joins a single book.
func (e *Enricher) EnrichBook(ctx context.Context, book *domain.Book) (*Book, error) {
	books, err := e.EnrichBooks(ctx, []*domain.Book{book})
	if err != nil {
		return nil, err
	}
	return books[0], nil
}

// EnrichBooks joins many books, preserving their order.
func (e *Enricher) EnrichBooks(ctx context.Context, books []*domain.Book) ([]*Book, error) {
	if len(books) == 0 {
		return []*Book{}, nil
	}

	var personIDs, publisherIDs, categoryIDs, subjectIDs []string
	seen := make(map[string]bool)
	collect := func(dst *[]string, ids ...string) {
		for _, id := range ids {
			if id != "" && !seen[id] {
				seen[id] = true
				*dst = append(*dst, id)
			}
		}
	}
	for _, b := range books {
		collect(&personIDs, b.AllPersonIDs()...)
		collect(&publisherIDs, b.PublisherIDs...)
		collect(&categoryIDs, b.CategoryID)
		collect(&subjectIDs, b.SubjectID)
	}

	people, err := e.store.GetPeopleByIDs(ctx, personIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch people: %w", err)
	}
	publishers, err := e.store.GetPublishersByIDs(ctx, publisherIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch publishers: %w", err)
	}
	categories, err := e.store.GetCategoriesByIDs(ctx, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	subjects, err := e.store.GetSubjectsByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch subjects: %w", err)
	}

	out := make([]*Book, len(books))
	for i, b := range books {
		d := &Book{
			Book:         b,
			Authors:      personRefs(people, b.AuthorIDs),
			Editors:      personRefs(people, b.EditorIDs),
			Commentators: personRefs(people, b.CommentatorIDs),
			Caretakers:   personRefs(people, b.CaretakerIDs),
			Muhashis:     personRefs(people, b.MuhashiIDs),
			Publishers:   make([]TitleRef, 0, len(b.PublisherIDs)),
		}
		for _, id := range b.PublisherIDs {
			if p, ok := publishers[id]; ok {
				d.Publishers = append(d.Publishers, TitleRef{ID: p.ID, Title: p.Title, NormalizedTitle: p.NormalizedTitle})
			}
		}
		if c, ok := categories[b.CategoryID]; ok {
			d.Category = &TitleRef{ID: c.ID, Title: c.Title, NormalizedTitle: c.NormalizedTitle}
		}
		if s, ok := subjects[b.SubjectID]; ok {
			d.Subject = &TitleRef{ID: s.ID, Title: s.Title, NormalizedTitle: s.NormalizedTitle}
		}
		out[i] = d
	}
	return out, nil
}

func personRefs(people map[string]*domain.Person, ids []string) []PersonRef {
	refs := make([]PersonRef, 0, len(ids))
	for _, id := range ids {
		if p, ok := people[id]; ok {
			refs = append(refs, PersonRef{ID: p.ID, Name: p.Name, NormalizedName: p.NormalizedName})
		}
	}
	return refs
}
