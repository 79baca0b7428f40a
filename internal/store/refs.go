package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/id"
	"github.com/maktabaapp/maktaba-server/internal/normalize"
)

// FindRef returns the ID of the record of kind whose natural key matches name
// (and role, for people). Returns ErrNotFound when there is none.
func (s *Store) FindRef(ctx context.Context, kind domain.EntityKind, role domain.PersonRole, name string) (string, error) {
	key := normalize.Text(name)
	if key == "" {
		return "", ErrNotFound
	}

	switch kind {
	case domain.KindPerson:
		p, err := s.People.GetByIndex(ctx, indexNatural, domain.PersonKey(key, role))
		if err != nil {
			return "", err
		}
		return p.ID, nil
	case domain.KindPublisher:
		p, err := s.Publishers.GetByIndex(ctx, indexTitle, key)
		if err != nil {
			return "", err
		}
		return p.ID, nil
	case domain.KindCategory:
		c, err := s.Categories.GetByIndex(ctx, indexTitle, key)
		if err != nil {
			return "", err
		}
		return c.ID, nil
	case domain.KindSubject:
		sub, err := s.Subjects.GetByIndex(ctx, indexTitle, key)
		if err != nil {
			return "", err
		}
		return sub.ID, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q: %w", kind, ErrInvalidInput)
	}
}

// CreateRef stores a new record of kind named name and returns its ID.
//
// Returns ErrAlreadyExists (or ErrConflict) when another writer created the
// same natural key first; callers re-read with FindRef. Names shaped like IDs
// are refused so a dangling reference never becomes a person called
// "person-V1StGXR8_Z5jdHi6B-myT".
func (s *Store) CreateRef(ctx context.Context, kind domain.EntityKind, role domain.PersonRole, name string) (string, error) {
	name = strings.TrimSpace(name)
	if normalize.Text(name) == "" {
		return "", fmt.Errorf("empty name: %w", ErrInvalidInput)
	}
	if id.Valid(name) {
		return "", fmt.Errorf("name %q looks like an id: %w", name, ErrInvalidInput)
	}
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown entity kind %q: %w", kind, ErrInvalidInput)
	}

	newID, err := id.Generate(string(kind))
	if err != nil {
		return "", err
	}

	var base domain.Base
	base.ID = newID
	base.InitTimestamps()

	switch kind {
	case domain.KindPerson:
		if !role.IsValid() {
			return "", fmt.Errorf("unknown role %q: %w", role, ErrInvalidInput)
		}
		p := &domain.Person{Base: base, Role: role}
		p.SetName(name)
		err = s.People.Create(ctx, newID, p)
	case domain.KindPublisher:
		p := &domain.Publisher{Base: base}
		p.SetTitle(name)
		err = s.Publishers.Create(ctx, newID, p)
	case domain.KindCategory:
		c := &domain.Category{Base: base}
		c.SetTitle(name)
		err = s.Categories.Create(ctx, newID, c)
	case domain.KindSubject:
		sub := &domain.Subject{Base: base}
		sub.SetTitle(name)
		err = s.Subjects.Create(ctx, newID, sub)
	}
	if err != nil {
		return "", err
	}

	s.logger.Debug("reference created", "kind", kind, "id", newID, "role", role)
	return newID, nil
}

// RefTitle returns the display title of a category or subject.
// Returns ErrNotFound when the record does not exist.
func (s *Store) RefTitle(ctx context.Context, kind domain.EntityKind, refID string) (string, error) {
	switch kind {
	case domain.KindCategory:
		c, err := s.Categories.Get(ctx, refID)
		if err != nil {
			return "", err
		}
		return c.Title, nil
	case domain.KindSubject:
		sub, err := s.Subjects.Get(ctx, refID)
		if err != nil {
			return "", err
		}
		return sub.Title, nil
	case domain.KindPublisher:
		p, err := s.Publishers.Get(ctx, refID)
		if err != nil {
			return "", err
		}
		return p.Title, nil
	case domain.KindPerson:
		p, err := s.People.Get(ctx, refID)
		if err != nil {
			return "", err
		}
		return p.Name, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q: %w", kind, ErrInvalidInput)
	}
}

// GetPeopleByIDs batch-loads people.
func (s *Store) GetPeopleByIDs(ctx context.Context, ids []string) (map[string]*domain.Person, error) {
	return s.People.GetMany(ctx, ids)
}

// GetPublishersByIDs batch-loads publishers.
func (s *Store) GetPublishersByIDs(ctx context.Context, ids []string) (map[string]*domain.Publisher, error) {
	return s.Publishers.GetMany(ctx, ids)
}

// GetCategoriesByIDs batch-loads categories.
func (s *Store) GetCategoriesByIDs(ctx context.Context, ids []string) (map[string]*domain.Category, error) {
	return s.Categories.GetMany(ctx, ids)
}

// GetSubjectsByIDs batch-loads subjects.
func (s *Store) GetSubjectsByIDs(ctx context.Context, ids []string) (map[string]*domain.Subject, error) {
	return s.Subjects.GetMany(ctx, ids)
}
