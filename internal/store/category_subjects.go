package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/maktabaapp/maktaba-server/internal/domain"
)

// CategorySubjectsReport summarizes a rebuild of the category subject caches.
type CategorySubjectsReport struct {
	Categories int `json:"categories"`
	Updated    int `json:"updated"`
}

// errUnchanged aborts a Mutate without writing.
var errUnchanged = errors.New("unchanged")

// RebuildCategorySubjects recomputes every category's subject cache from the
// books that carry both. Subjects are listed by normalized title, and
// subjects that no longer exist are left out.
func (s *Store) RebuildCategorySubjects(ctx context.Context) (CategorySubjectsReport, error) {
	var report CategorySubjectsReport

	pairs := make(map[string]map[string]struct{})
	var subjectIDs []string
	seen := make(map[string]bool)
	for b, err := range s.Books.List(ctx) {
		if err != nil {
			return report, fmt.Errorf("scan books: %w", err)
		}
		if b.CategoryID == "" || b.SubjectID == "" {
			continue
		}
		if pairs[b.CategoryID] == nil {
			pairs[b.CategoryID] = make(map[string]struct{})
		}
		pairs[b.CategoryID][b.SubjectID] = struct{}{}
		if !seen[b.SubjectID] {
			seen[b.SubjectID] = true
			subjectIDs = append(subjectIDs, b.SubjectID)
		}
	}

	subjects, err := s.Subjects.GetMany(ctx, subjectIDs)
	if err != nil {
		return report, fmt.Errorf("fetch subjects: %w", err)
	}

	var categoryIDs []string
	for c, err := range s.Categories.List(ctx) {
		if err != nil {
			return report, fmt.Errorf("scan categories: %w", err)
		}
		categoryIDs = append(categoryIDs, c.ID)
	}
	report.Categories = len(categoryIDs)

	for _, categoryID := range categoryIDs {
		var want []domain.CategorySubject
		for subjectID := range pairs[categoryID] {
			if sub, ok := subjects[subjectID]; ok {
				want = append(want, domain.CategorySubject{
					ID:              sub.ID,
					Title:           sub.Title,
					NormalizedTitle: sub.NormalizedTitle,
				})
			}
		}
		slices.SortFunc(want, func(a, b domain.CategorySubject) int {
			return cmp.Or(cmp.Compare(a.NormalizedTitle, b.NormalizedTitle), cmp.Compare(a.ID, b.ID))
		})

		err := s.Categories.Mutate(ctx, categoryID, func(c *domain.Category) error {
			if slices.Equal(c.Subjects, want) {
				return errUnchanged
			}
			c.Subjects = want
			c.Touch()
			return nil
		})
		switch {
		case err == nil:
			report.Updated++
		case errors.Is(err, errUnchanged), errors.Is(err, ErrNotFound):
		default:
			return report, fmt.Errorf("update category %s: %w", categoryID, err)
		}
	}

	s.logger.Info("category subjects rebuilt",
		"categories", report.Categories,
		"updated", report.Updated,
	)
	return report, nil
}
