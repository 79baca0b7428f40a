package store

import (
	"context"
	"errors"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/normalize"
)

// RenormalizeReport summarizes one entity type's pass.
type RenormalizeReport struct {
	Kind       string   `json:"kind"`
	Scanned    int      `json:"scanned"`
	Updated    int      `json:"updated"`
	Collisions []string `json:"collisions,omitempty"` // IDs whose new key is taken by another record
}

// Renormalize recomputes every stored normalized field from its raw value.
// Run it after the normalization rules change. Records whose new key would
// collide with an existing record are left untouched and reported.
func (s *Store) Renormalize(ctx context.Context) ([]RenormalizeReport, error) {
	passes := []func(context.Context) (RenormalizeReport, error){
		func(ctx context.Context) (RenormalizeReport, error) {
			return renormalize(ctx, s.People, "person",
				func(p *domain.Person) string { return p.ID },
				func(p *domain.Person) bool {
					want := normalize.Text(p.Name)
					if p.NormalizedName == want {
						return false
					}
					p.NormalizedName = want
					return true
				})
		},
		func(ctx context.Context) (RenormalizeReport, error) {
			return renormalize(ctx, s.Publishers, "publisher",
				func(p *domain.Publisher) string { return p.ID },
				func(p *domain.Publisher) bool { return retitle(&p.NormalizedTitle, p.Title) })
		},
		func(ctx context.Context) (RenormalizeReport, error) {
			return renormalize(ctx, s.Categories, "category",
				func(c *domain.Category) string { return c.ID },
				func(c *domain.Category) bool { return retitle(&c.NormalizedTitle, c.Title) })
		},
		func(ctx context.Context) (RenormalizeReport, error) {
			return renormalize(ctx, s.Subjects, "subject",
				func(sub *domain.Subject) string { return sub.ID },
				func(sub *domain.Subject) bool { return retitle(&sub.NormalizedTitle, sub.Title) })
		},
		func(ctx context.Context) (RenormalizeReport, error) {
			return renormalize(ctx, s.Books, "book",
				func(b *domain.Book) string { return b.ID },
				func(b *domain.Book) bool { return retitle(&b.NormalizedTitle, b.Title) })
		},
	}

	reports := make([]RenormalizeReport, 0, len(passes))
	for _, pass := range passes {
		report, err := pass(ctx)
		if err != nil {
			return reports, err
		}
		s.logger.Info("renormalized",
			"kind", report.Kind,
			"scanned", report.Scanned,
			"updated", report.Updated,
			"collisions", len(report.Collisions),
		)
		reports = append(reports, report)
	}
	return reports, nil
}

func retitle(normalized *string, title string) bool {
	want := normalize.Text(title)
	if *normalized == want {
		return false
	}
	*normalized = want
	return true
}

func renormalize[T any](ctx context.Context, e *Entity[T], kind string, idOf func(*T) string, fix func(*T) bool) (RenormalizeReport, error) {
	report := RenormalizeReport{Kind: kind}

	var stale []string
	for entity, err := range e.List(ctx) {
		if err != nil {
			return report, err
		}
		report.Scanned++
		probe := *entity
		if fix(&probe) {
			stale = append(stale, idOf(entity))
		}
	}

	for _, id := range stale {
		err := e.Mutate(ctx, id, func(v *T) error {
			fix(v)
			return nil
		})
		switch {
		case err == nil:
			report.Updated++
		case errors.Is(err, ErrAlreadyExists):
			report.Collisions = append(report.Collisions, id)
		case errors.Is(err, ErrNotFound):
		default:
			return report, err
		}
	}
	return report, nil
}
