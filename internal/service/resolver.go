package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
	"github.com/maktabaapp/maktaba-server/internal/store"
)

// maxResolveAttempts bounds find-or-create retries after losing a race.
const maxResolveAttempts = 3

// RefStore finds and creates referenced records by natural key.
type RefStore interface {
	FindRef(ctx context.Context, kind domain.EntityKind, role domain.PersonRole, name string) (string, error)
	CreateRef(ctx context.Context, kind domain.EntityKind, role domain.PersonRole, name string) (string, error)
}

// Target names what a reference points at. Role is set only for people.
type Target struct {
	Kind domain.EntityKind `json:"kind"`
	Role domain.PersonRole `json:"role,omitempty"`
}

// Targets for each reference field of a book.
var (
	TargetAuthors      = Target{Kind: domain.KindPerson, Role: domain.RoleAuthor}
	TargetEditors      = Target{Kind: domain.KindPerson, Role: domain.RoleEditor}
	TargetCommentators = Target{Kind: domain.KindPerson, Role: domain.RoleCommentator}
	TargetCaretakers   = Target{Kind: domain.KindPerson, Role: domain.RoleCaretaker}
	TargetMuhashis     = Target{Kind: domain.KindPerson, Role: domain.RoleMuhashi}
	TargetPublishers   = Target{Kind: domain.KindPublisher}
	TargetCategory     = Target{Kind: domain.KindCategory}
	TargetSubject      = Target{Kind: domain.KindSubject}
)

// Validate checks the kind and, for people, the role.
func (t Target) Validate() error {
	if !t.Kind.IsValid() {
		return domainerrors.Validationf("unknown entity kind %q", t.Kind)
	}
	if t.Kind == domain.KindPerson && !t.Role.IsValid() {
		return domainerrors.Validationf("unknown person role %q", t.Role)
	}
	return nil
}

// ResolverService turns entity references into stored IDs.
//
// IDs and objects carrying an ID pass through unchanged and are not checked
// for existence. Names are looked up by their normalized natural key and
// created on first sight.
type ResolverService struct {
	store  RefStore
	logger *slog.Logger
}

// NewResolverService creates a new resolver service.
func NewResolverService(store RefStore, logger *slog.Logger) *ResolverService {
	return &ResolverService{store: store, logger: logger}
}

// Resolve returns the ID for ref, or "" for an empty reference.
func (s *ResolverService) Resolve(ctx context.Context, target Target, ref domain.EntityRef) (string, error) {
	if err := target.Validate(); err != nil {
		return "", err
	}

	switch ref.Kind {
	case domain.RefNone:
		return "", nil
	case domain.RefID, domain.RefObject:
		return ref.ID, nil
	case domain.RefName:
		return s.findOrCreate(ctx, target, ref.Name)
	default:
		return "", domainerrors.Validationf("unsupported reference form %d", ref.Kind)
	}
}

// ResolveAll resolves each reference in order. Empty references are dropped.
func (s *ResolverService) ResolveAll(ctx context.Context, target Target, refs domain.RefList) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for i, ref := range refs {
		resolved, err := s.Resolve(ctx, target, ref)
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", i, err)
		}
		if resolved != "" {
			ids = append(ids, resolved)
		}
	}
	return ids, nil
}

func (s *ResolverService) findOrCreate(ctx context.Context, target Target, name string) (string, error) {
	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		found, err := s.store.FindRef(ctx, target.Kind, target.Role, name)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("find %s: %w", target.Kind, err)
		}

		created, err := s.store.CreateRef(ctx, target.Kind, target.Role, name)
		switch {
		case err == nil:
			return created, nil
		case errors.Is(err, store.ErrInvalidInput):
			return "", domainerrors.Wrapf(err, domainerrors.CodeValidation, "invalid %s name %q", target.Kind, name)
		case errors.Is(err, store.ErrAlreadyExists), errors.Is(err, store.ErrConflict):
			// Someone else created it between our read and write.
			s.logger.Debug("resolve lost create race, re-reading",
				"kind", target.Kind,
				"role", target.Role,
				"attempt", attempt,
			)
		default:
			return "", fmt.Errorf("create %s: %w", target.Kind, err)
		}
	}

	return "", domainerrors.Conflictf("could not resolve %s %q after %d attempts", target.Kind, name, maxResolveAttempts)
}
