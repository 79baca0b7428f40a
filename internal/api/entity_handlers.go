package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/service"
)

func (s *Server) registerEntityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "resolveEntities",
		Method:      http.MethodPost,
		Path:        "/api/v1/entities/resolve",
		Summary:     "Resolve references",
		Description: "Turns references into stored IDs in input order, creating records for names seen for the first time. Empty references are dropped.",
		Tags:        []string{"Entities"},
	}, s.handleResolveEntities)
}

// ResolveEntitiesRequest is the request body for resolving references.
type ResolveEntitiesRequest struct {
	Kind string  `json:"kind" enum:"person,publisher,category,subject" doc:"Record kind"`
	Role string  `json:"role,omitempty" doc:"Person role (author, editor, commentator, caretaker, muhashi); required for people"`
	Refs RefList `json:"refs,omitempty" doc:"References to resolve"`
}

// ResolveEntitiesInput wraps the resolve request for Huma.
type ResolveEntitiesInput struct {
	Body ResolveEntitiesRequest
}

// ResolveEntitiesResponse lists resolved IDs.
type ResolveEntitiesResponse struct {
	IDs []string `json:"ids" doc:"Resolved IDs in input order"`
}

// ResolveEntitiesOutput wraps the resolve response for Huma.
type ResolveEntitiesOutput struct {
	Body ResolveEntitiesResponse
}

func (s *Server) handleResolveEntities(ctx context.Context, input *ResolveEntitiesInput) (*ResolveEntitiesOutput, error) {
	target := service.Target{
		Kind: domain.EntityKind(input.Body.Kind),
		Role: domain.PersonRole(input.Body.Role),
	}

	ids, err := s.services.Resolver.ResolveAll(ctx, target, input.Body.Refs.Refs())
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}

	return &ResolveEntitiesOutput{Body: ResolveEntitiesResponse{IDs: ids}}, nil
}
