package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/maktabaapp/maktaba-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Filters the catalog, sorts by shelf address and returns one page with catalog-wide aggregates. " +
			"field=advanced takes q as a JSON array of {field, value} filters combined with AND; " +
			"an empty field or field=all matches q against every field; any other field name matches that field only. " +
			"Searchable fields: " + strings.Join(service.SearchFieldNames(), ", ") + ".",
		Tags: []string{"Search"},
	}, s.handleSearchBooks)
}

// SearchBooksInput contains search parameters.
type SearchBooksInput struct {
	Field    string `query:"field" doc:"Search mode or field name"`
	Query    string `query:"q" doc:"Search term, or the JSON filter list in advanced mode"`
	Page     int    `query:"page" doc:"1-indexed page number (default: 1)"`
	PageSize int    `query:"page_size" doc:"Results per page (default: 20, capped at 200)"`
	Sort     string `query:"sort" doc:"Shelf address order: asc or desc (default: asc)"`
}

// SearchBooksOutput wraps search results for Huma.
type SearchBooksOutput struct {
	Body *service.SearchResult
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	result, err := s.services.Search.Search(ctx, service.SearchParams{
		Field:    input.Field,
		Query:    input.Query,
		Page:     input.Page,
		PageSize: input.PageSize,
		Sort:     service.SortDirection(strings.ToLower(strings.TrimSpace(input.Sort))),
	})
	if err != nil {
		return nil, err
	}
	return &SearchBooksOutput{Body: result}, nil
}
