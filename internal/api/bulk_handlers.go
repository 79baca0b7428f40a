package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/service"
)

func (s *Server) registerBulkRoutes() {
	limited := huma.Middlewares{s.bulkRateLimit}

	huma.Register(s.api, huma.Operation{
		OperationID: "bulkReclassify",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/bulk/reclassify",
		Summary:     "Bulk reclassify",
		Description: "Sets a new subject or category on every book of a shelf whose book number falls in the given range. " +
			"Previous values are recorded so the change can be undone.",
		Tags:        []string{"Bulk"},
		Middlewares: limited,
	}, s.handleBulkReclassify)

	huma.Register(s.api, huma.Operation{
		OperationID: "undoBulkReclassify",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/bulk/history/{id}/undo",
		Summary:     "Undo bulk reclassify",
		Description: "Restores the values recorded before a bulk reclassification. Each record can be undone once.",
		Tags:        []string{"Bulk"},
		Middlewares: limited,
	}, s.handleUndoBulkReclassify)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBulkHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/bulk/history",
		Summary:     "List bulk history",
		Description: "Returns bulk reclassifications newest first",
		Tags:        []string{"Bulk"},
		Middlewares: limited,
	}, s.handleListBulkHistory)
}

// === DTOs ===

// BulkReclassifyRequest is the request body for a bulk reclassification.
type BulkReclassifyRequest struct {
	UpdateType     string          `json:"update_type,omitempty" doc:"subject or category"`
	RoomNumber     string          `json:"room_number,omitempty" doc:"Restrict to this room"`
	WallNumber     string          `json:"wall_number,omitempty" doc:"Restrict to this wall"`
	ShelfNumber    string          `json:"shelf_number,omitempty" doc:"Shelf (required)"`
	BookNumberFrom BookNumberBound `json:"book_number_from,omitempty" doc:"First book number, inclusive"`
	BookNumberTo   BookNumberBound `json:"book_number_to,omitempty" doc:"Last book number, inclusive"`
	NewValueID     string          `json:"new_value_id,omitempty" doc:"ID of the subject or category to set"`
}

// BulkReclassifyInput wraps the reclassify request for Huma.
type BulkReclassifyInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user (required)"`
	Body   BulkReclassifyRequest
}

// BulkReclassifyOutput wraps the reclassify result for Huma.
type BulkReclassifyOutput struct {
	Body *service.ReclassifyResult
}

// UndoBulkInput identifies the history record to undo.
type UndoBulkInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user"`
	ID     string `path:"id" doc:"History record ID"`
}

// UndoBulkOutput wraps the undo result for Huma.
type UndoBulkOutput struct {
	Body *service.UndoResult
}

// ListBulkHistoryInput contains history listing parameters.
type ListBulkHistoryInput struct {
	UserID   string `header:"X-User-ID" doc:"Acting user"`
	FilterID string `query:"user_id" doc:"Only this user's updates"`
	Page     int    `query:"page" doc:"1-indexed page number (default: 1)"`
	PageSize int    `query:"page_size" doc:"Results per page (default: 20)"`
}

// BulkHistoryResponse is one page of history records.
type BulkHistoryResponse struct {
	History    []*domain.BulkUpdateHistory `json:"history" doc:"History records, newest first"`
	Total      int                         `json:"total" doc:"Matching records"`
	Page       int                         `json:"page" doc:"Page number"`
	PageSize   int                         `json:"page_size" doc:"Page size"`
	TotalPages int                         `json:"total_pages" doc:"Number of pages"`
}

// ListBulkHistoryOutput wraps the history page for Huma.
type ListBulkHistoryOutput struct {
	Body BulkHistoryResponse
}

// === Handlers ===

func (s *Server) handleBulkReclassify(ctx context.Context, input *BulkReclassifyInput) (*BulkReclassifyOutput, error) {
	result, err := s.services.Bulk.Reclassify(ctx, service.ReclassifyRequest{
		UpdateType:     input.Body.UpdateType,
		RoomNumber:     input.Body.RoomNumber,
		WallNumber:     input.Body.WallNumber,
		ShelfNumber:    input.Body.ShelfNumber,
		BookNumberFrom: string(input.Body.BookNumberFrom),
		BookNumberTo:   string(input.Body.BookNumberTo),
		NewValueID:     input.Body.NewValueID,
		UserID:         input.UserID,
	})
	if err != nil {
		return nil, err
	}
	return &BulkReclassifyOutput{Body: result}, nil
}

func (s *Server) handleUndoBulkReclassify(ctx context.Context, input *UndoBulkInput) (*UndoBulkOutput, error) {
	result, err := s.services.Bulk.Undo(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk undo requested via API", "history_id", input.ID, "user_id", input.UserID)
	return &UndoBulkOutput{Body: result}, nil
}

func (s *Server) handleListBulkHistory(ctx context.Context, input *ListBulkHistoryInput) (*ListBulkHistoryOutput, error) {
	page, err := s.services.Bulk.ListHistory(ctx, input.FilterID, input.Page, input.PageSize)
	if err != nil {
		return nil, err
	}

	return &ListBulkHistoryOutput{
		Body: BulkHistoryResponse{
			History:    page.Items,
			Total:      page.Total,
			Page:       page.Page,
			PageSize:   page.PageSize,
			TotalPages: page.TotalPages,
		},
	}, nil
}
