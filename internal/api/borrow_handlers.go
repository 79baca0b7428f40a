package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/service"
)

func (s *Server) registerBorrowRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "borrowBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/borrows",
		Summary:       "Borrow book",
		Description:   "Lends a book to the acting user. A book can be out on one loan at a time.",
		Tags:          []string{"Borrows"},
		DefaultStatus: http.StatusCreated,
	}, s.handleBorrowBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/borrows/{id}/return",
		Summary:     "Return book",
		Description: "Closes a loan",
		Tags:        []string{"Borrows"},
	}, s.handleReturnBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listActiveBorrows",
		Method:      http.MethodGet,
		Path:        "/api/v1/borrows/active",
		Summary:     "List active borrows",
		Description: "Returns open loans, soonest due first",
		Tags:        []string{"Borrows"},
	}, s.handleListActiveBorrows)

	huma.Register(s.api, huma.Operation{
		OperationID: "listOverdueBorrows",
		Method:      http.MethodGet,
		Path:        "/api/v1/borrows/overdue",
		Summary:     "List overdue borrows",
		Description: "Returns open loans past their end date, most overdue first",
		Tags:        []string{"Borrows"},
	}, s.handleListOverdueBorrows)
}

// === DTOs ===

// BorrowRequest is the request body for borrowing a book.
type BorrowRequest struct {
	BookID    string     `json:"book_id,omitempty" doc:"Book to borrow"`
	StartDate *time.Time `json:"start_date,omitempty" doc:"Loan start (default: now)"`
	EndDate   *time.Time `json:"end_date,omitempty" doc:"Due date (default: start plus the configured loan period)"`
}

// BorrowInput wraps the borrow request for Huma.
type BorrowInput struct {
	UserID string `header:"X-User-ID" doc:"Borrowing user (required)"`
	Body   BorrowRequest
}

// BorrowOutput wraps a loan for Huma.
type BorrowOutput struct {
	Body *domain.Borrow
}

// ReturnBookInput identifies the loan to close.
type ReturnBookInput struct {
	ID string `path:"id" doc:"Borrow ID"`
}

// BorrowListResponse lists loans joined with book titles.
type BorrowListResponse struct {
	Borrows []*service.BorrowView `json:"borrows" doc:"Loans"`
}

// BorrowListOutput wraps a loan list for Huma.
type BorrowListOutput struct {
	Body BorrowListResponse
}

// === Handlers ===

func (s *Server) handleBorrowBook(ctx context.Context, input *BorrowInput) (*BorrowOutput, error) {
	borrow, err := s.services.Borrow.Borrow(ctx, service.BorrowRequest{
		BookID:    input.Body.BookID,
		UserID:    input.UserID,
		StartDate: input.Body.StartDate,
		EndDate:   input.Body.EndDate,
	})
	if err != nil {
		return nil, err
	}
	return &BorrowOutput{Body: borrow}, nil
}

func (s *Server) handleReturnBook(ctx context.Context, input *ReturnBookInput) (*BorrowOutput, error) {
	borrow, err := s.services.Borrow.Return(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BorrowOutput{Body: borrow}, nil
}

func (s *Server) handleListActiveBorrows(ctx context.Context, _ *struct{}) (*BorrowListOutput, error) {
	borrows, err := s.services.Borrow.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return borrowList(borrows), nil
}

func (s *Server) handleListOverdueBorrows(ctx context.Context, _ *struct{}) (*BorrowListOutput, error) {
	borrows, err := s.services.Borrow.ListOverdue(ctx)
	if err != nil {
		return nil, err
	}
	return borrowList(borrows), nil
}

func borrowList(borrows []*service.BorrowView) *BorrowListOutput {
	if borrows == nil {
		borrows = []*service.BorrowView{}
	}
	return &BorrowListOutput{Body: BorrowListResponse{Borrows: borrows}}
}
