package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/maktabaapp/maktaba-server/internal/dto"
	"github.com/maktabaapp/maktaba-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Creates a book. People, publishers, category and subject may be given by ID or by name; unknown names are created.",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book joined with its people, publishers and classification",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Updates the fields present in the body. Reference fields that are present are resolved again.",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Deletes a book that is not currently borrowed",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)
}

// === DTOs ===

// CreateBookRequest is the request body for creating a book.
type CreateBookRequest struct {
	Title        string    `json:"title,omitempty" doc:"Book title"`
	Authors      RefList   `json:"authors,omitempty" doc:"Authors"`
	Editors      RefList   `json:"editors,omitempty" doc:"Editors"`
	Commentators RefList   `json:"commentators,omitempty" doc:"Commentators"`
	Caretakers   RefList   `json:"caretakers,omitempty" doc:"Caretakers"`
	Muhashis     RefList   `json:"muhashis,omitempty" doc:"Annotators (muhashi)"`
	Publishers   RefList   `json:"publishers,omitempty" doc:"Publishers"`
	Category     EntityRef `json:"category,omitempty" doc:"Category (required)"`
	Subject      EntityRef `json:"subject,omitempty" doc:"Subject"`

	RoomNumber  string `json:"room_number,omitempty" doc:"Room"`
	ShelfNumber string `json:"shelf_number,omitempty" doc:"Shelf"`
	WallNumber  string `json:"wall_number,omitempty" doc:"Wall"`
	BookNumber  string `json:"book_number,omitempty" doc:"Position on the shelf"`

	NumberOfVolumes int  `json:"number_of_volumes,omitempty" doc:"Volumes, defaults to 1"`
	NumberOfFolders int  `json:"number_of_folders,omitempty" doc:"Folders, defaults to 1"`
	EditionNumber   *int `json:"edition_number,omitempty" doc:"Edition"`
	PublicationYear *int `json:"publication_year,omitempty" doc:"Year of publication"`
	PageCount       *int `json:"page_count,omitempty" doc:"Pages"`

	ImageURL string `json:"image_url,omitempty" doc:"Cover image URL"`
	Notes    string `json:"notes,omitempty" doc:"Free-form notes"`
}

func (r CreateBookRequest) input() service.BookInput {
	return service.BookInput{
		Title:           r.Title,
		Authors:         r.Authors.Refs(),
		Editors:         r.Editors.Refs(),
		Commentators:    r.Commentators.Refs(),
		Caretakers:      r.Caretakers.Refs(),
		Muhashis:        r.Muhashis.Refs(),
		Publishers:      r.Publishers.Refs(),
		Category:        r.Category.Ref(),
		Subject:         r.Subject.Ref(),
		RoomNumber:      r.RoomNumber,
		ShelfNumber:     r.ShelfNumber,
		WallNumber:      r.WallNumber,
		BookNumber:      r.BookNumber,
		NumberOfVolumes: r.NumberOfVolumes,
		NumberOfFolders: r.NumberOfFolders,
		EditionNumber:   r.EditionNumber,
		PublicationYear: r.PublicationYear,
		PageCount:       r.PageCount,
		ImageURL:        r.ImageURL,
		Notes:           r.Notes,
	}
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user"`
	Body   CreateBookRequest
}

// UpdateBookRequest contains fields that can be updated on a book.
// Only non-nil fields are applied (true PATCH semantics).
type UpdateBookRequest struct {
	Title        *string    `json:"title,omitempty"`
	Authors      *RefList   `json:"authors,omitempty"`
	Editors      *RefList   `json:"editors,omitempty"`
	Commentators *RefList   `json:"commentators,omitempty"`
	Caretakers   *RefList   `json:"caretakers,omitempty"`
	Muhashis     *RefList   `json:"muhashis,omitempty"`
	Publishers   *RefList   `json:"publishers,omitempty"`
	Category     *EntityRef `json:"category,omitempty"`
	Subject      *EntityRef `json:"subject,omitempty" doc:"An empty string clears the subject"`

	RoomNumber  *string `json:"room_number,omitempty"`
	ShelfNumber *string `json:"shelf_number,omitempty"`
	WallNumber  *string `json:"wall_number,omitempty"`
	BookNumber  *string `json:"book_number,omitempty"`

	NumberOfVolumes *int `json:"number_of_volumes,omitempty"`
	NumberOfFolders *int `json:"number_of_folders,omitempty"`
	EditionNumber   *int `json:"edition_number,omitempty"`
	PublicationYear *int `json:"publication_year,omitempty"`
	PageCount       *int `json:"page_count,omitempty"`

	ImageURL *string `json:"image_url,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

func (r UpdateBookRequest) patch() service.BookPatch {
	return service.BookPatch{
		Title:           r.Title,
		Authors:         optionalRefs(r.Authors),
		Editors:         optionalRefs(r.Editors),
		Commentators:    optionalRefs(r.Commentators),
		Caretakers:      optionalRefs(r.Caretakers),
		Muhashis:        optionalRefs(r.Muhashis),
		Publishers:      optionalRefs(r.Publishers),
		Category:        optionalRef(r.Category),
		Subject:         optionalRef(r.Subject),
		RoomNumber:      r.RoomNumber,
		ShelfNumber:     r.ShelfNumber,
		WallNumber:      r.WallNumber,
		BookNumber:      r.BookNumber,
		NumberOfVolumes: r.NumberOfVolumes,
		NumberOfFolders: r.NumberOfFolders,
		EditionNumber:   r.EditionNumber,
		PublicationYear: r.PublicationYear,
		PageCount:       r.PageCount,
		ImageURL:        r.ImageURL,
		Notes:           r.Notes,
	}
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	UserID string `header:"X-User-ID" doc:"Acting user"`
	ID     string `path:"id" doc:"Book ID"`
	Body   UpdateBookRequest
}

// BookIDInput identifies a book.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookOutput wraps a joined book for Huma.
type BookOutput struct {
	Body *dto.Book
}

// === Handlers ===

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Book.CreateBook(ctx, input.Body.input())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("book created via API", "book_id", book.ID, "user_id", input.UserID)
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Book.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Book.UpdateBook(ctx, input.ID, input.Body.patch())
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	if err := s.services.Book.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
