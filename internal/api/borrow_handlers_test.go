package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
)

func TestBorrowBook(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, map[string]any{"title": "رياض الصالحين"})

	resp := ts.api.Post("/api/v1/borrows", "X-User-ID: reader", map[string]any{"book_id": bookID})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	borrow := decodeData[*domain.Borrow](t, resp)
	assert.NotEmpty(t, borrow.ID)
	assert.Equal(t, bookID, borrow.BookID)
	assert.Equal(t, "reader", borrow.UserID)
	assert.False(t, borrow.Returned)
	assert.WithinDuration(t, borrow.StartDate.AddDate(0, 0, 14), borrow.EndDate, time.Second)

	resp = ts.api.Post("/api/v1/borrows", "X-User-ID: other", map[string]any{"book_id": bookID})
	assert.Equal(t, http.StatusConflict, resp.Code, "a book is lent once at a time")
	assert.Equal(t, string(domainerrors.CodeConflict), decodeError(t, resp).Code)

	resp = ts.api.Post("/api/v1/borrows/" + borrow.ID + "/return")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	returned := decodeData[*domain.Borrow](t, resp)
	assert.True(t, returned.Returned)
	assert.NotNil(t, returned.ReturnedDate)

	resp = ts.api.Post("/api/v1/borrows/" + borrow.ID + "/return")
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.api.Post("/api/v1/borrows", "X-User-ID: other", map[string]any{"book_id": bookID})
	assert.Equal(t, http.StatusCreated, resp.Code, "returned books can be lent again")
}

func TestBorrowBook_Errors(t *testing.T) {
	ts := setupTestServer(t)

	bookID := ts.createBook(t, map[string]any{"title": "بلوغ المرام"})

	resp := ts.api.Post("/api/v1/borrows", map[string]any{"book_id": bookID})
	assert.Equal(t, http.StatusBadRequest, resp.Code, "user is required")

	resp = ts.api.Post("/api/v1/borrows", "X-User-ID: reader", map[string]any{"book_id": "book-missing"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	resp = ts.api.Post("/api/v1/borrows", "X-User-ID: reader", map[string]any{
		"book_id":    bookID,
		"start_date": start,
		"end_date":   start.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/borrows/borrow-missing/return")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListBorrows_ActiveAndOverdue(t *testing.T) {
	ts := setupTestServer(t)

	current := ts.createBook(t, map[string]any{"title": "الأذكار"})
	late := ts.createBook(t, map[string]any{"title": "عمدة الأحكام"})

	resp := ts.api.Post("/api/v1/borrows", "X-User-ID: reader", map[string]any{"book_id": current})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	start := time.Now().AddDate(0, 0, -30).UTC()
	resp = ts.api.Post("/api/v1/borrows", "X-User-ID: reader", map[string]any{
		"book_id":    late,
		"start_date": start,
		"end_date":   start.AddDate(0, 0, 7),
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	active := decodeData[BorrowListResponse](t, ts.api.Get("/api/v1/borrows/active"))
	require.Len(t, active.Borrows, 2)
	assert.Equal(t, late, active.Borrows[0].BookID, "soonest due first")
	assert.Equal(t, "عمدة الأحكام", active.Borrows[0].BookTitle)

	overdue := decodeData[BorrowListResponse](t, ts.api.Get("/api/v1/borrows/overdue"))
	require.Len(t, overdue.Borrows, 1)
	assert.Equal(t, late, overdue.Borrows[0].BookID)
}

func TestListBorrows_EmptyIsNotNull(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/borrows/overdue")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"borrows":[]`)
}
