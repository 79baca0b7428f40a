package api

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
	"github.com/maktabaapp/maktaba-server/internal/service"
)

func searchTitles(res *service.SearchResult) []string {
	out := make([]string, len(res.Books))
	for i, b := range res.Books {
		out[i] = b.Title
	}
	return out
}

func TestSearchBooks_SortsShelvesNumericFirst(t *testing.T) {
	ts := setupTestServer(t)

	for _, shelf := range []string{"أ", "10", "2"} {
		ts.createBook(t, map[string]any{"title": "shelf " + shelf, "shelf_number": shelf})
	}

	resp := ts.api.Get("/api/v1/books/search")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	res := decodeData[*service.SearchResult](t, resp)
	assert.Equal(t, []string{"shelf 2", "shelf 10", "shelf أ"}, searchTitles(res))

	res = decodeData[*service.SearchResult](t, ts.api.Get("/api/v1/books/search?sort=desc"))
	assert.Equal(t, []string{"shelf 10", "shelf 2", "shelf أ"}, searchTitles(res))
}

func TestSearchBooks_Pagination(t *testing.T) {
	ts := setupTestServer(t)

	for i := range 45 {
		ts.createBook(t, map[string]any{
			"title":       fmt.Sprintf("book %02d", i),
			"book_number": fmt.Sprint(i + 1),
		})
	}

	var sizes []int
	for page := 1; page <= 3; page++ {
		res := decodeData[*service.SearchResult](t, ts.api.Get(fmt.Sprintf("/api/v1/books/search?page=%d&page_size=20", page)))
		assert.Equal(t, 45, res.TotalBooks)
		assert.Equal(t, 45, res.FilteredCount)
		assert.Equal(t, 3, res.TotalPages)
		assert.Equal(t, page, res.Page)
		sizes = append(sizes, len(res.Books))
	}
	assert.Equal(t, []int{20, 20, 5}, sizes)
}

func TestSearchBooks_SingleFieldAndAggregates(t *testing.T) {
	ts := setupTestServer(t)

	ts.createBook(t, map[string]any{"title": "صحيح البخاري", "authors": "البخاري", "publishers": "دار طوق النجاة"})
	ts.createBook(t, map[string]any{"title": "الأدب المفرد", "authors": "البخاري", "publishers": "دار البشائر"})
	ts.createBook(t, map[string]any{"title": "صحيح مسلم", "authors": "مسلم"})

	q := url.Values{"field": {"authors"}, "q": {"البخارى"}}
	res := decodeData[*service.SearchResult](t, ts.api.Get("/api/v1/books/search?"+q.Encode()))

	assert.Equal(t, 3, res.TotalBooks)
	assert.Equal(t, 2, res.FilteredCount)
	assert.Equal(t, 1, res.UniqueAuthors)
	assert.Equal(t, 2, res.UniquePublishers)
}

func TestSearchBooks_Advanced(t *testing.T) {
	ts := setupTestServer(t)

	ts.createBook(t, map[string]any{"title": "الأم", "authors": "الشافعي", "shelf_number": "4"})
	ts.createBook(t, map[string]any{"title": "الرسالة", "authors": "الشافعي", "shelf_number": "5"})

	filters := `[{"field":"authors","value":"الشافعي"},{"field":"shelf_number","value":"5"}]`
	q := url.Values{"field": {"advanced"}, "q": {filters}}
	res := decodeData[*service.SearchResult](t, ts.api.Get("/api/v1/books/search?"+q.Encode()))
	assert.Equal(t, []string{"الرسالة"}, searchTitles(res))

	q = url.Values{"field": {"advanced"}, "q": {"{not json"}}
	res = decodeData[*service.SearchResult](t, ts.api.Get("/api/v1/books/search?"+q.Encode()))
	assert.Equal(t, 2, res.FilteredCount, "malformed filters match everything")
}

func TestSearchBooks_InvalidParameters(t *testing.T) {
	ts := setupTestServer(t)

	for _, query := range []string{"field=colour&q=red", "sort=sideways"} {
		t.Run(query, func(t *testing.T) {
			resp := ts.api.Get("/api/v1/books/search?" + query)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			assert.Equal(t, string(domainerrors.CodeValidation), decodeError(t, resp).Code)
		})
	}
}
