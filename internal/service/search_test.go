package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
)

func seedBook(t *testing.T, env *testEnv, in BookInput) string {
	t.Helper()
	if in.Category.IsZero() {
		in.Category = domain.NameRef("عام")
	}
	b, err := env.books.CreateBook(context.Background(), in)
	require.NoError(t, err)
	return b.ID
}

func titles(res *SearchResult) []string {
	out := make([]string, len(res.Books))
	for i, b := range res.Books {
		out[i] = b.Title
	}
	return out
}

func TestSearch_SortsNumericBeforeText(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedBook(t, env, BookInput{Title: "ten", ShelfNumber: "10"})
	seedBook(t, env, BookInput{Title: "alif", ShelfNumber: "أ"})
	seedBook(t, env, BookInput{Title: "two", ShelfNumber: "2"})

	res, err := env.search.Search(ctx, SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "ten", "alif"}, titles(res))

	res, err = env.search.Search(ctx, SearchParams{Sort: SortDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"ten", "two", "alif"}, titles(res), "numbers stay first, order flips within groups")
}

func TestSearch_CompositeAddressKey(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedBook(t, env, BookInput{Title: "r2", RoomNumber: "2", ShelfNumber: "1", BookNumber: "1"})
	seedBook(t, env, BookInput{Title: "r1-s1-b10", RoomNumber: "1", ShelfNumber: "1", BookNumber: "10"})
	seedBook(t, env, BookInput{Title: "r1-s1-b9", RoomNumber: "1", ShelfNumber: "1", BookNumber: "9"})
	seedBook(t, env, BookInput{Title: "r1-s2", RoomNumber: "1", ShelfNumber: "2", BookNumber: "1"})

	res, err := env.search.Search(ctx, SearchParams{Sort: SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1-s1-b9", "r1-s1-b10", "r1-s2", "r2"}, titles(res))
}

func TestSearch_BroadMatchesAcrossFields(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedBook(t, env, BookInput{Title: "الرسالة", Authors: domain.Names("الشافعي")})
	seedBook(t, env, BookInput{Title: "الموطأ", Authors: domain.Names("مالك")})
	seedBook(t, env, BookInput{Title: "الأم", Authors: domain.Names("الشافعي"), Publishers: domain.Names("دار المعرفة")})
	seedBook(t, env, BookInput{Title: "المدونة", PublicationYear: ptr(1994)})

	res, err := env.search.Search(ctx, SearchParams{Query: "شافعي"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilteredCount)
	assert.Equal(t, 4, res.TotalBooks)

	// Diacritics and letter variants in the query fold like stored text.
	res, err = env.search.Search(ctx, SearchParams{Field: FieldAll, Query: "الرِّسالَه"})
	require.NoError(t, err)
	assert.Equal(t, []string{"الرسالة"}, titles(res))

	res, err = env.search.Search(ctx, SearchParams{Query: "1994"})
	require.NoError(t, err)
	assert.Equal(t, []string{"المدونة"}, titles(res))
}

func TestSearch_SingleField(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedBook(t, env, BookInput{Title: "مالك", Authors: domain.Names("ابن عبد البر")})
	seedBook(t, env, BookInput{Title: "التمهيد", Authors: domain.Names("مالك بن أنس")})

	res, err := env.search.Search(ctx, SearchParams{Field: "authors", Query: "مالك"})
	require.NoError(t, err)
	assert.Equal(t, []string{"التمهيد"}, titles(res))

	res, err = env.search.Search(ctx, SearchParams{Field: "title", Query: "مالك"})
	require.NoError(t, err)
	assert.Equal(t, []string{"مالك"}, titles(res))

	_, err = env.search.Search(ctx, SearchParams{Field: "isbn", Query: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSearch_NumericFields(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedBook(t, env, BookInput{Title: "one", NumberOfVolumes: 1})
	seedBook(t, env, BookInput{Title: "twelve", NumberOfVolumes: 12})
	seedBook(t, env, BookInput{Title: "two", NumberOfVolumes: 2})

	res, err := env.search.Search(ctx, SearchParams{Field: "number_of_volumes", Query: "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, titles(res), "numbers match exactly")

	// Non-numbers fall back to substring on the decimal form, which digits
	// alone can never contain.
	res, err = env.search.Search(ctx, SearchParams{Field: "numberOfVolumes", Query: "2x"})
	require.NoError(t, err)
	assert.Empty(t, res.Books)
}

func TestSearch_Advanced(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedBook(t, env, BookInput{Title: "الأم", Authors: domain.Names("الشافعي"), Category: domain.NameRef("فقه")})
	seedBook(t, env, BookInput{Title: "أحكام القرآن", Authors: domain.Names("الشافعي"), Category: domain.NameRef("تفسير")})
	seedBook(t, env, BookInput{Title: "الموطأ", Authors: domain.Names("مالك"), Category: domain.NameRef("فقه")})

	res, err := env.search.Search(ctx, SearchParams{
		Field: FieldAdvanced,
		Query: `[{"field":"authors","value":"الشافعي"},{"field":"category","value":"فقه"},{"field":"","value":"skipped"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"الأم"}, titles(res))

	_, err = env.search.Search(ctx, SearchParams{Field: FieldAdvanced, Query: `[{"field":"isbn","value":"1"}]`})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestSearch_MalformedAdvancedMatchesAll(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedBook(t, env, BookInput{Title: "a"})
	seedBook(t, env, BookInput{Title: "b"})

	res, err := env.search.Search(ctx, SearchParams{Field: FieldAdvanced, Query: `[{"field":`})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilteredCount)
}

func TestSearch_PaginationAndAggregates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for i := range 45 {
		in := BookInput{
			Title:       fmt.Sprintf("book %d", i),
			ShelfNumber: "1",
			BookNumber:  fmt.Sprint(i + 1),
			Authors:     domain.Names(fmt.Sprintf("author %d", i%5)),
		}
		if i%3 == 0 {
			in.Publishers = domain.Names(fmt.Sprintf("publisher %d", i%2))
		}
		seedBook(t, env, in)
	}

	sizes := []int{20, 20, 5}
	for i, want := range sizes {
		res, err := env.search.Search(ctx, SearchParams{Page: i + 1})
		require.NoError(t, err)
		assert.Len(t, res.Books, want)
		assert.Equal(t, 45, res.FilteredCount)
		assert.Equal(t, 45, res.TotalBooks)
		assert.Equal(t, 3, res.TotalPages)
		assert.Equal(t, 5, res.UniqueAuthors)
		assert.Equal(t, 2, res.UniquePublishers)
	}

	res, err := env.search.Search(ctx, SearchParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "book 0", res.Books[0].Title)

	res, err = env.search.Search(ctx, SearchParams{Page: 4})
	require.NoError(t, err)
	assert.Empty(t, res.Books)

	res, err = env.search.Search(ctx, SearchParams{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 200, res.PageSize, "capped at the maximum")
}

func TestSearch_DanglingReferencesNeverMatch(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	bookID := seedBook(t, env, BookInput{Title: "orphan", Authors: domain.RefList{domain.IDRef("person-aaaaaaaaaaaaaaaaaaaaa")}})

	res, err := env.search.Search(ctx, SearchParams{Field: "authors", Query: "a"})
	require.NoError(t, err)
	assert.Zero(t, res.FilteredCount)

	res, err = env.search.Search(ctx, SearchParams{Field: "title", Query: "orphan"})
	require.NoError(t, err)
	require.Len(t, res.Books, 1)
	assert.Equal(t, bookID, res.Books[0].ID)
	assert.Empty(t, res.Books[0].Authors)
	assert.Zero(t, res.UniqueAuthors)
}

func TestSearch_UnknownSort(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.search.Search(context.Background(), SearchParams{Sort: "sideways"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCompareAddressKey(t *testing.T) {
	tests := []struct {
		a, b string
		dir  int
		want int
	}{
		{"2", "10", 1, -1},
		{"2", "10", -1, 1},
		{"10", "أ", 1, -1},
		{"10", "أ", -1, -1},
		{"", "1", 1, 1},
		{"ب", "أ", 1, 1},
		{"3", "3", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, compareAddressKey(newAddressKey(tt.a), newAddressKey(tt.b), tt.dir))
		})
	}
}
