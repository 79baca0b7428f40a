package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
)

func TestCreateBook_ResolvesAndJoins(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	var in BookInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"title": "  مجموع الفتاوى ",
		"authors": "ابن تيمية",
		"editors": [{"name": "عبد الرحمن بن قاسم"}],
		"publishers": ["مجمع الملك فهد"],
		"category": {"title": "فقه"},
		"subject": "فتاوى",
		"room_number": " 1 ",
		"shelf_number": "12",
		"book_number": "3",
		"number_of_volumes": 37,
		"page_count": 500
	}`), &in))

	book, err := env.books.CreateBook(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, "مجموع الفتاوى", book.Title)
	assert.Equal(t, "مجموع الفتاوي", book.NormalizedTitle)
	assert.Equal(t, "1", book.RoomNumber)
	assert.Equal(t, 37, book.NumberOfVolumes)
	assert.Equal(t, 1, book.NumberOfFolders, "defaults to 1")

	require.Len(t, book.Authors, 1)
	assert.Equal(t, "ابن تيمية", book.Authors[0].Name)
	require.Len(t, book.Editors, 1)
	require.Len(t, book.Publishers, 1)
	require.NotNil(t, book.Category)
	assert.Equal(t, "فقه", book.Category.Title)
	require.NotNil(t, book.Subject)

	// The category's subject cache belongs to the rebuild job.
	cat, err := env.store.Categories.Get(ctx, book.CategoryID)
	require.NoError(t, err)
	assert.Empty(t, cat.Subjects)
}

func TestCreateBook_TaaMarbutaResolvesToSamePerson(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	a, err := env.books.CreateBook(ctx, BookInput{
		Title:    "الفتاوى الكبرى",
		Authors:  domain.Names("ابن تيمية"),
		Category: domain.NameRef("فقه"),
	})
	require.NoError(t, err)

	b, err := env.books.CreateBook(ctx, BookInput{
		Title:    "درء تعارض العقل والنقل",
		Authors:  domain.Names("ابن تيميه"),
		Category: domain.NameRef("عقيدة"),
	})
	require.NoError(t, err)

	assert.Equal(t, a.AuthorIDs, b.AuthorIDs)

	n, err := env.store.People.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateBook_Validation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    BookInput
		field string
	}{
		{"blank title", BookInput{Title: "   ", Category: domain.NameRef("فقه")}, "title"},
		{"missing category", BookInput{Title: "كتاب"}, "category"},
		{"edition zero", BookInput{Title: "كتاب", Category: domain.NameRef("فقه"), EditionNumber: ptr(0)}, "edition_number"},
		{"negative pages", BookInput{Title: "كتاب", Category: domain.NameRef("فقه"), PageCount: ptr(-1)}, "page_count"},
		{"negative year", BookInput{Title: "كتاب", Category: domain.NameRef("فقه"), PublicationYear: ptr(-5)}, "publication_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.books.CreateBook(ctx, tt.in)
			require.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Contains(t, domainErr.Details, tt.field)
		})
	}

	n, err := env.store.CountBooks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateBook_ReResolvesOnlyPresentFields(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	created, err := env.books.CreateBook(ctx, BookInput{
		Title:      "الأم",
		Authors:    domain.Names("الشافعي"),
		Publishers: domain.Names("دار المعرفة"),
		Category:   domain.NameRef("فقه"),
	})
	require.NoError(t, err)

	var patch BookPatch
	require.NoError(t, json.Unmarshal([]byte(`{
		"title": "كتاب الأم",
		"editors": ["رفعت فوزي"],
		"shelf_number": " 4 ",
		"edition_number": 2
	}`), &patch))

	updated, err := env.books.UpdateBook(ctx, created.ID, patch)
	require.NoError(t, err)

	assert.Equal(t, "كتاب الام", updated.NormalizedTitle)
	assert.Equal(t, created.AuthorIDs, updated.AuthorIDs, "absent fields stay")
	assert.Equal(t, created.PublisherIDs, updated.PublisherIDs)
	require.Len(t, updated.Editors, 1)
	assert.Equal(t, "رفعت فوزي", updated.Editors[0].Name)
	assert.Equal(t, "4", updated.ShelfNumber)
	require.NotNil(t, updated.EditionNumber)
	assert.Equal(t, 2, *updated.EditionNumber)
}

func TestUpdateBook_ClearsSubject(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	created, err := env.books.CreateBook(ctx, BookInput{
		Title:    "الأم",
		Category: domain.NameRef("فقه"),
		Subject:  domain.NameRef("فقه شافعي"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.SubjectID)

	updated, err := env.books.UpdateBook(ctx, created.ID, BookPatch{Subject: &domain.EntityRef{}})
	require.NoError(t, err)
	assert.Empty(t, updated.SubjectID)
	assert.Nil(t, updated.Subject)
}

func TestUpdateBook_Errors(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.books.UpdateBook(ctx, "book-missing", BookPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	created, err := env.books.CreateBook(ctx, BookInput{Title: "الأم", Category: domain.NameRef("فقه")})
	require.NoError(t, err)

	_, err = env.books.UpdateBook(ctx, created.ID, BookPatch{Title: ptr(" ")})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.books.UpdateBook(ctx, created.ID, BookPatch{Category: &domain.EntityRef{}})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.books.UpdateBook(ctx, created.ID, BookPatch{NumberOfVolumes: ptr(0)})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	got, err := env.books.GetBook(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumberOfVolumes, "failed patch wrote nothing")
}

func TestGetBook_NotFound(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.books.GetBook(context.Background(), "book-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDeleteBook(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	created, err := env.books.CreateBook(ctx, BookInput{Title: "الأم", Category: domain.NameRef("فقه")})
	require.NoError(t, err)

	loan, err := env.borrows.Borrow(ctx, BorrowRequest{BookID: created.ID, UserID: "user-1"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.books.DeleteBook(ctx, created.ID), domainerrors.ErrConflict)

	_, err = env.borrows.Return(ctx, loan.ID)
	require.NoError(t, err)

	require.NoError(t, env.books.DeleteBook(ctx, created.ID))
	assert.ErrorIs(t, env.books.DeleteBook(ctx, created.ID), domainerrors.ErrNotFound)
}
