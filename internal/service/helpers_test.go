package service

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maktabaapp/maktaba-server/internal/dto"
	"github.com/maktabaapp/maktaba-server/internal/store"
	"github.com/maktabaapp/maktaba-server/internal/store/sqlite"
	"github.com/maktabaapp/maktaba-server/internal/validation"
)

// testEnv wires every service over real stores in a temp directory.
type testEnv struct {
	store    *store.Store
	history  *sqlite.Store
	resolver *ResolverService
	books    *BookService
	search   *SearchService
	bulk     *BulkService
	borrows  *BorrowService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	s, err := store.New(filepath.Join(dir, "catalog"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	h, err := sqlite.Open(filepath.Join(dir, "history.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	resolver := NewResolverService(s, logger)
	enricher := dto.NewEnricher(s)

	return &testEnv{
		store:    s,
		history:  h,
		resolver: resolver,
		books:    NewBookService(s, resolver, enricher, validation.New(), logger),
		search:   NewSearchService(s, enricher, SearchOptions{DefaultPageSize: 20, MaxPageSize: 200}, logger),
		bulk:     NewBulkService(s, h, BulkOptions{MaxRange: 5000, DefaultPageSize: 20, MaxPageSize: 200}, logger),
		borrows:  NewBorrowService(s, 14, logger),
	}
}

func ptr[T any](v T) *T { return &v }
