package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/maktabaapp/maktaba-server/internal/domain"
	"github.com/maktabaapp/maktaba-server/internal/dto"
	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
	"github.com/maktabaapp/maktaba-server/internal/normalize"
	"github.com/maktabaapp/maktaba-server/internal/store"
)

// Search modes selected by the field parameter.
const (
	FieldAdvanced = "advanced"
	FieldAll      = "all"
)

// SortDirection orders results by shelf address.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SearchParams describes one search request.
//
// Field selects the mode: "advanced" treats Query as a JSON list of
// {field, value} filters combined with AND; "" or "all" matches Query against
// every searchable field with OR; any other value names a single field.
type SearchParams struct {
	Field    string
	Query    string
	Page     int
	PageSize int
	Sort     SortDirection
}

// SearchResult is one page of books plus catalog-wide aggregates.
type SearchResult struct {
	Books            []*dto.Book `json:"books"`
	TotalBooks       int         `json:"total_books"`
	FilteredCount    int         `json:"filtered_count"`
	UniqueAuthors    int         `json:"unique_authors"`
	UniquePublishers int         `json:"unique_publishers"`
	Page             int         `json:"page"`
	PageSize         int         `json:"page_size"`
	TotalPages       int         `json:"total_pages"`
}

// AdvancedFilter is one condition of an advanced search.
type AdvancedFilter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// BookFinder scans stored books.
type BookFinder interface {
	FindBooks(ctx context.Context, keep func(*domain.Book) bool) ([]*domain.Book, error)
}

// SearchOptions bounds page sizes.
type SearchOptions struct {
	DefaultPageSize int
	MaxPageSize     int
}

// SearchService filters, sorts and pages the catalog.
type SearchService struct {
	books    BookFinder
	enricher *dto.Enricher
	opts     SearchOptions
	logger   *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(books BookFinder, enricher *dto.Enricher, opts SearchOptions, logger *slog.Logger) *SearchService {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	return &SearchService{
		books:    books,
		enricher: enricher,
		opts:     opts,
		logger:   logger,
	}
}

// Search runs a search. Books are joined with their references before
// filtering, so a dangling reference simply never matches.
func (s *SearchService) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	match, err := s.buildMatcher(params)
	if err != nil {
		return nil, err
	}

	switch params.Sort {
	case "", SortAsc, SortDesc:
	default:
		return nil, domainerrors.Validationf("unknown sort direction %q", params.Sort)
	}

	all, err := s.books.FindBooks(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	joined, err := s.enricher.EnrichBooks(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("join books: %w", err)
	}

	filtered := make([]*dto.Book, 0, len(joined))
	authors := make(map[string]struct{})
	publishers := make(map[string]struct{})
	for _, b := range joined {
		if !match(b) {
			continue
		}
		filtered = append(filtered, b)
		for _, a := range b.Authors {
			authors[a.ID] = struct{}{}
		}
		for _, p := range b.Publishers {
			publishers[p.ID] = struct{}{}
		}
	}

	sortByAddress(filtered, params.Sort)

	page := store.NewPage(params.Page, params.PageSize, s.opts.DefaultPageSize, s.opts.MaxPageSize)
	items := store.Slice(filtered, page)

	s.logger.Debug("search completed",
		"field", params.Field,
		"total", len(joined),
		"filtered", len(filtered),
		"page", page.Number,
	)

	return &SearchResult{
		Books:            items,
		TotalBooks:       len(joined),
		FilteredCount:    len(filtered),
		UniqueAuthors:    len(authors),
		UniquePublishers: len(publishers),
		Page:             page.Number,
		PageSize:         page.Size,
		TotalPages:       store.TotalPages(len(filtered), page.Size),
	}, nil
}

type matcher func(*dto.Book) bool

func matchAll(*dto.Book) bool { return true }

func (s *SearchService) buildMatcher(params SearchParams) (matcher, error) {
	field := strings.TrimSpace(params.Field)

	switch field {
	case FieldAdvanced:
		return s.advancedMatcher(params.Query)
	case "", FieldAll:
		return broadMatcher(params.Query), nil
	default:
		f, ok := lookupField(field)
		if !ok {
			return nil, domainerrors.Validationf("unknown search field %q", field)
		}
		if strings.TrimSpace(params.Query) == "" {
			return matchAll, nil
		}
		return f.matcher(params.Query), nil
	}
}

// advancedMatcher ANDs the filters in query. A query that is not valid JSON
// matches everything.
func (s *SearchService) advancedMatcher(query string) (matcher, error) {
	if strings.TrimSpace(query) == "" {
		return matchAll, nil
	}

	var filters []AdvancedFilter
	if err := json.Unmarshal([]byte(query), &filters); err != nil {
		s.logger.Warn("malformed advanced search filter, matching all books", "error", err)
		return matchAll, nil
	}

	var matchers []matcher
	for _, f := range filters {
		if strings.TrimSpace(f.Field) == "" || strings.TrimSpace(f.Value) == "" {
			continue
		}
		sf, ok := lookupField(strings.TrimSpace(f.Field))
		if !ok {
			return nil, domainerrors.Validationf("unknown search field %q", f.Field)
		}
		matchers = append(matchers, sf.matcher(f.Value))
	}

	return func(b *dto.Book) bool {
		for _, m := range matchers {
			if !m(b) {
				return false
			}
		}
		return true
	}, nil
}

// broadMatcher ORs the term across every searchable field.
func broadMatcher(query string) matcher {
	if strings.TrimSpace(query) == "" {
		return matchAll
	}
	matchers := make([]matcher, 0, len(searchFields))
	for _, f := range searchFields {
		matchers = append(matchers, f.matcher(query))
	}
	return func(b *dto.Book) bool {
		for _, m := range matchers {
			if m(b) {
				return true
			}
		}
		return false
	}
}

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldList
	fieldNumber
)

// searchField describes how one book field is matched.
type searchField struct {
	name    string
	aliases []string
	kind    fieldKind
	text    func(*dto.Book) string   // normalized text
	list    func(*dto.Book) []string // normalized element names
	number  func(*dto.Book) *int
}

func (f searchField) matcher(raw string) matcher {
	switch f.kind {
	case fieldList:
		term := normalize.Text(raw)
		return func(b *dto.Book) bool {
			for _, v := range f.list(b) {
				if strings.Contains(v, term) {
					return true
				}
			}
			return false
		}
	case fieldNumber:
		trimmed := strings.TrimSpace(raw)
		if n, err := strconv.Atoi(trimmed); err == nil {
			return func(b *dto.Book) bool {
				v := f.number(b)
				return v != nil && *v == n
			}
		}
		return func(b *dto.Book) bool {
			v := f.number(b)
			return v != nil && strings.Contains(strconv.Itoa(*v), trimmed)
		}
	default:
		term := normalize.Text(raw)
		return func(b *dto.Book) bool {
			return strings.Contains(f.text(b), term)
		}
	}
}

func intPtr(v int) *int { return &v }

func personNames(refs []dto.PersonRef) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.NormalizedName
	}
	return names
}

func titleOf(r *dto.TitleRef) string {
	if r == nil {
		return ""
	}
	return r.NormalizedTitle
}

// searchFields lists every searchable field. Names follow the JSON field
// names; aliases accept the camelCase spellings older clients send.
var searchFields = []searchField{
	{name: "title", kind: fieldText, text: func(b *dto.Book) string { return b.NormalizedTitle }},
	{name: "category", kind: fieldText, text: func(b *dto.Book) string { return titleOf(b.Category) }},
	{name: "subject", kind: fieldText, text: func(b *dto.Book) string { return titleOf(b.Subject) }},
	{name: "room_number", aliases: []string{"roomNumber"}, kind: fieldText,
		text: func(b *dto.Book) string { return normalize.Text(b.RoomNumber) }},
	{name: "shelf_number", aliases: []string{"shelfNumber"}, kind: fieldText,
		text: func(b *dto.Book) string { return normalize.Text(b.ShelfNumber) }},
	{name: "wall_number", aliases: []string{"wallNumber"}, kind: fieldText,
		text: func(b *dto.Book) string { return normalize.Text(b.WallNumber) }},
	{name: "book_number", aliases: []string{"bookNumber"}, kind: fieldText,
		text: func(b *dto.Book) string { return normalize.Text(b.BookNumber) }},
	{name: "authors", kind: fieldList, list: func(b *dto.Book) []string { return personNames(b.Authors) }},
	{name: "editors", kind: fieldList, list: func(b *dto.Book) []string { return personNames(b.Editors) }},
	{name: "commentators", kind: fieldList, list: func(b *dto.Book) []string { return personNames(b.Commentators) }},
	{name: "caretakers", kind: fieldList, list: func(b *dto.Book) []string { return personNames(b.Caretakers) }},
	{name: "muhashis", kind: fieldList, list: func(b *dto.Book) []string { return personNames(b.Muhashis) }},
	{name: "publishers", kind: fieldList, list: func(b *dto.Book) []string {
		titles := make([]string, len(b.Publishers))
		for i, p := range b.Publishers {
			titles[i] = p.NormalizedTitle
		}
		return titles
	}},
	{name: "number_of_volumes", aliases: []string{"numberOfVolumes"}, kind: fieldNumber,
		number: func(b *dto.Book) *int { return intPtr(b.NumberOfVolumes) }},
	{name: "number_of_folders", aliases: []string{"numberOfFolders"}, kind: fieldNumber,
		number: func(b *dto.Book) *int { return intPtr(b.NumberOfFolders) }},
	{name: "edition_number", aliases: []string{"editionNumber"}, kind: fieldNumber,
		number: func(b *dto.Book) *int { return b.EditionNumber }},
	{name: "publication_year", aliases: []string{"publicationYear"}, kind: fieldNumber,
		number: func(b *dto.Book) *int { return b.PublicationYear }},
	{name: "page_count", aliases: []string{"pageCount"}, kind: fieldNumber,
		number: func(b *dto.Book) *int { return b.PageCount }},
}

func lookupField(name string) (searchField, bool) {
	for _, f := range searchFields {
		if f.name == name || slices.Contains(f.aliases, name) {
			return f, true
		}
	}
	return searchField{}, false
}

// SearchFieldNames returns the accepted single-field names.
func SearchFieldNames() []string {
	names := make([]string, len(searchFields))
	for i, f := range searchFields {
		names[i] = f.name
	}
	return names
}

// addressKey is the sort key of one address component. Components that
// parse as numbers sort before those that don't.
type addressKey struct {
	numeric bool
	number  float64
	text    string
}

func newAddressKey(s string) addressKey {
	s = strings.TrimSpace(s)
	if s != "" {
		if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return addressKey{numeric: true, number: n, text: s}
		}
	}
	return addressKey{text: s}
}

// compareAddressKey orders numeric before non-numeric regardless of
// direction; dir flips the order within each group.
func compareAddressKey(a, b addressKey, dir int) int {
	if a.numeric != b.numeric {
		if a.numeric {
			return -1
		}
		return 1
	}
	if a.numeric {
		if c := cmp.Compare(a.number, b.number); c != 0 {
			return c * dir
		}
	}
	return strings.Compare(a.text, b.text) * dir
}

func addressKeys(a domain.Address) [4]addressKey {
	return [4]addressKey{
		newAddressKey(a.RoomNumber),
		newAddressKey(a.ShelfNumber),
		newAddressKey(a.WallNumber),
		newAddressKey(a.BookNumber),
	}
}

// sortByAddress orders books by room, shelf, wall then book number, with
// the book ID as a final tiebreak.
func sortByAddress(books []*dto.Book, direction SortDirection) {
	dir := 1
	if direction == SortDesc {
		dir = -1
	}

	type keyed struct {
		book *dto.Book
		keys [4]addressKey
	}
	rows := make([]keyed, len(books))
	for i, b := range books {
		rows[i] = keyed{book: b, keys: addressKeys(b.Address)}
	}

	slices.SortStableFunc(rows, func(x, y keyed) int {
		for i := range x.keys {
			if c := compareAddressKey(x.keys[i], y.keys[i], dir); c != 0 {
				return c
			}
		}
		return strings.Compare(x.book.ID, y.book.ID)
	})

	for i, r := range rows {
		books[i] = r.book
	}
}
