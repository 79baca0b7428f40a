// Package store persists the catalog in BadgerDB.
//
// Every record type is an Entity[T] keyed by "<kind>:<id>". Referenced
// records carry a unique natural-key index so concurrent find-or-create calls
// cannot produce duplicates; the loser of a race sees ErrAlreadyExists or
// ErrConflict and re-reads.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/maktabaapp/maktaba-server/internal/domain"
)

// Index names.
const (
	indexNatural    = "natural"
	indexTitle      = "title"
	indexActiveBook = "active_book"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	People     *Entity[domain.Person]
	Publishers *Entity[domain.Publisher]
	Categories *Entity[domain.Category]
	Subjects   *Entity[domain.Subject]
	Books      *Entity[domain.Book]
	Borrows    *Entity[domain.Borrow]
}

// Options tunes how the database is opened.
type Options struct {
	InMemory bool // tests and dry runs; path is ignored
}

// New opens (or creates) the catalog database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	return Open(path, logger, Options{})
}

// Open opens the catalog database with explicit options.
func Open(path string, logger *slog.Logger, o Options) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil            // Badger's own logging is too chatty
	opts.SyncWrites = !o.InMemory // fsync each commit so a crash cannot tear a bulk write
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store{db: db, logger: logger}
	s.initEntities()

	logger.Info("catalog database opened", "path", path, "in_memory", o.InMemory)
	return s, nil
}

// Ping reports whether the database is open and readable.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("catalog database is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("closing catalog database")
	return s.db.Close()
}

func (s *Store) initEntities() {
	s.People = NewEntity[domain.Person](s, "person:").
		WithIndex(indexNatural, func(p *domain.Person) []string {
			if p.NormalizedName == "" {
				return nil
			}
			return []string{p.NaturalKey()}
		})

	s.Publishers = NewEntity[domain.Publisher](s, "publisher:").
		WithIndex(indexTitle, func(p *domain.Publisher) []string {
			return nonEmpty(p.NormalizedTitle)
		})

	s.Categories = NewEntity[domain.Category](s, "category:").
		WithIndex(indexTitle, func(c *domain.Category) []string {
			return nonEmpty(c.NormalizedTitle)
		})

	s.Subjects = NewEntity[domain.Subject](s, "subject:").
		WithIndex(indexTitle, func(sub *domain.Subject) []string {
			return nonEmpty(sub.NormalizedTitle)
		})

	s.Books = NewEntity[domain.Book](s, "book:")

	// At most one open loan per book.
	s.Borrows = NewEntity[domain.Borrow](s, "borrow:").
		WithIndex(indexActiveBook, func(b *domain.Borrow) []string {
			if !b.IsActive() {
				return nil
			}
			return []string{b.BookID}
		})
}

func nonEmpty(key string) []string {
	if key == "" {
		return nil
	}
	return []string{key}
}
