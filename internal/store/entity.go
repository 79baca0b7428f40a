package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for any domain type stored as JSON
// under "prefix+id", with unique secondary indexes under "prefix+idx:name:key".
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a unique secondary index on an entity.
// keyGen may return no keys, in which case the entity is simply not indexed.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:   s,
		prefix:  prefix,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a unique secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

// Create creates a new entity with the given ID.
// Returns ErrAlreadyExists if the ID or any unique index key is taken, and
// ErrConflict if a concurrent transaction touched the same keys.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(e.key(id))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}
		return e.put(txn, id, nil, entity)
	})
	return translateTxnError(err)
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetMany retrieves the entities that exist among ids, keyed by ID.
// Missing IDs are skipped.
func (e *Entity[T]) GetMany(ctx context.Context, ids []string) (map[string]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]*T, len(ids))
	err := e.store.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if _, seen := out[id]; seen || id == "" {
				continue
			}
			entity, err := e.read(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out[id] = entity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether an entity with the ID is stored.
func (e *Entity[T]) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := e.store.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(e.key(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get key: %w", err)
	}
	return true, nil
}

// GetByIndex retrieves an entity by secondary index value.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get index key: %w", err)
		}

		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}

		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Update replaces an existing entity.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	return e.Mutate(ctx, id, func(current *T) error {
		*current = *entity
		return nil
	})
}

// Mutate reads the entity, applies fn and writes the result back in one
// transaction, keeping indexes in step. Returns ErrNotFound if absent and
// ErrConflict if the entity changed underneath.
func (e *Entity[T]) Mutate(ctx context.Context, id string, fn func(*T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		old, err := e.read(txn, id)
		if err != nil {
			return err
		}
		next := *old
		if err := fn(&next); err != nil {
			return err
		}
		return e.put(txn, id, old, &next)
	})
	return translateTxnError(err)
}

// MutateMany applies fn to each entity in ids. fn reports whether it changed
// the entity; unchanged entities are not rewritten and missing IDs are skipped.
//
// Writes share one transaction until badger reports it is too big, at which
// point the transaction is committed and a new one continues. matched and
// modified count only committed work, so on error they describe what was
// persisted before the failure.
func (e *Entity[T]) MutateMany(ctx context.Context, ids []string, fn func(*T) (bool, error)) (matched, modified int, err error) {
	txn := e.store.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	pendingMatched, pendingModified := 0, 0

	apply := func(id string) (bool, bool, error) {
		old, err := e.read(txn, id)
		if errors.Is(err, ErrNotFound) {
			return false, false, nil
		}
		if err != nil {
			return false, false, err
		}
		next := *old
		changed, err := fn(&next)
		if err != nil || !changed {
			return true, false, err
		}
		return true, true, e.put(txn, id, old, &next)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return matched, modified, err
		}

		found, changed, err := apply(id)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return matched, modified, translateTxnError(err)
			}
			matched, modified = matched+pendingMatched, modified+pendingModified
			pendingMatched, pendingModified = 0, 0

			txn = e.store.db.NewTransaction(true)
			found, changed, err = apply(id)
		}
		if err != nil {
			return matched, modified, fmt.Errorf("mutate %s%s: %w", e.prefix, id, err)
		}
		if found {
			pendingMatched++
		}
		if changed {
			pendingModified++
		}
	}

	if err := txn.Commit(); err != nil {
		return matched, modified, translateTxnError(err)
	}
	return matched + pendingMatched, modified + pendingModified, nil
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.store.db.Update(func(txn *badger.Txn) error {
		entity, err := e.read(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		for _, idx := range e.indexes {
			for _, value := range idx.keyGen(entity) {
				if err := txn.Delete(e.indexKey(idx.name, value)); err != nil {
					return fmt.Errorf("failed to delete index key: %w", err)
				}
			}
		}

		if err := txn.Delete(e.key(id)); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		return nil
	})
	return translateTxnError(err)
}

// List returns an iterator over all entities in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				if strings.HasPrefix(string(it.Item().Key()[len(e.prefix):]), "idx:") {
					continue
				}

				var entity T
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				}); err != nil {
					err = fmt.Errorf("failed to unmarshal entity: %w", err)
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// Collect drains List into a slice, keeping entities for which keep returns
// true. A nil keep retains everything.
func (e *Entity[T]) Collect(ctx context.Context, keep func(*T) bool) ([]*T, error) {
	var out []*T
	for entity, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(entity) {
			out = append(out, entity)
		}
	}
	return out, nil
}

// Count returns the number of stored entities without decoding values.
func (e *Entity[T]) Count(ctx context.Context) (int, error) {
	count := 0
	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(e.prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !strings.HasPrefix(string(it.Item().Key()[len(e.prefix):]), "idx:") {
				count++
			}
		}
		return nil
	})
	return count, err
}

// read loads one entity inside a transaction.
func (e *Entity[T]) read(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

// put writes entity and reconciles its index keys against old (nil on create).
func (e *Entity[T]) put(txn *badger.Txn, id string, old, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	for _, idx := range e.indexes {
		oldKeys := make(map[string]bool)
		if old != nil {
			for _, k := range idx.keyGen(old) {
				oldKeys[k] = true
			}
		}
		newKeys := idx.keyGen(entity)

		for _, value := range newKeys {
			if oldKeys[value] {
				delete(oldKeys, value)
				continue
			}
			owner, err := e.indexOwner(txn, idx.name, value)
			if err != nil {
				return err
			}
			if owner == id {
				continue
			}
			if owner != "" {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, value, ErrAlreadyExists)
			}
			if err := txn.Set(e.indexKey(idx.name, value), []byte(id)); err != nil {
				return err
			}
		}

		for value := range oldKeys {
			if err := txn.Delete(e.indexKey(idx.name, value)); err != nil {
				return err
			}
		}
	}

	return txn.Set(e.key(id), data)
}

// indexOwner returns the ID an index key points at, or "" when unset.
// A key already owned by the entity being written is not a conflict, which
// keeps a write retried after ErrTxnTooBig idempotent.
func (e *Entity[T]) indexOwner(txn *badger.Txn, name, value string) (string, error) {
	item, err := txn.Get(e.indexKey(name, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check index key: %w", err)
	}
	var owner string
	err = item.Value(func(val []byte) error {
		owner = string(val)
		return nil
	})
	return owner, err
}

// translateTxnError maps badger's optimistic concurrency failure to ErrConflict.
func translateTxnError(err error) error {
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
