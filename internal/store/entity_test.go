package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktabaapp/maktaba-server/internal/store"
)

type testEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

func newTestEntity(s *store.Store) *store.Entity[testEntity] {
	return store.NewEntity[testEntity](s, "test:").
		WithIndex("code", func(e *testEntity) []string {
			if e.Code == "" {
				return nil
			}
			return []string{e.Code}
		})
}

func TestEntity_CreateAndGet(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	require.NoError(t, entity.Create(ctx, "1", &testEntity{ID: "1", Name: "الأم", Code: "a"}))

	got, err := entity.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "الأم", got.Name)

	byCode, err := entity.GetByIndex(ctx, "code", "a")
	require.NoError(t, err)
	assert.Equal(t, "1", byCode.ID)
}

func TestEntity_Create_AlreadyExists(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	require.NoError(t, entity.Create(ctx, "1", &testEntity{ID: "1", Code: "a"}))

	err := entity.Create(ctx, "1", &testEntity{ID: "1", Code: "b"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	err = entity.Create(ctx, "2", &testEntity{ID: "2", Code: "a"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists, "unique index")
}

func TestEntity_Get_NotFound(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	_, err := entity.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = entity.GetByIndex(context.Background(), "code", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Mutate_MovesIndex(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	require.NoError(t, entity.Create(ctx, "1", &testEntity{ID: "1", Code: "old"}))
	require.NoError(t, entity.Mutate(ctx, "1", func(e *testEntity) error {
		e.Code = "new"
		return nil
	}))

	_, err := entity.GetByIndex(ctx, "code", "old")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := entity.GetByIndex(ctx, "code", "new")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	// The freed key can be claimed by another entity.
	require.NoError(t, entity.Create(ctx, "2", &testEntity{ID: "2", Code: "old"}))
}

func TestEntity_Mutate_IndexConflict(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	require.NoError(t, entity.Create(ctx, "1", &testEntity{ID: "1", Code: "a"}))
	require.NoError(t, entity.Create(ctx, "2", &testEntity{ID: "2", Code: "b"}))

	err := entity.Mutate(ctx, "2", func(e *testEntity) error {
		e.Code = "a"
		return nil
	})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := entity.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Code, "failed mutation leaves entity untouched")
}

func TestEntity_Mutate_NotFound(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	err := entity.Mutate(context.Background(), "missing", func(*testEntity) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_MutateMany(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	for i := range 5 {
		id := fmt.Sprint(i)
		require.NoError(t, entity.Create(ctx, id, &testEntity{ID: id, Name: "x"}))
	}

	matched, modified, err := entity.MutateMany(ctx, []string{"0", "1", "2", "missing"}, func(e *testEntity) (bool, error) {
		if e.ID == "0" {
			return false, nil
		}
		e.Name = "y"
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, matched)
	assert.Equal(t, 2, modified)

	got, err := entity.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "y", got.Name)

	untouched, err := entity.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "x", untouched.Name)
}

func TestEntity_DeleteIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	require.NoError(t, entity.Create(ctx, "1", &testEntity{ID: "1", Code: "a"}))
	require.NoError(t, entity.Delete(ctx, "1"))
	require.NoError(t, entity.Delete(ctx, "1"))

	exists, err := entity.Exists(ctx, "1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = entity.GetByIndex(ctx, "code", "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_ListCountGetMany(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	for i := range 10 {
		id := fmt.Sprintf("%02d", i)
		require.NoError(t, entity.Create(ctx, id, &testEntity{ID: id, Code: "c" + id}))
	}

	count, err := entity.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count, "index keys are not counted")

	all, err := entity.Collect(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 10)
	assert.Equal(t, "00", all[0].ID)

	even, err := entity.Collect(ctx, func(e *testEntity) bool { return e.ID[1]%2 == 0 })
	require.NoError(t, err)
	assert.Len(t, even, 5)

	many, err := entity.GetMany(ctx, []string{"01", "05", "01", "nope"})
	require.NoError(t, err)
	assert.Len(t, many, 2)
}

func TestEntity_List_StopsEarly(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	for i := range 5 {
		id := fmt.Sprint(i)
		require.NoError(t, entity.Create(ctx, id, &testEntity{ID: id}))
	}

	seen := 0
	for _, err := range entity.List(ctx) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestEntity_ConcurrentCreateSameIndex(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprint(i)
			errs[i] = entity.Create(ctx, id, &testEntity{ID: id, Code: "same"})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, isAlreadyExistsOrConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func isAlreadyExistsOrConflict(err error) bool {
	return errors.Is(err, store.ErrAlreadyExists) || errors.Is(err, store.ErrConflict)
}
