package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntity(key wikifuse.EntityKey) *wikifuse.CanonicalEntity {
	return &wikifuse.CanonicalEntity{
		Key: key,
		Fields: map[string]wikifuse.Value{
			"name": wikifuse.Text("Monkey D. Luffy"),
			"crew": wikifuse.List("Straw Hat Pirates", "Straw Hat Grand Fleet"),
		},
		ContributingSources: []string{"https://onepiece.fandom.com/wiki/Monkey_D._Luffy"},
		MergeConflicts: map[string][]wikifuse.Value{
			"name": {wikifuse.Text("Luffy")},
		},
		UpdatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_SaveCanonical(t *testing.T) {
	t.Parallel()

	t.Run("inserts and finds an entity", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewStore(setupTestDB(t))
		ctx := context.Background()
		entity := newEntity("onepiece/monkey-d-luffy")

		require.NoError(t, store.SaveCanonical(ctx, entity))
		assert.NotEmpty(t, entity.ID)

		found, err := store.FindCanonical(ctx, entity.Key)
		require.NoError(t, err)
		assert.Equal(t, entity.ID, found.ID)
		assert.Equal(t, entity.ContributingSources, found.ContributingSources)
		assert.True(t, entity.UpdatedAt.Equal(found.UpdatedAt))
		assert.Equal(t, []string{"Straw Hat Pirates", "Straw Hat Grand Fleet"}, found.Get("crew").List)
		require.Len(t, found.MergeConflicts["name"], 1)
		assert.Equal(t, "Luffy", found.MergeConflicts["name"][0].Text)
	})

	t.Run("replaces the entity and keeps its ID", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewStore(setupTestDB(t))
		ctx := context.Background()

		first := newEntity("onepiece/monkey-d-luffy")
		require.NoError(t, store.SaveCanonical(ctx, first))

		second := newEntity("onepiece/monkey-d-luffy")
		second.Fields["bounty"] = wikifuse.Text("3000000000")
		second.MergeConflicts = nil
		require.NoError(t, store.SaveCanonical(ctx, second))

		assert.Equal(t, first.ID, second.ID)

		found, err := store.FindCanonical(ctx, second.Key)
		require.NoError(t, err)
		assert.Equal(t, "3000000000", found.Get("bounty").Text)
		assert.Empty(t, found.MergeConflicts)

		all, err := store.FindCanonicals(ctx, wikifuse.CanonicalFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("concurrent saves keep one entity per key", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewStore(setupTestDB(t))
		ctx := context.Background()

		var wg sync.WaitGroup
		ids := make([]string, 8)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				entity := newEntity("onepiece/monkey-d-luffy")
				assert.NoError(t, store.SaveCanonical(ctx, entity))
				ids[i] = entity.ID
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("rejects invalid entities", func(t *testing.T) {
		t.Parallel()

		store := sqlite.NewStore(setupTestDB(t))
		entity := newEntity("onepiece/monkey-d-luffy")
		entity.ContributingSources = nil

		err := store.SaveCanonical(context.Background(), entity)

		assert.Equal(t, wikifuse.EINVALID, wikifuse.ErrorCode(err))
	})
}

func TestStore_FindCanonical(t *testing.T) {
	t.Parallel()

	store := sqlite.NewStore(setupTestDB(t))

	_, err := store.FindCanonical(context.Background(), "onepiece/nobody")

	assert.Equal(t, wikifuse.ENOTFOUND, wikifuse.ErrorCode(err))
}

func TestStore_FindCanonicals(t *testing.T) {
	t.Parallel()

	store := sqlite.NewStore(setupTestDB(t))
	ctx := context.Background()
	for _, key := range []wikifuse.EntityKey{"onepiece/nami", "onepiece/monkey-d-luffy", "naruto/naruto-uzumaki", "onepiece/roronoa-zoro"} {
		require.NoError(t, store.SaveCanonical(ctx, newEntity(key)))
	}

	keys := func(entities []*wikifuse.CanonicalEntity) []wikifuse.EntityKey {
		out := make([]wikifuse.EntityKey, len(entities))
		for i, e := range entities {
			out[i] = e.Key
		}
		return out
	}

	t.Run("orders by key", func(t *testing.T) {
		t.Parallel()

		entities, err := store.FindCanonicals(ctx, wikifuse.CanonicalFilter{})

		require.NoError(t, err)
		assert.Equal(t, []wikifuse.EntityKey{"naruto/naruto-uzumaki", "onepiece/monkey-d-luffy", "onepiece/nami", "onepiece/roronoa-zoro"}, keys(entities))
	})

	t.Run("filters by source", func(t *testing.T) {
		t.Parallel()

		source := "Naruto"
		entities, err := store.FindCanonicals(ctx, wikifuse.CanonicalFilter{SourceKey: &source})

		require.NoError(t, err)
		assert.Equal(t, []wikifuse.EntityKey{"naruto/naruto-uzumaki"}, keys(entities))
	})

	t.Run("paginates", func(t *testing.T) {
		t.Parallel()

		entities, err := store.FindCanonicals(ctx, wikifuse.CanonicalFilter{Offset: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []wikifuse.EntityKey{"onepiece/monkey-d-luffy", "onepiece/nami"}, keys(entities))

		entities, err = store.FindCanonicals(ctx, wikifuse.CanonicalFilter{Offset: 3})
		require.NoError(t, err)
		assert.Equal(t, []wikifuse.EntityKey{"onepiece/roronoa-zoro"}, keys(entities))
	})

	t.Run("deletes", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := sqlite.NewStore(db)
		require.NoError(t, s.SaveCanonical(ctx, newEntity("onepiece/nami")))

		require.NoError(t, s.DeleteCanonical(ctx, "onepiece/nami"))
		assert.Equal(t, wikifuse.ENOTFOUND, wikifuse.ErrorCode(s.DeleteCanonical(ctx, "onepiece/nami")))
	})
}
