package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

func seedPassages(t *testing.T, store *PassageStore) {
	t.Helper()
	err := store.Save(context.Background(), []domain.Passage{
		{ID: "north", Text: "points north", Vector: domain.Vector{0, 1}},
		{ID: "east", Text: "points east", Vector: domain.Vector{1, 0}},
		{ID: "northeast", Text: "points northeast", Vector: domain.Vector{1, 1}},
		{ID: "east-2", Text: "also east", Vector: domain.Vector{2, 0}, Metadata: map[string]any{"dup": true}},
	})
	require.NoError(t, err)
}

func TestPassageStore_SaveAndGet(t *testing.T) {
	store := NewPassageStore()
	ctx := context.Background()
	seedPassages(t, store)

	p, err := store.Get(ctx, "east")
	require.NoError(t, err)
	assert.Equal(t, "points east", p.Text)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = store.Get(ctx, "west")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	dim, err := store.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
}

func TestPassageStore_SaveCopiesVector(t *testing.T) {
	store := NewPassageStore()
	ctx := context.Background()
	vec := domain.Vector{1, 2}

	require.NoError(t, store.Save(ctx, []domain.Passage{{ID: "a", Text: "a", Vector: vec}}))
	vec[0] = 9

	p, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, float32(1), p.Vector[0])
}

func TestPassageStore_Retrieve(t *testing.T) {
	store := NewPassageStore()
	seedPassages(t, store)

	candidates, err := store.Retrieve(context.Background(), domain.Vector{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// east and east-2 tie at 1.0 and keep insertion order
	assert.Equal(t, "east", candidates[0].ID)
	assert.Equal(t, "east-2", candidates[1].ID)
	assert.Equal(t, "northeast", candidates[2].ID)
	assert.Equal(t, "points east", candidates[0].Text())
	assert.Equal(t, true, candidates[1].Metadata["dup"])
}

func TestPassageStore_RetrieveEdgeCases(t *testing.T) {
	store := NewPassageStore()
	ctx := context.Background()

	empty, err := store.Retrieve(ctx, domain.Vector{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	seedPassages(t, store)

	none, err := store.Retrieve(ctx, domain.Vector{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := store.Retrieve(ctx, domain.Vector{1, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = store.Retrieve(ctx, domain.Vector{1, 0, 0}, 2)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestPassageStore_Delete(t *testing.T) {
	store := NewPassageStore()
	ctx := context.Background()
	seedPassages(t, store)

	require.NoError(t, store.Delete(ctx, "north"))
	assert.True(t, errors.Is(store.Delete(ctx, "north"), domain.ErrNotFound))

	count, _ := store.Count(ctx)
	assert.Equal(t, 3, count)

	candidates, err := store.Retrieve(ctx, domain.Vector{0, 1}, 10)
	require.NoError(t, err)
	for _, c := range candidates {
		assert.NotEqual(t, "north", c.ID)
	}
}

func TestPassageStore_ReplaceKeepsPosition(t *testing.T) {
	store := NewPassageStore()
	ctx := context.Background()
	seedPassages(t, store)

	require.NoError(t, store.Save(ctx, []domain.Passage{
		{ID: "east", Text: "replaced", Vector: domain.Vector{1, 0}},
	}))

	candidates, err := store.Retrieve(ctx, domain.Vector{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "east", candidates[0].ID)
	assert.Equal(t, "replaced", candidates[0].Text())

	count, _ := store.Count(ctx)
	assert.Equal(t, 4, count)
	assert.NoError(t, store.Close())
}
