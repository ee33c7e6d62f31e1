package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/internal/log"
	"github.com/engramhq/engram/internal/memory"
	"github.com/engramhq/engram/internal/testutil"
)

func setupStore(t *testing.T) (*memory.Store, *testutil.TestDBContainer, *testutil.FakeEmbedder) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	embedder := testutil.NewFakeEmbedder(memory.VectorDimension)
	store, err := memory.NewStore(db.Pool, embedder, log.NewNop())
	require.NoError(t, err)

	return store, db, embedder
}

func TestStore_Create_Integration(t *testing.T) {
	store, db, embedder := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	mem, err := store.Create(ctx, userID, memory.CreateInput{
		Title:   "Trip notes",
		Content: "Pack the charger",
		Type:    memory.TypeNote,
	})
	require.NoError(t, err)
	assert.Equal(t, userID, mem.UserID)
	assert.Equal(t, memory.TypeNote, mem.Type)

	// The memory text is what got embedded.
	require.Equal(t, 1, embedder.CallCount())
	assert.Equal(t, "Trip notes Pack the charger", embedder.Calls[0])

	// Exactly one chunk-0 embedding row.
	var count, chunk int
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(MIN(chunk_index), -1) FROM memory_embeddings WHERE memory_id = $1`,
		mem.ID).Scan(&count, &chunk)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, chunk)
}

func TestStore_Create_EmbeddingFailureLeavesNothingUsable(t *testing.T) {
	store, db, embedder := setupStore(t)
	ctx := context.Background()
	embedder.Err = assert.AnError

	_, err := store.Create(ctx, uuid.New(), memory.CreateInput{Title: "t", Content: "c"})
	require.Error(t, err)

	// Embedding fails before the memory insert, so no row is written.
	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM memories`).Scan(&count))
	assert.Zero(t, count)
}

func TestStore_Update_ReplacesEmbedding_Integration(t *testing.T) {
	store, db, _ := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	mem, err := store.Create(ctx, userID, memory.CreateInput{
		Title: "Reading list", Content: "The Go Programming Language",
	})
	require.NoError(t, err)

	var originalEmbeddingID uuid.UUID
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT id FROM memory_embeddings WHERE memory_id = $1`, mem.ID).Scan(&originalEmbeddingID))

	updated, err := store.Update(ctx, userID, mem.ID, memory.CreateInput{
		Title: "Reading list", Content: "The Go Programming Language, chapter 8",
	})
	require.NoError(t, err)

	// The memory keeps its identifier across edits.
	assert.Equal(t, mem.ID, updated.ID)

	// The old chunk-0 row is gone; exactly one new row exists.
	var count int
	var newEmbeddingID uuid.UUID
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(id::text)::uuid FROM memory_embeddings WHERE memory_id = $1`,
		mem.ID).Scan(&count, &newEmbeddingID))
	assert.Equal(t, 1, count)
	assert.NotEqual(t, originalEmbeddingID, newEmbeddingID)
}

func TestStore_Update_NotFound(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, uuid.New(), uuid.New(), memory.CreateInput{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestStore_Delete_CascadesEmbeddings_Integration(t *testing.T) {
	store, db, _ := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	mem, err := store.Create(ctx, userID, memory.CreateInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, userID, mem.ID))

	var count int
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM memory_embeddings WHERE memory_id = $1`, mem.ID).Scan(&count))
	assert.Zero(t, count)

	// Deleting another user's memory is a not-found, not a cross-tenant delete.
	mem2, err := store.Create(ctx, userID, memory.CreateInput{Title: "t2", Content: "c2"})
	require.NoError(t, err)
	assert.ErrorIs(t, store.Delete(ctx, uuid.New(), mem2.ID), memory.ErrNotFound)
}

func TestStore_ListByOwner_NewestFirst_Integration(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := store.Create(ctx, userID, memory.CreateInput{Title: "first", Content: "a"})
	require.NoError(t, err)
	second, err := store.Create(ctx, userID, memory.CreateInput{Title: "second", Content: "b"})
	require.NoError(t, err)

	// Another user's memory must not leak into the list.
	_, err = store.Create(ctx, uuid.New(), memory.CreateInput{Title: "other", Content: "x"})
	require.NoError(t, err)

	got, err := store.ListByOwner(ctx, userID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestStore_SearchSimilar_Integration(t *testing.T) {
	store, _, embedder := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	mem, err := store.Create(ctx, userID, memory.CreateInput{
		Title: "Coffee order", Content: "Flat white, extra shot",
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, userID, memory.CreateInput{
		Title: "Tax deadline", Content: "File by end of April",
	})
	require.NoError(t, err)

	// The fake embedder is deterministic: embedding the same text again
	// produces an identical vector, so similarity is 1.0 for that memory.
	queryVec, err := embedder.Embed(ctx, memory.EmbeddingInput("Coffee order", "Flat white, extra shot"))
	require.NoError(t, err)

	matches, err := store.SearchSimilar(ctx, userID, queryVec, 0.7, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, mem.ID, matches[0].MemoryID)
	assert.Equal(t, "Coffee order", matches[0].Title)
	assert.InDelta(t, 1.0, matches[0].Similarity, 0.01)

	// Tenant isolation: another user sees nothing.
	matches, err = store.SearchSimilar(ctx, uuid.New(), queryVec, 0.7, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_CountByType_Integration(t *testing.T) {
	store, _, _ := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	for _, in := range []memory.CreateInput{
		{Title: "a", Content: "x", Type: memory.TypeNote},
		{Title: "b", Content: "y", Type: memory.TypeNote},
		{Title: "c", Content: "z", Type: memory.TypeGoal},
	} {
		_, err := store.Create(ctx, userID, in)
		require.NoError(t, err)
	}

	counts, err := store.CountByType(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[memory.TypeNote])
	assert.Equal(t, 1, counts[memory.TypeGoal])
}
