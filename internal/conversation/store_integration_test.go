package conversation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/internal/conversation"
	"github.com/engramhq/engram/internal/log"
	"github.com/engramhq/engram/internal/testutil"
)

func setupStore(t *testing.T) *conversation.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	store, err := conversation.NewStore(db.Pool, log.NewNop())
	require.NoError(t, err)
	return store
}

func TestStore_CreateAndGet_Integration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	conv, err := store.Create(ctx, userID, "Trip planning")
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", conv.Title)

	got, err := store.Get(ctx, userID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	// Ownership is enforced on read.
	_, err = store.Get(ctx, uuid.New(), conv.ID)
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestStore_AddTurn_OrderAndTagging_Integration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	conv, err := store.Create(ctx, userID, "t")
	require.NoError(t, err)

	memID := uuid.New()
	require.NoError(t, store.AddTurn(ctx, conv.ID, "what did I plan?", "You planned a trip.", []uuid.UUID{memID}))

	msgs, err := store.Messages(ctx, userID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// User turn always precedes the assistant turn.
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.Equal(t, "what did I plan?", msgs[0].Content)
	assert.Equal(t, conversation.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "You planned a trip.", msgs[1].Content)

	// Both turns are tagged with the grounding memories.
	assert.Equal(t, []uuid.UUID{memID}, msgs[0].ContextMemories)
	assert.Equal(t, []uuid.UUID{memID}, msgs[1].ContextMemories)
}

func TestStore_Messages_OwnershipEnforced_Integration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	conv, err := store.Create(ctx, userID, "t")
	require.NoError(t, err)
	require.NoError(t, store.AddTurn(ctx, conv.ID, "hi", "hello", nil))

	_, err = store.Messages(ctx, uuid.New(), conv.ID)
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestStore_ListAndCount_Integration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := store.Create(ctx, userID, "first")
	require.NoError(t, err)
	_, err = store.Create(ctx, userID, "second")
	require.NoError(t, err)
	_, err = store.Create(ctx, uuid.New(), "someone else")
	require.NoError(t, err)

	// Adding a turn bumps updated_at, moving the conversation to the top.
	require.NoError(t, store.AddTurn(ctx, first.ID, "hi", "hello", nil))

	convs, err := store.ListByOwner(ctx, userID)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, first.ID, convs[0].ID)

	count, err := store.CountByOwner(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
