package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveLoadListExport(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	c := &Conversation{Title: "notes"}
	require.NoError(t, store.SaveConversation(ctx, c))
	require.NoError(t, store.SaveMessage(ctx, c.ID, Message{Role: RoleUser, Content: "hi", Tokens: 2}))

	loaded, err := store.LoadConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", loaded.Messages[0].Content)

	require.NoError(t, store.SetCurrent(ctx, c.ID))
	current, err := store.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.ID, current.ID)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	data, err := store.ExportConversation(ctx, c.ID)
	require.NoError(t, err)
	imported, err := store.ImportConversation(ctx, data)
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, imported.ID) // collides with the already-saved original
}

func TestFileStoreDeleteClearsCurrentMarker(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	c := &Conversation{Title: "x"}
	require.NoError(t, store.SaveConversation(ctx, c))
	require.NoError(t, store.SetCurrent(ctx, c.ID))
	require.NoError(t, store.Delete(ctx, c.ID))

	_, err = store.LoadCurrent(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
