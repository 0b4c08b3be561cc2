package conversation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(dir, "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreSaveAndLoad(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &Conversation{Title: "debugging ci"}
	require.NoError(t, store.SaveConversation(ctx, c))
	require.NotEmpty(t, c.ID)

	require.NoError(t, store.SaveMessage(ctx, c.ID, Message{Role: RoleUser, Content: "why did CI fail?", Tokens: 5}))
	require.NoError(t, store.SaveMessage(ctx, c.ID, Message{Role: RoleAssistant, Content: "a test assertion failed", Tokens: 6}))

	loaded, err := store.LoadConversation(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "why did CI fail?", loaded.Messages[0].Content)
	assert.Equal(t, 11, loaded.TokenCount)
}

func TestSQLiteStoreSetCurrentIsExclusive(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	a := &Conversation{Title: "a"}
	b := &Conversation{Title: "b"}
	require.NoError(t, store.SaveConversation(ctx, a))
	require.NoError(t, store.SaveConversation(ctx, b))

	require.NoError(t, store.SetCurrent(ctx, a.ID))
	require.NoError(t, store.SetCurrent(ctx, b.ID))

	current, err := store.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, current.ID)
}

func TestSQLiteStoreExportImportRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &Conversation{Title: "roundtrip"}
	require.NoError(t, store.SaveConversation(ctx, c))
	require.NoError(t, store.SaveMessage(ctx, c.ID, Message{Role: RoleUser, Content: "hello", Tokens: 1}))

	data, err := store.ExportConversation(ctx, c.ID)
	require.NoError(t, err)

	imported, err := store.ImportConversation(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, c.ID, imported.ID) // no collision, id preserved
	require.Len(t, imported.Messages, 1)
	assert.Equal(t, "hello", imported.Messages[0].Content)

	// Importing the same export again collides on id and gets a fresh one.
	reimported, err := store.ImportConversation(ctx, data)
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, reimported.ID)
	require.Len(t, reimported.Messages, 1)
	assert.Equal(t, "hello", reimported.Messages[0].Content)
}

func TestSQLiteStoreDeleteCascadesMessages(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	c := &Conversation{Title: "to delete"}
	require.NoError(t, store.SaveConversation(ctx, c))
	require.NoError(t, store.SaveMessage(ctx, c.ID, Message{Role: RoleUser, Content: "x", Tokens: 1}))

	require.NoError(t, store.Delete(ctx, c.ID))
	_, err := store.LoadConversation(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
