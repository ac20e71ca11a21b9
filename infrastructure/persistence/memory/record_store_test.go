package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence/memory"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/tests/fixtures"
)

func TestRecordStore_AddGetConflict(t *testing.T) {
	store := memory.NewRecordStore[entities.ContentLink]()
	ctx := context.Background()
	link := fixtures.NewLinkBuilder("a", "b").WithID("l1").Build()

	require.NoError(t, store.Add(ctx, link, "created"))
	err := store.Add(ctx, link, "again")

	assert.True(t, pkgerrors.IsConflict(err))
	got, ok, err := store.Get(ctx, "l1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, link, got)
}

func TestRecordStore_IndexFollowsUpdates(t *testing.T) {
	// Arrange
	store := memory.NewRecordStore[entities.ContentLink]()
	ctx := context.Background()
	link := fixtures.NewLinkBuilder("a", "b").WithID("l1").Build()
	require.NoError(t, store.Add(ctx, link, ""))

	// Act
	link.Type = entities.RelationshipExample
	require.NoError(t, store.Put(ctx, link, "retyped"))

	// Assert
	related, err := store.SearchByIndex(ctx, entities.IndexType, "related", 0)
	require.NoError(t, err)
	assert.Empty(t, related)
	examples, err := store.SearchByIndex(ctx, entities.IndexType, "example", 0)
	require.NoError(t, err)
	assert.Len(t, examples, 1)
}

func TestRecordStore_DeleteAndHistory(t *testing.T) {
	store := memory.NewRecordStore[entities.ContentLink]()
	ctx := context.Background()
	link := fixtures.NewLinkBuilder("a", "b").WithID("l1").Build()
	require.NoError(t, store.Add(ctx, link, "created"))

	deleted, err := store.Delete(ctx, "l1", "removed")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.Delete(ctx, "l1", "removed")
	require.NoError(t, err)
	assert.False(t, deleted)

	history, err := store.History(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "created", history[0].Description)
	assert.NotNil(t, history[0].Record)
	assert.True(t, history[1].Deleted)
	assert.Nil(t, history[1].Record)

	bySource, err := store.SearchByIndex(ctx, entities.IndexSourceID, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, bySource)
}

func TestRecordStore_GetAllLimit(t *testing.T) {
	store := memory.NewRecordStore[entities.ContentLink]()
	ctx := context.Background()
	for _, id := range []string{"x", "y", "z"} {
		require.NoError(t, store.Add(ctx, fixtures.NewLinkBuilder(id, "t").WithID(id).Build(), ""))
	}

	all, err := store.GetAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	two, err := store.GetAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "x", two[0].ID)
	assert.Len(t, two, 2)
}
