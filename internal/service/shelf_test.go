package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
)

func TestCreateShelf_Defaults(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	node := ts.node(t, "Reading", nil)

	sh, err := ts.shelves.CreateShelf(ctx, CreateShelfRequest{NodeID: node.ID, Name: "To read"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultShelfType, sh.Type)
	assert.Equal(t, domain.ViewGrid, sh.ViewMode)
	assert.Equal(t, "created_at", sh.SortBy)
	assert.Equal(t, "desc", sh.SortOrder)

	_, err = ts.shelves.CreateShelf(ctx, CreateShelfRequest{NodeID: node.ID, Name: "Bad", ViewMode: "carousel"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = ts.shelves.CreateShelf(ctx, CreateShelfRequest{NodeID: 404, Name: "Nowhere"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	updated, err := ts.shelves.UpdateShelf(ctx, sh.ID, UpdateShelfRequest{ViewMode: ptr("compact"), SortOrder: ptr("asc")})
	require.NoError(t, err)
	assert.Equal(t, domain.ViewCompact, updated.ViewMode)
	assert.Equal(t, "asc", updated.SortOrder)
	assert.Equal(t, "To read", updated.Name)
}

func TestShelfItems_PrecedenceAndOrder(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	ts.recipeType(t)
	node := ts.node(t, "Cooking", nil)
	e := ts.entry(t, node, "Shakshuka")

	sh, err := ts.shelves.CreateShelf(ctx, CreateShelfRequest{NodeID: node.ID, Name: "Weeknight"})
	require.NoError(t, err)

	_, err = ts.shelves.AddItem(ctx, sh.ID, AddItemRequest{})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = ts.shelves.AddItem(ctx, sh.ID, AddItemRequest{Title: "x", ExternalURL: "not a url"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = ts.shelves.AddItem(ctx, sh.ID, AddItemRequest{EntryID: ptr(int64(999))})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = ts.shelves.AddItem(ctx, 999, AddItemRequest{Title: "x"})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	internal, err := ts.shelves.AddItem(ctx, sh.ID, AddItemRequest{EntryID: &e.ID, Title: "My shakshuka"})
	require.NoError(t, err)
	assert.True(t, internal.Internal)
	assert.Equal(t, "Shakshuka", internal.DisplayTitle, "entry title wins over the item title")
	assert.Equal(t, 0, internal.Position)

	external, err := ts.shelves.AddItem(ctx, sh.ID, AddItemRequest{
		Title:       "Ottolenghi Simple",
		ExternalURL: "https://example.com/simple",
	})
	require.NoError(t, err)
	assert.False(t, external.Internal)
	assert.Equal(t, "Ottolenghi Simple", external.DisplayTitle)
	assert.Equal(t, 1, external.Position)

	require.NoError(t, ts.shelves.MoveItem(ctx, sh.ID, external.ID, 0))
	require.NoError(t, ts.shelves.MoveItem(ctx, sh.ID, internal.ID, 3))
	assert.ErrorIs(t, ts.shelves.MoveItem(ctx, sh.ID, internal.ID, -1), domainerrors.ErrValidation)

	page, err := ts.shelves.ListItems(ctx, sh.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, external.ID, page.Items[0].ID)
	assert.Equal(t, internal.ID, page.Items[1].ID)

	got, err := ts.shelves.GetShelf(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ItemCount)

	// Deleting the entry removes the shelf item that pointed at it.
	require.NoError(t, ts.entries.DeleteEntry(ctx, e.ID))
	page, err = ts.shelves.ListItems(ctx, sh.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	require.NoError(t, ts.shelves.RemoveItem(ctx, sh.ID, external.ID))
	assert.ErrorIs(t, ts.shelves.RemoveItem(ctx, sh.ID, external.ID), domainerrors.ErrNotFound)

	require.NoError(t, ts.shelves.DeleteShelf(ctx, sh.ID))
	_, err = ts.shelves.GetShelf(ctx, sh.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
