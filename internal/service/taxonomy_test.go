package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
)

func TestCreateNode_Defaults(t *testing.T) {
	ts := setupDefault(t)

	n, err := ts.taxonomy.CreateNode(context.Background(), CreateNodeRequest{Name: "  Café & Kitchen "})
	require.NoError(t, err)

	assert.Equal(t, "Café & Kitchen", n.Name)
	assert.Equal(t, "cafe-and-kitchen", n.Slug)
	assert.Equal(t, domain.DefaultNodeIcon, n.Icon)
	assert.Equal(t, domain.DefaultNodeColor, n.Color)
	assert.True(t, n.Active)
	assert.NotNil(t, n.Config)
}

func TestCreateNode_Errors(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	ts.node(t, "Cooking", nil)

	_, err := ts.taxonomy.CreateNode(ctx, CreateNodeRequest{Name: "Cooking again", Slug: "cooking"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	_, err = ts.taxonomy.CreateNode(ctx, CreateNodeRequest{Name: "Orphan", ParentID: ptr(int64(404))})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.taxonomy.CreateNode(ctx, CreateNodeRequest{Name: "Bad", Slug: "Not A Slug"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.taxonomy.CreateNode(ctx, CreateNodeRequest{Name: "!!!"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.taxonomy.CreateNode(ctx, CreateNodeRequest{Name: "Tinted", Color: "turquoise"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	nodes, err := ts.taxonomy.ListNodes(ctx, true)
	require.NoError(t, err)
	assert.Len(t, nodes, 1, "failed creates must not leave rows")
}

func TestUpdateNode_SlugImmutable(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	n := ts.node(t, "Photography", nil)

	_, err := ts.taxonomy.UpdateNode(ctx, n.ID, UpdateNodeRequest{Slug: ptr("photos")})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	updated, err := ts.taxonomy.UpdateNode(ctx, n.ID, UpdateNodeRequest{
		Slug:  ptr("photography"),
		Name:  ptr("Photo"),
		Color: ptr("#112233"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Photo", updated.Name)
	assert.Equal(t, "photography", updated.Slug)
	assert.Equal(t, "#112233", updated.Color)
}

func TestUpdateNode_RejectsCycles(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	a := ts.node(t, "A", nil)
	b := ts.node(t, "B", a)
	c := ts.node(t, "C", b)

	_, err := ts.taxonomy.MoveNode(ctx, a.ID, &c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.taxonomy.MoveNode(ctx, a.ID, &a.ID)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	moved, err := ts.taxonomy.MoveNode(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.True(t, moved.IsRoot())

	moved, err = ts.taxonomy.MoveNode(ctx, a.ID, &c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, *moved.ParentID)
}

func TestNodeTree_HidesInactiveBranches(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	ts.recipeType(t)

	food := ts.node(t, "Food", nil)
	baking := ts.node(t, "Baking", food)
	bread := ts.node(t, "Bread", baking)
	ts.node(t, "Grilling", food)
	ts.entry(t, baking, "Sourdough")
	ts.entry(t, baking, "Focaccia")
	_ = bread

	tree, err := ts.taxonomy.NodeTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, "Baking", tree[0].Children[0].Name)
	assert.Equal(t, 2, tree[0].Children[0].EntryCount)
	assert.Len(t, tree[0].Children[0].Children, 1)

	_, err = ts.taxonomy.UpdateNode(ctx, baking.ID, UpdateNodeRequest{Active: ptr(false)})
	require.NoError(t, err)

	tree, err = ts.taxonomy.NodeTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Grilling", tree[0].Children[0].Name)

	active, err := ts.taxonomy.ListActiveNodes(ctx)
	require.NoError(t, err)
	for _, n := range active {
		assert.NotEqual(t, baking.ID, n.ID)
	}
}

func TestDeleteSubtree(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	ts.recipeType(t)

	food := ts.node(t, "Food", nil)
	baking := ts.node(t, "Baking", food)
	other := ts.node(t, "Other", nil)
	ts.entry(t, food, "Stock", "basics")
	ts.entry(t, baking, "Sourdough", "bread", "basics")
	kept := ts.entry(t, other, "Tea", "basics")
	_, err := ts.shelves.CreateShelf(ctx, CreateShelfRequest{NodeID: baking.ID, Name: "Try next"})
	require.NoError(t, err)

	res, err := ts.taxonomy.DeleteSubtree(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, &domain.DeleteSubtreeResult{Nodes: 2, Entries: 2, Shelves: 1}, res)

	_, err = ts.taxonomy.GetNode(ctx, baking.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	tags, err := ts.tags.ListTags(ctx, 0)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "basics", tags[0].Name)
	assert.Equal(t, 1, tags[0].UsageCount)

	got, err := ts.entries.PeekEntry(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tea", got.Title)

	results, err := ts.search.Search(ctx, SearchRequest{Query: "sourdough"})
	require.NoError(t, err)
	assert.Zero(t, results.Total)

	activity, err := ts.activity.List(ctx, domain.ActivityFilter{EntityType: domain.EntityNode, EntityID: food.ID})
	require.NoError(t, err)
	require.NotEmpty(t, activity)
	assert.Equal(t, domain.ActionDelete, activity[0].Action)
}
