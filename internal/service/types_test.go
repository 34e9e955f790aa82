package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
)

func TestRegisterType_VersionsOnReregister(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()

	ct := ts.recipeType(t)
	assert.Equal(t, 1, ct.Version)
	assert.True(t, ct.Active)

	again, err := ts.types.RegisterType(ctx, RegisterTypeRequest{
		Key:    "recipe",
		Name:   "Recipe card",
		Schema: map[string]any{"properties": map[string]any{"servings": map[string]any{"type": "integer"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, ct.ID, again.ID)
	assert.Equal(t, 2, again.Version)
	assert.Equal(t, "Recipe card", again.Name)

	// The new schema no longer requires servings.
	violations, err := ts.types.ValidateProperties(ctx, "recipe", map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestRegisterType_Rejects(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()

	_, err := ts.types.RegisterType(ctx, RegisterTypeRequest{Key: "Bad Key", Name: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.types.RegisterType(ctx, RegisterTypeRequest{Key: "photo", Name: ""})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.types.RegisterType(ctx, RegisterTypeRequest{
		Key:    "photo",
		Name:   "Photo",
		Schema: map[string]any{"type": "string"},
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.types.GetType(ctx, "photo")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestValidateProperties(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	ts.recipeType(t)

	violations, err := ts.types.ValidateProperties(ctx, "recipe", map[string]any{
		"servings":   float64(4),
		"difficulty": "easy",
		"minutes":    45.5,
	})
	require.NoError(t, err)
	assert.Empty(t, violations)

	violations, err = ts.types.ValidateProperties(ctx, "recipe", map[string]any{
		"difficulty": "impossible",
		"minutes":    float64(-1),
	})
	require.NoError(t, err)
	require.Len(t, violations, 3)
	assert.Equal(t, "servings", violations[0].Field)
	assert.Equal(t, "difficulty", violations[1].Field)
	assert.Equal(t, "minutes", violations[2].Field)

	violations, err = ts.types.ValidateProperties(ctx, "recipe", map[string]any{"servings": float64(500)})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "servings", violations[0].Field)

	_, err = ts.types.ValidateProperties(ctx, "unknown", nil)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestRetireType_KeepsEntries(t *testing.T) {
	ts := setupDefault(t)
	ctx := context.Background()
	ts.recipeType(t)
	node := ts.node(t, "Cooking", nil)
	e := ts.entry(t, node, "Ramen")

	retired, err := ts.types.RetireType(ctx, "recipe")
	require.NoError(t, err)
	assert.False(t, retired.Active)

	active, err := ts.types.ListTypes(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := ts.types.ListTypes(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := ts.entries.PeekEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "recipe", got.TypeKey)

	// Re-registering brings it back.
	ct := ts.recipeType(t)
	assert.True(t, ct.Active)
	assert.Equal(t, 2, ct.Version)
}
