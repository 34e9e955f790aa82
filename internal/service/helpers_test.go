package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store/sqlite"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

type testServices struct {
	store    *sqlite.Store
	activity *ActivityService
	taxonomy *TaxonomyService
	types    *TypeService
	entries  *EntryService
	shelves  *ShelfService
	tags     *TagService
	search   *SearchService
	stats    *StatsService
}

func setupServices(t *testing.T, opts EntryOptions) *testServices {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v := validation.New()
	activity := NewActivityService(st, logger)
	types := NewTypeService(st, v, activity, logger)
	return &testServices{
		store:    st,
		activity: activity,
		taxonomy: NewTaxonomyService(st, v, activity, logger),
		types:    types,
		entries:  NewEntryService(st, types, v, activity, logger, opts),
		shelves:  NewShelfService(st, v, activity, logger),
		tags:     NewTagService(st, logger),
		search:   NewSearchService(st, logger),
		stats:    NewStatsService(st, logger),
	}
}

func setupDefault(t *testing.T) *testServices {
	t.Helper()
	return setupServices(t, EntryOptions{
		SchemaEnforcement: config.EnforcementWarn,
		ViewCountMode:     config.ViewCountBestEffort,
	})
}

func (ts *testServices) node(t *testing.T, name string, parent *domain.Node) *domain.Node {
	t.Helper()
	req := CreateNodeRequest{Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	n, err := ts.taxonomy.CreateNode(context.Background(), req)
	require.NoError(t, err)
	return n
}

func (ts *testServices) recipeType(t *testing.T) *domain.ContentType {
	t.Helper()
	ct, err := ts.types.RegisterType(context.Background(), RegisterTypeRequest{
		Key:  "recipe",
		Name: "Recipe",
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"servings"},
			"properties": map[string]any{
				"servings":   map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
				"difficulty": map[string]any{"type": "string", "enum": []any{"easy", "medium", "hard"}},
				"minutes":    map[string]any{"type": "number", "minimum": 0},
			},
		},
		UIConfig: map[string]any{"icon": "🍳"},
	})
	require.NoError(t, err)
	return ct
}

func (ts *testServices) entry(t *testing.T, node *domain.Node, title string, tags ...string) *domain.Entry {
	t.Helper()
	e, err := ts.entries.CreateEntry(context.Background(), CreateEntryRequest{
		NodeID:      node.ID,
		TypeKey:     "recipe",
		Title:       title,
		Description: title + " notes",
		Tags:        tags,
		Properties:  map[string]any{"servings": float64(2)},
	})
	require.NoError(t, err)
	return e
}

func ptr[T any](v T) *T { return &v }
