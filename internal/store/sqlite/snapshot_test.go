package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// seedFull populates every table that has a write path.
func seedFull(t *testing.T, s *Store) *domain.Entry {
	t.Helper()
	ctx := context.Background()
	root := mustNode(t, s, "Photography", nil)
	child := mustNode(t, s, "Film", root)
	mustType(t, s, "photo")
	e := mustEntry(t, s, child, "photo", "Portra test roll", "film", "35mm")
	e.Properties = domain.Properties{"iso": float64(400)}
	if err := s.UpdateEntry(ctx, e, []string{"properties"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.AddMedia(ctx, &domain.Media{EntryID: e.ID, Filename: "roll.jpg", MimeType: "image/jpeg"}); err != nil {
		t.Fatalf("media: %v", err)
	}
	shelf := &domain.Shelf{NodeID: root.ID, Name: "Best", Type: "general", ViewMode: domain.ViewGrid}
	if err := s.CreateShelf(ctx, shelf); err != nil {
		t.Fatalf("shelf: %v", err)
	}
	if err := s.AddShelfItem(ctx, &domain.ShelfItem{ShelfID: shelf.ID, EntryID: &e.ID}); err != nil {
		t.Fatalf("item: %v", err)
	}
	if err := s.LogActivity(ctx, &domain.Activity{Action: domain.ActionCreate, EntityType: domain.EntityEntry, EntityID: e.ID}); err != nil {
		t.Fatalf("activity: %v", err)
	}
	if _, err := s.SourceID(ctx); err != nil {
		t.Fatalf("source id: %v", err)
	}
	return e
}

func TestExportTables(t *testing.T) {
	s := newTestStore(t)
	seedFull(t, s)

	tables, version, err := s.ExportTables(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("version = %d", version)
	}
	want := map[string]int{
		"hobbies": 2, "hobby_types": 1, "entries": 1, "entry_props": 1, "entry_media": 1,
		"tags": 2, "entry_tags": 2, "shelves": 1, "shelf_items": 1, "activity_logs": 1, "app_settings": 1,
	}
	for _, name := range store.Tables {
		if got := len(tables[name]); got != want[name] {
			t.Errorf("%s: %d rows, want %d", name, got, want[name])
		}
	}
	if title := tables["entries"][0]["title"]; title != "Portra test roll" {
		t.Errorf("entries.title = %v", title)
	}
	if _, ok := tables["hobbies"][0]["parent_id"]; !ok {
		t.Errorf("NULL columns must still be present")
	}
}

func TestReplaceAll_RoundTrip(t *testing.T) {
	src := newTestStore(t)
	e := seedFull(t, src)
	tables, _, err := src.ExportTables(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newTestStore(t)
	other := mustNode(t, dst, "Cooking", nil)
	mustType(t, dst, "recipe")
	mustEntry(t, dst, other, "recipe", "Bread", "baking")

	res, err := dst.ReplaceAll(context.Background(), tables, store.ReplaceOptions{})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if res.Imported["entries"] != 1 || res.Indexed != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	got, err := dst.GetEntry(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get restored entry: %v", err)
	}
	if got.Title != e.Title || got.Properties["iso"] != float64(400) || len(got.Media) != 1 {
		t.Errorf("restored entry differs: %+v", got)
	}
	if _, err := dst.GetNodeBySlug(context.Background(), "cooking"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("pre-restore rows survived: %v", err)
	}

	if ids := searchIDs(t, dst, "portra"); len(ids) != 1 || ids[0] != e.ID {
		t.Errorf("restored entry not searchable: %v", ids)
	}
	if ids := searchIDs(t, dst, "bread"); len(ids) != 0 {
		t.Errorf("replaced entry still searchable: %v", ids)
	}

	// Foreign keys are enforced again afterwards.
	err = dst.CreateEntry(context.Background(), &domain.Entry{NodeID: 999, TypeKey: "photo", Title: "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	var fk int
	dst.db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk)
	if fk != 1 {
		t.Errorf("foreign keys left off")
	}
}

func TestReplaceAll_SchemaMismatchLeavesStoreUntouched(t *testing.T) {
	s := newTestStore(t)
	e := seedFull(t, s)
	tables, _, _ := s.ExportTables(context.Background())

	tables["entries"][0]["mood"] = "happy"
	tables["hobbies"] = nil

	_, err := s.ReplaceAll(context.Background(), tables, store.ReplaceOptions{})
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if _, err := s.GetEntry(context.Background(), e.ID); err != nil {
		t.Errorf("store modified by failed restore: %v", err)
	}
}

func TestReplaceAll_MissingRequiredColumn(t *testing.T) {
	s := newTestStore(t)
	seedFull(t, s)
	tables, _, _ := s.ExportTables(context.Background())
	delete(tables["hobbies"][0], "name")

	_, err := s.ReplaceAll(context.Background(), tables, store.ReplaceOptions{})
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReplaceAll_DanglingReferenceRollsBack(t *testing.T) {
	s := newTestStore(t)
	e := seedFull(t, s)
	tables, _, _ := s.ExportTables(context.Background())
	tables["entries"][0]["hobby_id"] = int64(4242)

	_, err := s.ReplaceAll(context.Background(), tables, store.ReplaceOptions{})
	if !errors.Is(err, store.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	got, err := s.GetEntry(context.Background(), e.ID)
	if err != nil || got.NodeID == 4242 {
		t.Errorf("store modified by failed restore: %v %+v", err, got)
	}
	if ids := searchIDs(t, s, "portra"); len(ids) != 1 {
		t.Errorf("index changed by failed restore: %v", ids)
	}
}

func TestReplaceAll_UnknownAndSelectedTables(t *testing.T) {
	s := newTestStore(t)
	seedFull(t, s)
	tables, _, _ := s.ExportTables(context.Background())
	tables["legacy_widgets"] = []store.Row{{"id": int64(1)}}

	if _, err := s.ReplaceAll(context.Background(), tables, store.ReplaceOptions{Only: []string{"nope"}}); !errors.Is(err, store.ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}

	tables["activity_logs"] = nil
	res, err := s.ReplaceAll(context.Background(), tables, store.ReplaceOptions{Only: []string{"activity_logs"}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "legacy_widgets" {
		t.Errorf("skipped = %v", res.Skipped)
	}
	if len(res.Imported) != 1 {
		t.Errorf("only activity_logs should be touched: %v", res.Imported)
	}
	st, _ := s.Stats(context.Background())
	if st.Entries != 1 {
		t.Errorf("entries touched: %+v", st)
	}
}

func TestReplaceAll_SafetyCopyHoldsPreviousState(t *testing.T) {
	s := newTestStore(t)
	e := seedFull(t, s)
	path := filepath.Join(t.TempDir(), "safety.db")

	empty := map[string][]store.Row{"entries": nil, "entry_props": nil, "entry_media": nil, "entry_tags": nil, "shelf_items": nil}
	if _, err := s.ReplaceAll(context.Background(), empty, store.ReplaceOptions{SafetyCopy: path}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := s.GetEntry(context.Background(), e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("entry survived restore: %v", err)
	}

	tables, version, err := LoadDatabaseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if version != SchemaVersion || len(tables["entries"]) != 1 {
		t.Errorf("unexpected copy: version=%d entries=%d", version, len(tables["entries"]))
	}
}

func TestReplaceAll_NoWriteEscapesSafetyCopy(t *testing.T) {
	s := newTestStore(t)
	seedFull(t, s)
	node := mustNode(t, s, "Darkroom", nil)
	tables, _, err := s.ExportTables(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	path := filepath.Join(t.TempDir(), "safety.db")

	// Every write that succeeds must land either in the safety copy or in
	// the restored store, never in between.
	const writes = 40
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		written []string
	)
	wg.Go(func() {
		for i := range writes {
			title := fmt.Sprintf("Contact sheet %d", i)
			e := &domain.Entry{NodeID: node.ID, TypeKey: "photo", Title: title, Properties: domain.Properties{}}
			if err := s.CreateEntry(context.Background(), e); err != nil {
				continue
			}
			mu.Lock()
			written = append(written, title)
			mu.Unlock()
		}
	})
	if _, err := s.ReplaceAll(context.Background(), tables, store.ReplaceOptions{SafetyCopy: path}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	wg.Wait()

	safety, _, err := LoadDatabaseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	live, _, err := s.ExportTables(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	titles := map[string]bool{}
	for _, rows := range [][]store.Row{safety["entries"], live["entries"]} {
		for _, row := range rows {
			titles[row["title"].(string)] = true
		}
	}
	for _, title := range written {
		if !titles[title] {
			t.Errorf("%q is in neither the safety copy nor the restored store", title)
		}
	}
}

func TestReplaceAll_RecountsTags(t *testing.T) {
	s := newTestStore(t)
	seedFull(t, s)
	tables, _, _ := s.ExportTables(context.Background())

	for _, row := range tables["tags"] {
		row["usage_count"] = int64(7)
	}
	tables["tags"] = append(tables["tags"], store.Row{
		"id": int64(99), "name": "orphan", "slug": "orphan", "color": "", "usage_count": int64(3),
		"created_at": "2026-01-01T00:00:00.000000000Z",
	})
	tables["entries"][0]["tags"] = "Film"
	only := store.ReplaceOptions{Only: []string{"entries", "tags", "entry_tags"}}
	if _, err := s.ReplaceAll(context.Background(), tables, only); err != nil {
		t.Fatalf("replace: %v", err)
	}

	assertTagCountsMatchLinks(t, s)
	if _, err := s.GetTagBySlug(context.Background(), "orphan"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unused tag kept: %v", err)
	}
	got, err := s.GetEntry(context.Background(), tables["entries"][0]["id"].(int64))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Tags) != 2 {
		t.Errorf("tag string not rebuilt from links: %v", got.Tags)
	}
	if n, err := s.RebuildTagCounts(context.Background()); err != nil || n != 0 {
		t.Errorf("restore left %d tags to repair: %v", n, err)
	}
}
