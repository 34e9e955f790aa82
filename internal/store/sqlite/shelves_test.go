package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

func TestShelfItems_Resolution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	node := mustNode(t, s, "Reading", nil)
	mustType(t, s, "book")
	e := mustEntry(t, s, node, "book", "Dune")

	shelf := &domain.Shelf{NodeID: node.ID, Name: "To read", Type: "reading-list", ViewMode: domain.ViewList,
		SortBy: domain.DefaultShelfSortBy, SortOrder: domain.DefaultShelfSortOrder}
	if err := s.CreateShelf(ctx, shelf); err != nil {
		t.Fatalf("create shelf: %v", err)
	}

	internal := &domain.ShelfItem{ShelfID: shelf.ID, EntryID: &e.ID, Title: "ignored", Position: 1}
	if err := s.AddShelfItem(ctx, internal); err != nil {
		t.Fatalf("add internal: %v", err)
	}
	external := &domain.ShelfItem{ShelfID: shelf.ID, ExternalURL: "https://example.com/hyperion",
		Title: "Hyperion", Subtitle: "Dan Simmons", Position: 0}
	if err := s.AddShelfItem(ctx, external); err != nil {
		t.Fatalf("add external: %v", err)
	}

	page, err := s.ListShelfItems(ctx, shelf.ID, 0, 0)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %+v", page)
	}

	first, second := page.Items[0], page.Items[1]
	if first.ID != external.ID {
		t.Errorf("expected position 0 first, got item %d", first.ID)
	}
	if first.Internal || first.DisplayTitle != "Hyperion" || first.DisplaySubtitle != "Dan Simmons" {
		t.Errorf("external item resolved wrong: %+v", first)
	}
	if !second.Internal || second.DisplayTitle != "Dune" || second.DisplaySubtitle != "Dune description" {
		t.Errorf("internal item should show entry fields: %+v", second)
	}

	got, err := s.GetShelf(ctx, shelf.ID)
	if err != nil {
		t.Fatalf("get shelf: %v", err)
	}
	if got.ItemCount != 2 {
		t.Errorf("item count = %d", got.ItemCount)
	}
}

func TestAddShelfItem_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	node := mustNode(t, s, "Reading", nil)

	missing := int64(42)
	if err := s.AddShelfItem(ctx, &domain.ShelfItem{ShelfID: 7, Title: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing shelf: %v", err)
	}

	shelf := &domain.Shelf{NodeID: node.ID, Name: "S", Type: "general", ViewMode: domain.ViewGrid}
	if err := s.CreateShelf(ctx, shelf); err != nil {
		t.Fatalf("create shelf: %v", err)
	}
	if err := s.AddShelfItem(ctx, &domain.ShelfItem{ShelfID: shelf.ID, EntryID: &missing}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing entry: %v", err)
	}
}

func TestShelf_UpdateMoveRemoveDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	node := mustNode(t, s, "Games", nil)

	shelf := &domain.Shelf{NodeID: node.ID, Name: "Backlog", Type: "general", ViewMode: domain.ViewGrid}
	if err := s.CreateShelf(ctx, shelf); err != nil {
		t.Fatalf("create: %v", err)
	}
	item := &domain.ShelfItem{ShelfID: shelf.ID, Title: "Outer Wilds"}
	if err := s.AddShelfItem(ctx, item); err != nil {
		t.Fatalf("add: %v", err)
	}

	shelf.Name = "Backlog 2026"
	shelf.ViewMode = domain.ViewCompact
	if err := s.UpdateShelf(ctx, shelf); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.MoveShelfItem(ctx, shelf.ID, item.ID, 5); err != nil {
		t.Fatalf("move: %v", err)
	}

	shelves, err := s.ListShelves(ctx, &node.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(shelves) != 1 || shelves[0].Name != "Backlog 2026" || shelves[0].ViewMode != domain.ViewCompact {
		t.Errorf("unexpected shelves %+v", shelves)
	}

	if err := s.RemoveShelfItem(ctx, shelf.ID, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveShelfItem(ctx, shelf.ID, item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second remove: %v", err)
	}

	if err := s.AddShelfItem(ctx, &domain.ShelfItem{ShelfID: shelf.ID, Title: "Tunic"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DeleteShelf(ctx, shelf.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var items int
	s.db.QueryRow(`SELECT COUNT(*) FROM shelf_items`).Scan(&items)
	if items != 0 {
		t.Errorf("items not cascaded: %d", items)
	}
}

func TestActivityLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, action := range []string{domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete} {
		a := &domain.Activity{Action: action, EntityType: domain.EntityEntry, EntityID: 1, Details: map[string]any{"n": i}}
		if err := s.LogActivity(ctx, a); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	if err := s.LogActivity(ctx, &domain.Activity{Action: domain.ActionCreate, EntityType: domain.EntityNode, EntityID: 2}); err != nil {
		t.Fatalf("log: %v", err)
	}

	got, err := s.ListActivity(ctx, domain.ActivityFilter{EntityType: domain.EntityEntry, EntityID: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].Action != domain.ActionDelete {
		t.Errorf("expected newest first, got %+v", got)
	}
	if got[2].Details["n"] != float64(0) {
		t.Errorf("details not decoded: %v", got[2].Details)
	}
}

func TestAddShelfItem_AppendPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	node := mustNode(t, s, "Games", nil)

	shelf := &domain.Shelf{NodeID: node.ID, Name: "Backlog", Type: "general", ViewMode: domain.ViewGrid}
	if err := s.CreateShelf(ctx, shelf); err != nil {
		t.Fatalf("create: %v", err)
	}
	first := &domain.ShelfItem{ShelfID: shelf.ID, Title: "Celeste", Position: domain.PositionAppend}
	if err := s.AddShelfItem(ctx, first); err != nil {
		t.Fatalf("add first: %v", err)
	}
	pinned := &domain.ShelfItem{ShelfID: shelf.ID, Title: "Hades", Position: 7}
	if err := s.AddShelfItem(ctx, pinned); err != nil {
		t.Fatalf("add pinned: %v", err)
	}
	last := &domain.ShelfItem{ShelfID: shelf.ID, Title: "Tunic", Position: domain.PositionAppend}
	if err := s.AddShelfItem(ctx, last); err != nil {
		t.Fatalf("add last: %v", err)
	}

	if first.Position != 0 || last.Position != 8 {
		t.Errorf("positions = %d, %d; want 0, 8", first.Position, last.Position)
	}
}
