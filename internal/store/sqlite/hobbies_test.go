package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

func TestCreateNode_DuplicateSlug(t *testing.T) {
	s := newTestStore(t)
	mustNode(t, s, "Photography", nil)

	err := s.CreateNode(context.Background(), &domain.Node{Name: "Photography", Slug: "photography"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateNode_MissingParent(t *testing.T) {
	s := newTestStore(t)
	missing := int64(99)

	err := s.CreateNode(context.Background(), &domain.Node{Name: "Orphan", Slug: "orphan", ParentID: &missing})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetNode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := mustNode(t, s, "Film", nil)

	got, err := s.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Film" || got.Slug != "film" || !got.Active || got.Icon != domain.DefaultNodeIcon {
		t.Errorf("unexpected node %+v", got)
	}

	bySlug, err := s.GetNodeBySlug(ctx, "film")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if bySlug.ID != n.ID {
		t.Errorf("slug lookup returned %d, want %d", bySlug.ID, n.ID)
	}

	if _, err := s.GetNode(ctx, 12345); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := mustNode(t, s, "Photography", nil)
	mustNode(t, s, "Landscape", root)
	mustNode(t, s, "Portrait", root)
	mustNode(t, s, "Cooking", nil)

	roots, err := s.ListChildren(ctx, nil)
	if err != nil {
		t.Fatalf("roots: %v", err)
	}
	if len(roots) != 2 {
		t.Errorf("expected 2 roots, got %d", len(roots))
	}

	children, err := s.ListChildren(ctx, &root.ID)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 2 || children[0].Name != "Landscape" {
		t.Errorf("unexpected children %+v", children)
	}
}

func TestUpdateNode_RejectsCycles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustNode(t, s, "A", nil)
	b := mustNode(t, s, "B", a)
	c := mustNode(t, s, "C", b)

	// Self-parenting.
	a.ParentID = &a.ID
	if err := s.UpdateNode(ctx, a); !errors.Is(err, store.ErrCycle) {
		t.Errorf("self parent: expected ErrCycle, got %v", err)
	}

	// Moving A under its grandchild.
	a.ParentID = &c.ID
	if err := s.UpdateNode(ctx, a); !errors.Is(err, store.ErrCycle) {
		t.Errorf("descendant parent: expected ErrCycle, got %v", err)
	}

	// Moving C to the root is fine.
	c.ParentID = nil
	if err := s.UpdateNode(ctx, c); err != nil {
		t.Fatalf("reparent to root: %v", err)
	}
	got, _ := s.GetNode(ctx, c.ID)
	if got.ParentID != nil {
		t.Errorf("expected C at root, parent=%v", *got.ParentID)
	}
}

func TestDeleteNodeSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustType(t, s, "photo")

	root := mustNode(t, s, "Photography", nil)
	child := mustNode(t, s, "Landscape", root)
	grandchild := mustNode(t, s, "Mountains", child)
	other := mustNode(t, s, "Cooking", nil)

	mustEntry(t, s, root, "photo", "Camera notes", "gear")
	mustEntry(t, s, grandchild, "photo", "Alpine sunrise", "gear", "alps")
	keep := mustEntry(t, s, other, "photo", "Food styling", "gear")

	if err := s.CreateShelf(ctx, &domain.Shelf{NodeID: child.ID, Name: "Best", Type: "general", ViewMode: domain.ViewGrid}); err != nil {
		t.Fatalf("create shelf: %v", err)
	}

	res, err := s.DeleteNodeSubtree(ctx, root.ID)
	if err != nil {
		t.Fatalf("delete subtree: %v", err)
	}
	want := domain.DeleteSubtreeResult{Nodes: 3, Entries: 2, Shelves: 1}
	if *res != want {
		t.Errorf("result = %+v, want %+v", *res, want)
	}

	for _, id := range []int64{root.ID, child.ID, grandchild.ID} {
		if _, err := s.GetNode(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("node %d still present: %v", id, err)
		}
	}

	gear, err := s.GetTagBySlug(ctx, "gear")
	if err != nil {
		t.Fatalf("gear tag: %v", err)
	}
	if gear.UsageCount != 1 {
		t.Errorf("gear usage = %d, want 1", gear.UsageCount)
	}
	if _, err := s.GetTagBySlug(ctx, "alps"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("alps tag should be removed, got %v", err)
	}

	page, err := s.Search(ctx, store.SearchQuery{Text: "alpine", Tokens: []string{"alpine"}, Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("deleted entry still searchable: %+v", page)
	}
	if _, err := s.GetEntry(ctx, keep.ID); err != nil {
		t.Errorf("unrelated entry removed: %v", err)
	}
}

func TestNodeEntryCountsAndDescendants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustType(t, s, "note")
	root := mustNode(t, s, "Music", nil)
	child := mustNode(t, s, "Guitar", root)
	mustEntry(t, s, root, "note", "Scales")
	mustEntry(t, s, child, "note", "Chords")
	archived := mustEntry(t, s, child, "note", "Old tabs")
	if err := s.SetArchived(ctx, archived.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}

	counts, err := s.NodeEntryCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[root.ID] != 1 || counts[child.ID] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}

	ids, err := s.DescendantIDs(ctx, root.ID)
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %v", ids)
	}
}
