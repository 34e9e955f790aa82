package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustNode(t *testing.T, s *Store, name string, parent *domain.Node) *domain.Node {
	t.Helper()
	n := &domain.Node{
		Name:   name,
		Slug:   slugFor(name),
		Icon:   domain.DefaultNodeIcon,
		Color:  domain.DefaultNodeColor,
		Active: true,
	}
	if parent != nil {
		n.ParentID = &parent.ID
	}
	if err := s.CreateNode(context.Background(), n); err != nil {
		t.Fatalf("create node %q: %v", name, err)
	}
	return n
}

func slugFor(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

func mustType(t *testing.T, s *Store, key string) *domain.ContentType {
	t.Helper()
	ct := &domain.ContentType{Key: key, Name: key, Active: true}
	if err := s.CreateType(context.Background(), ct); err != nil {
		t.Fatalf("create type %q: %v", key, err)
	}
	return ct
}

func mustEntry(t *testing.T, s *Store, node *domain.Node, typeKey, title string, tags ...string) *domain.Entry {
	t.Helper()
	e := &domain.Entry{
		NodeID:      node.ID,
		TypeKey:     typeKey,
		Title:       title,
		Description: title + " description",
		Tags:        tags,
		Properties:  domain.Properties{},
	}
	if err := s.CreateEntry(context.Background(), e); err != nil {
		t.Fatalf("create entry %q: %v", title, err)
	}
	return e
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Foreign keys must be on for every pooled connection, not just the first.
	ctx := context.Background()
	var conns []interface{ Close() error }
	for range 3 {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			t.Fatalf("conn: %v", err)
		}
		conns = append(conns, conn)
		var fk int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("query foreign_keys: %v", err)
		}
		if fk != 1 {
			t.Errorf("expected foreign_keys=1, got %d", fk)
		}
	}
	for _, c := range conns {
		c.Close()
	}

	tables := append([]string{"entry_fts"}, "hobbies", "hobby_types", "entries", "entry_props",
		"entry_media", "tags", "entry_tags", "shelves", "shelf_items", "activity_logs", "app_settings")
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("user_version = %d, want %d", version, SchemaVersion)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mustNode(t, s, "Photography", nil)
	s.Close()

	s, err = Open(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	nodes, err := s.ListNodes(context.Background(), true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("expected 1 node after reopen, got %d", len(nodes))
	}
}

func TestSettings_SourceIDStable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SourceID(ctx)
	if err != nil {
		t.Fatalf("source id: %v", err)
	}
	second, err := s.SourceID(ctx)
	if err != nil {
		t.Fatalf("source id: %v", err)
	}
	if first == "" || first != second {
		t.Errorf("source id not stable: %q vs %q", first, second)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	node := mustNode(t, s, "Cooking", nil)
	mustType(t, s, "recipe")
	e := mustEntry(t, s, node, "recipe", "Bread", "baking")
	mustEntry(t, s, node, "recipe", "Soup", "baking", "winter")
	if err := s.SetArchived(ctx, e.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.Stats{Nodes: 1, Types: 1, Entries: 2, Archived: 1, Tags: 2}
	if *st != want {
		t.Errorf("stats = %+v, want %+v", *st, want)
	}
}

func TestConcurrentWrites(t *testing.T) {
	s := newTestStore(t)
	node := mustNode(t, s, "Music", nil)
	mustType(t, s, "note")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Go(func() {
			e := &domain.Entry{NodeID: node.ID, TypeKey: "note", Title: "Take", Tags: []string{"jam", slugFor(string(rune('a' + i)))}}
			errs <- s.CreateEntry(context.Background(), e)
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create: %v", err)
		}
	}

	tag, err := s.GetTagBySlug(context.Background(), "jam")
	if err != nil {
		t.Fatalf("get tag: %v", err)
	}
	if tag.UsageCount != 20 {
		t.Errorf("usage_count = %d, want 20", tag.UsageCount)
	}
}
