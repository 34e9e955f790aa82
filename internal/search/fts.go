package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// EngineFTS5 names the SQLite FTS5 engine.
const EngineFTS5 = "fts5"

// Column weights for bm25, in entry_fts column order.
const (
	weightTitle       = 10.0
	weightDescription = 4.0
	weightBody        = 1.0
	weightTags        = 2.0
)

// FTSIndex keeps the entry_fts table in step with entries. Index writes run on
// the caller's transaction, so the index commits or rolls back with the entry.
type FTSIndex struct {
	db *sql.DB
}

// NewFTSIndex returns an engine over db, which must carry the entry_fts table.
func NewFTSIndex(db *sql.DB) *FTSIndex {
	return &FTSIndex{db: db}
}

// Name implements store.SearchIndexer.
func (f *FTSIndex) Name() string { return EngineFTS5 }

// IndexEntry implements store.SearchIndexer. Any previous row is replaced.
func (f *FTSIndex) IndexEntry(ctx context.Context, tx *store.Tx, doc *store.SearchDocument) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_fts WHERE rowid = ?`, doc.ID); err != nil {
		return fmt.Errorf("clear fts row %d: %w", doc.ID, err)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO entry_fts(rowid, title, description, body, tags) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Description, doc.Body, doc.Tags)
	if err != nil {
		return fmt.Errorf("insert fts row %d: %w", doc.ID, err)
	}
	return nil
}

// DeleteEntry implements store.SearchIndexer.
func (f *FTSIndex) DeleteEntry(ctx context.Context, tx *store.Tx, entryID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_fts WHERE rowid = ?`, entryID); err != nil {
		return fmt.Errorf("delete fts row %d: %w", entryID, err)
	}
	return nil
}

// Reset implements store.SearchIndexer.
func (f *FTSIndex) Reset(ctx context.Context, tx *store.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_fts`); err != nil {
		return fmt.Errorf("reset fts: %w", err)
	}
	return nil
}

// Search implements store.SearchIndexer. Each token is prefix-matched and all
// tokens must appear. Callers handle tokenless queries.
func (f *FTSIndex) Search(ctx context.Context, q store.SearchQuery) (*store.SearchPage, error) {
	if len(q.Tokens) == 0 {
		return &store.SearchPage{}, nil
	}

	where := []string{"entry_fts MATCH ?"}
	args := []any{MatchExpression(q.Tokens)}
	if !q.IncludeArchived {
		where = append(where, "e.is_archived = 0")
	}
	if q.NodeID != nil {
		where = append(where, "e.hobby_id = ?")
		args = append(args, *q.NodeID)
	}
	if q.TypeKey != "" {
		where = append(where, "e.type_key = ?")
		args = append(args, q.TypeKey)
	}
	from := ` FROM entry_fts JOIN entries e ON e.id = entry_fts.rowid WHERE ` + strings.Join(where, " AND ")

	page := &store.SearchPage{}
	if err := f.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count matches: %w", err)
	}
	if page.Total == 0 {
		return page, nil
	}

	query := fmt.Sprintf(`SELECT e.id, bm25(entry_fts, %.1f, %.1f, %.1f, %.1f) AS score%s ORDER BY score, e.id DESC LIMIT ? OFFSET ?`,
		weightTitle, weightDescription, weightBody, weightTags, from)
	rows, err := f.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("search fts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		// bm25 is negative; lower is better.
		page.Hits = append(page.Hits, store.SearchHit{ID: id, Rank: -score})
	}
	return page, rows.Err()
}

// MatchExpression builds an FTS5 query requiring every token as a prefix.
func MatchExpression(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(parts, " ")
}
