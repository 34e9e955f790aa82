package sqlite

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/hobbyshelf/hobbyshelf-server/internal/markdown"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

const documentColumns = `id, hobby_id, type_key, title, description, content_markdown, tags, is_archived`

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*store.SearchDocument, error) {
	var (
		d    store.SearchDocument
		body string
	)
	if err := scanner.Scan(&d.ID, &d.NodeID, &d.TypeKey, &d.Title, &d.Description, &body, &d.Tags, &d.Archived); err != nil {
		return nil, err
	}
	d.Body = markdown.PlainText(body)
	d.Tags = strings.ReplaceAll(d.Tags, ",", ", ")
	return &d, nil
}

// indexEntry pushes the entry's current row, as seen by tx, to the index.
func (s *Store) indexEntry(ctx context.Context, tx *store.Tx, id int64) error {
	doc, err := scanDocument(tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM entries WHERE id = ?`, id))
	if err != nil {
		return fmt.Errorf("load search document %d: %w", id, err)
	}
	return s.searchIndexer.IndexEntry(ctx, tx, doc)
}

// SearchDocuments implements store.DocumentSource. It reads committed state
// without taking the store lock, so index repair hooks may call it while a
// write or restore holds the lock.
func (s *Store) SearchDocuments(ctx context.Context, ids []int64) iter.Seq2[*store.SearchDocument, error] {
	return func(yield func(*store.SearchDocument, error) bool) {
		query := `SELECT ` + documentColumns + ` FROM entries`
		var args []any
		if ids != nil {
			if len(ids) == 0 {
				return
			}
			query += ` WHERE id IN (` + placeholders(len(ids)) + `)`
			args = int64Args(ids)
		}
		query += ` ORDER BY id`

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			doc, err := scanDocument(rows)
			if !yield(doc, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Search runs q on the active engine. A query with no usable tokens falls
// back to substring matching over the same fields, with rank 0.
func (s *Store) Search(ctx context.Context, q store.SearchQuery) (*store.SearchPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(q.Tokens) > 0 {
		return s.searchIndexer.Search(ctx, q)
	}
	return s.searchSubstring(ctx, q)
}

func (s *Store) searchSubstring(ctx context.Context, q store.SearchQuery) (*store.SearchPage, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return &store.SearchPage{}, nil
	}

	pattern := "%" + escapeLike(text) + "%"
	where := []string{`(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR content_markdown LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`}
	args := []any{pattern, pattern, pattern, pattern}
	if !q.IncludeArchived {
		where = append(where, `is_archived = 0`)
	}
	if q.NodeID != nil {
		where = append(where, `hobby_id = ?`)
		args = append(args, *q.NodeID)
	}
	if q.TypeKey != "" {
		where = append(where, `type_key = ?`)
		args = append(args, q.TypeKey)
	}
	cond := ` FROM entries WHERE ` + strings.Join(where, ` AND `)

	page := &store.SearchPage{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+cond, args...).Scan(&page.Total); err != nil {
		return nil, err
	}
	ids, err := queryIDs(ctx, s.db, `SELECT id`+cond+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		page.Hits = append(page.Hits, store.SearchHit{ID: id})
	}
	return page, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Reindex rebuilds the active engine from the entries table and returns the
// number of entries indexed.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	var n int
	err := s.write(ctx, func(tx *store.Tx) error {
		var err error
		n, err = s.reindexAll(ctx, tx)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("search index rebuilt", "engine", s.searchIndexer.Name(), "entries", n)
	return n, nil
}

// reindexAll resets the index and feeds it every entry visible to tx.
func (s *Store) reindexAll(ctx context.Context, tx *store.Tx) (int, error) {
	if err := s.searchIndexer.Reset(ctx, tx); err != nil {
		return 0, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT `+documentColumns+` FROM entries ORDER BY id`)
	if err != nil {
		return 0, err
	}
	var docs []*store.SearchDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		docs = append(docs, doc)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return 0, err
	}

	for _, doc := range docs {
		if err := s.searchIndexer.IndexEntry(ctx, tx, doc); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}
