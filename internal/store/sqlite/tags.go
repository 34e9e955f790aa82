package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hobbyshelf/hobbyshelf-server/internal/color"
	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
	"github.com/hobbyshelf/hobbyshelf-server/internal/util"
)

const tagColumns = `id, name, slug, color, usage_count, created_at`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		t         domain.Tag
		createdAt string
	)
	if err := scanner.Scan(&t.ID, &t.Name, &t.Slug, &t.Color, &t.UsageCount, &createdAt); err != nil {
		return nil, err
	}
	var err error
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTags returns tags ordered by usage, most used first. A limit of 0
// returns every tag.
func (s *Store) ListTags(ctx context.Context, limit int) ([]*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags ORDER BY usage_count DESC, name ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	tags := []*domain.Tag{}
	err := s.read(func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTag(rows)
			if err != nil {
				return err
			}
			tags = append(tags, t)
		}
		return rows.Err()
	})
	return tags, err
}

// GetTagBySlug retrieves a tag by its slug.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	var t *domain.Tag
	err := s.read(func() error {
		var err error
		t, err = scanTag(s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE slug = ?`, slug))
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("tag %q", slug))
		}
		return err
	})
	return t, err
}

// RebuildTagCounts recomputes every usage count from entry_tags, drops tags no
// entry uses and rewrites denormalized tag strings that disagree with the
// relation. It returns the number of tags and entries repaired.
func (s *Store) RebuildTagCounts(ctx context.Context) (int, error) {
	var repaired int
	err := s.write(ctx, func(tx *store.Tx) error {
		n, err := recountTags(ctx, tx)
		if err != nil {
			return err
		}
		rewritten, err := rewriteTagStrings(ctx, tx)
		if err != nil {
			return err
		}
		for _, id := range rewritten {
			if err := s.indexEntry(ctx, tx, id); err != nil {
				return err
			}
		}
		repaired = n + len(rewritten)
		return nil
	})
	return repaired, err
}

// recountTags sets every usage count to its entry_tags count and removes tags
// left unused. It returns the number of counts changed.
func recountTags(ctx context.Context, tx *store.Tx) (int, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE tags SET usage_count = (SELECT COUNT(*) FROM entry_tags et WHERE et.tag_id = tags.id)
		WHERE usage_count != (SELECT COUNT(*) FROM entry_tags et WHERE et.tag_id = tags.id)`)
	if err != nil {
		return 0, fmt.Errorf("rebuild tag counts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), removeUnusedTags(ctx, tx)
}

// rewriteTagStrings replaces stale entry tag strings with the ones the
// relation implies and returns the ids of the entries it changed.
func rewriteTagStrings(ctx context.Context, tx *store.Tx) ([]int64, error) {
	stale, err := staleTagStrings(ctx, tx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(stale))
	for id, tags := range stale {
		if _, err := tx.ExecContext(ctx, `UPDATE entries SET tags = ? WHERE id = ?`, tags, id); err != nil {
			return nil, fmt.Errorf("rewrite tags of entry %d: %w", id, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// staleTagStrings returns entry id to the tag string the relation implies,
// for entries whose stored string differs.
func staleTagStrings(ctx context.Context, tx *store.Tx) (map[int64]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT e.id, e.tags, COALESCE((
			SELECT group_concat(name, ',') FROM (
				SELECT t.name FROM entry_tags et JOIN tags t ON t.id = et.tag_id
				WHERE et.entry_id = e.id ORDER BY et.rowid
			)), '')
		FROM entries e`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var (
			id              int64
			stored, derived string
		)
		if err := rows.Scan(&id, &stored, &derived); err != nil {
			return nil, err
		}
		if stored != derived {
			out[id] = derived
		}
	}
	return out, rows.Err()
}

// setEntryTags relinks the entry to names, in order, and rewrites its tag
// string from the linked tags' stored names. A name matching an existing tag
// by slug takes that tag's spelling. Usage counts follow the links. names must
// already be deduplicated. It returns the stored names.
func (s *Store) setEntryTags(ctx context.Context, tx *store.Tx, entryID int64, names []string) ([]string, error) {
	current, err := queryIDs(ctx, tx, `SELECT tag_id FROM entry_tags WHERE entry_id = ?`, entryID)
	if err != nil {
		return nil, err
	}
	// Links are rebuilt so their rowid order matches names.
	for _, tagID := range current {
		if err := unlinkTag(ctx, tx, entryID, tagID); err != nil {
			return nil, err
		}
	}

	stored := make([]string, 0, len(names))
	linked := make(map[int64]bool, len(names))
	for _, name := range names {
		tagID, tagName, err := s.ensureTag(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		if linked[tagID] {
			continue
		}
		linked[tagID] = true

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entry_tags (entry_id, tag_id) VALUES (?, ?)`, entryID, tagID); err != nil {
			return nil, fmt.Errorf("link tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?`, tagID); err != nil {
			return nil, fmt.Errorf("increment tag %q: %w", name, err)
		}
		stored = append(stored, tagName)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entries SET tags = ? WHERE id = ?`, util.JoinTags(stored), entryID); err != nil {
		return nil, fmt.Errorf("write tags of entry %d: %w", entryID, err)
	}
	return stored, removeUnusedTags(ctx, tx)
}

// ensureTag returns the id and stored name of the tag with name's slug,
// creating it if needed.
func (s *Store) ensureTag(ctx context.Context, tx *store.Tx, name string) (int64, string, error) {
	slug := util.Slugify(name)
	if slug == "" {
		return 0, "", store.ErrInvalidInput.WithMessage(fmt.Sprintf("tag %q has no usable characters", name))
	}

	var (
		id     int64
		stored string
	)
	err := tx.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE slug = ?`, slug).Scan(&id, &stored)
	if err == nil {
		return id, stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, "", err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tags (name, slug, color, usage_count, created_at) VALUES (?, ?, ?, 0, ?)`,
		name, slug, color.ForKey(slug), formatTime(s.timestamp()))
	if isUniqueViolation(err) {
		return 0, "", store.ErrAlreadyExists.WithMessage(fmt.Sprintf("tag name %q", name))
	}
	if err != nil {
		return 0, "", fmt.Errorf("create tag %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	return id, name, err
}

func unlinkTag(ctx context.Context, tx *store.Tx, entryID, tagID int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ? AND tag_id = ?`, entryID, tagID)
	if err != nil {
		return fmt.Errorf("unlink tag %d: %w", tagID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tags SET usage_count = MAX(usage_count - 1, 0) WHERE id = ?`, tagID)
	return err
}

// removeUnusedTags deletes tags whose usage count reached zero.
func removeUnusedTags(ctx context.Context, tx *store.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE usage_count <= 0`); err != nil {
		return fmt.Errorf("remove unused tags: %w", err)
	}
	return nil
}
