package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
	"github.com/hobbyshelf/hobbyshelf-server/internal/util"
)

// entryColumns selects an entry joined with its hobby.
// Must match the scan order in scanEntry.
const entryColumns = `e.id, e.hobby_id, h.name, h.slug, e.type_key, e.title, e.description,
	e.content_markdown, e.tags, e.is_favorite, e.is_archived, e.view_count, e.last_viewed_at,
	e.created_at, e.updated_at`

const entryFrom = ` FROM entries e JOIN hobbies h ON h.id = e.hobby_id`

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*domain.Entry, error) {
	var (
		e          domain.Entry
		tags       string
		lastViewed sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := scanner.Scan(
		&e.ID,
		&e.NodeID,
		&e.NodeName,
		&e.NodeSlug,
		&e.TypeKey,
		&e.Title,
		&e.Description,
		&e.Markdown,
		&tags,
		&e.Favorite,
		&e.Archived,
		&e.ViewCount,
		&lastViewed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Tags = util.SplitTagString(tags)
	if e.LastViewedAt, err = parseNullableTime(lastViewed); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

const summaryColumns = `e.id, e.hobby_id, h.name, e.type_key, e.title, e.description, e.tags,
	e.is_favorite, e.is_archived, e.view_count, e.created_at`

func scanSummary(scanner interface{ Scan(dest ...any) error }) (*domain.EntrySummary, error) {
	var (
		e         domain.EntrySummary
		tags      string
		createdAt string
	)
	err := scanner.Scan(&e.ID, &e.NodeID, &e.NodeName, &e.TypeKey, &e.Title, &e.Description, &tags,
		&e.Favorite, &e.Archived, &e.ViewCount, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Tags = util.SplitTagString(tags)
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEntry inserts an entry with its properties and tags and indexes it,
// all in one transaction. The hobby must exist and be active. The type key is
// not checked here; types are a soft reference.
func (s *Store) CreateEntry(ctx context.Context, e *domain.Entry) error {
	return s.write(ctx, func(tx *store.Tx) error {
		if err := activeNodeExists(ctx, tx, e.NodeID); err != nil {
			return err
		}

		e.Tags = util.DedupeTags(e.Tags)
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO entries (hobby_id, type_key, title, description, content_markdown, tags,
				is_favorite, is_archived, view_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, '', ?, ?, 0, ?, ?)`,
			e.NodeID,
			e.TypeKey,
			e.Title,
			e.Description,
			e.Markdown,
			e.Favorite,
			e.Archived,
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		e.CreatedAt, e.UpdatedAt = now, now
		e.ViewCount = 0

		if err := replaceProps(ctx, tx, e.ID, e.Properties); err != nil {
			return err
		}
		if e.Tags, err = s.setEntryTags(ctx, tx, e.ID, e.Tags); err != nil {
			return err
		}
		return s.indexEntry(ctx, tx, e.ID)
	})
}

// GetEntry loads an entry with properties, tags and media.
// Returns store.ErrNotFound if the entry does not exist.
func (s *Store) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	var e *domain.Entry
	err := s.read(func() error {
		var err error
		e, err = s.loadEntry(ctx, s.db, id)
		return err
	})
	return e, err
}

func (s *Store) loadEntry(ctx context.Context, q queryer, id int64) (*domain.Entry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, `SELECT `+entryColumns+entryFrom+` WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("entry %d", id))
	}
	if err != nil {
		return nil, err
	}
	if e.Properties, err = loadProps(ctx, q, id); err != nil {
		return nil, err
	}
	if e.Media, err = listMedia(ctx, q, id); err != nil {
		return nil, err
	}
	return e, nil
}

// RecordView increments the entry's view count and stamps last_viewed_at.
// It returns the new count and timestamp.
func (s *Store) RecordView(ctx context.Context, id int64) (int64, time.Time, error) {
	var count int64
	now := s.timestamp()
	err := s.write(ctx, func(tx *store.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE entries SET view_count = view_count + 1, last_viewed_at = ?
			WHERE id = ? RETURNING view_count`,
			formatTime(now), id).Scan(&count)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("entry %d", id))
		}
		return err
	})
	return count, now, err
}

// ListEntries returns entry summaries matching f, newest first.
func (s *Store) ListEntries(ctx context.Context, f domain.EntryFilter) (*store.Page[*domain.EntrySummary], error) {
	var (
		with  string
		where []string
		args  []any
	)

	if f.NodeID != nil {
		if f.IncludeDescendants {
			with = `WITH RECURSIVE subtree(id) AS (
				SELECT ? UNION SELECT h2.id FROM hobbies h2 JOIN subtree st ON h2.parent_id = st.id
			) `
			args = append(args, *f.NodeID)
			where = append(where, `e.hobby_id IN (SELECT id FROM subtree)`)
		} else {
			where = append(where, `e.hobby_id = ?`)
			args = append(args, *f.NodeID)
		}
	}
	if f.TypeKey != "" {
		where = append(where, `e.type_key = ?`)
		args = append(args, f.TypeKey)
	}
	if f.Favorite != nil {
		where = append(where, `e.is_favorite = ?`)
		args = append(args, *f.Favorite)
	}
	switch f.Archived {
	case domain.ArchiveOnly:
		where = append(where, `e.is_archived = 1`)
	case domain.ArchiveAll:
	default:
		where = append(where, `e.is_archived = 0`)
	}
	if f.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM entry_tags et JOIN tags t ON t.id = et.tag_id
			WHERE et.entry_id = e.id AND t.slug = ?)`)
		args = append(args, f.Tag)
	}

	cond := ""
	if len(where) > 0 {
		cond = ` WHERE ` + strings.Join(where, ` AND `)
	}
	limit := domain.ClampLimit(f.Limit)
	offset := max(f.Offset, 0)

	var (
		total int
		items []*domain.EntrySummary
	)
	err := s.read(func() error {
		if err := s.db.QueryRowContext(ctx, with+`SELECT COUNT(*)`+entryFrom+cond, args...).Scan(&total); err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		rows, err := s.db.QueryContext(ctx,
			with+`SELECT `+summaryColumns+entryFrom+cond+` ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?`,
			append(args, limit, offset)...)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanSummary(rows)
			if err != nil {
				return err
			}
			items = append(items, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return store.NewPage(items, total, limit, offset), nil
}

// GetEntrySummaries loads summaries for ids. Missing ids are absent from the map.
func (s *Store) GetEntrySummaries(ctx context.Context, ids []int64) (map[int64]*domain.EntrySummary, error) {
	out := make(map[int64]*domain.EntrySummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	err := s.read(func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+summaryColumns+entryFrom+` WHERE e.id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanSummary(rows)
			if err != nil {
				return err
			}
			out[e.ID] = e
		}
		return rows.Err()
	})
	return out, err
}

// entryFieldValues maps the updatable entry columns to their values on e.
var entryFieldValues = map[string]func(e *domain.Entry) any{
	"hobby_id":         func(e *domain.Entry) any { return e.NodeID },
	"type_key":         func(e *domain.Entry) any { return e.TypeKey },
	"title":            func(e *domain.Entry) any { return e.Title },
	"description":      func(e *domain.Entry) any { return e.Description },
	"content_markdown": func(e *domain.Entry) any { return e.Markdown },
	"is_favorite":      func(e *domain.Entry) any { return e.Favorite },
	"is_archived":      func(e *domain.Entry) any { return e.Archived },
}

// UpdateEntry writes the named fields of e and re-indexes the entry. fields
// holds entry column names, plus "tags" and "properties" for the tag links
// and property rows. Anything not named keeps its stored value. On success e
// is reloaded as stored.
func (s *Store) UpdateEntry(ctx context.Context, e *domain.Entry, fields []string) error {
	var updated *domain.Entry
	err := s.write(ctx, func(tx *store.Tx) error {
		sets := []string{"updated_at = ?"}
		args := []any{formatTime(s.timestamp())}
		var props, tags bool
		for _, field := range fields {
			switch field {
			case "properties":
				props = true
			case "tags":
				tags = true
			default:
				value, ok := entryFieldValues[field]
				if !ok {
					return store.ErrInvalidInput.WithMessage(fmt.Sprintf("entry field %q cannot be updated", field))
				}
				if field == "hobby_id" {
					if err := nodeExists(ctx, tx, e.NodeID); err != nil {
						return err
					}
				}
				sets = append(sets, field+" = ?")
				args = append(args, value(e))
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE entries SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, e.ID)...)
		if err != nil {
			return fmt.Errorf("update entry %d: %w", e.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("entry %d", e.ID))
		}

		if props {
			if err := replaceProps(ctx, tx, e.ID, e.Properties); err != nil {
				return err
			}
		}
		if tags {
			if _, err := s.setEntryTags(ctx, tx, e.ID, util.DedupeTags(e.Tags)); err != nil {
				return err
			}
		}
		if err := s.indexEntry(ctx, tx, e.ID); err != nil {
			return err
		}
		updated, err = s.loadEntry(ctx, tx, e.ID)
		return err
	})
	if err != nil {
		return err
	}
	*e = *updated
	return nil
}

// SetArchived flips the archived flag. Archived entries drop out of default
// listings and search but keep their data.
func (s *Store) SetArchived(ctx context.Context, id int64, archived bool) error {
	return s.setFlag(ctx, id, "is_archived", archived)
}

// SetFavorite flips the favorite flag.
func (s *Store) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	return s.setFlag(ctx, id, "is_favorite", favorite)
}

func (s *Store) setFlag(ctx context.Context, id int64, column string, value bool) error {
	return s.write(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE entries SET `+column+` = ?, updated_at = ? WHERE id = ?`,
			value, formatTime(s.timestamp()), id)
		if err != nil {
			return fmt.Errorf("set %s on entry %d: %w", column, id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("entry %d", id))
		}
		return s.indexEntry(ctx, tx, id)
	})
}

// DeleteEntry removes an entry together with its properties, media rows,
// tag links and shelf items, and drops it from the index.
func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *store.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("entry %d", id))
		}
		if err != nil {
			return err
		}

		if err := s.releaseEntry(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete entry %d: %w", id, err)
		}
		return removeUnusedTags(ctx, tx)
	})
}

// releaseEntry drops the entry's tag links, with their usage counts, and its
// index document. The entry row itself is left to the caller.
func (s *Store) releaseEntry(ctx context.Context, tx *store.Tx, id int64) error {
	tagIDs, err := queryIDs(ctx, tx, `SELECT tag_id FROM entry_tags WHERE entry_id = ?`, id)
	if err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if err := unlinkTag(ctx, tx, id, tagID); err != nil {
			return err
		}
	}
	return s.searchIndexer.DeleteEntry(ctx, tx, id)
}

func replaceProps(ctx context.Context, tx *store.Tx, entryID int64, props domain.Properties) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_props WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("clear properties: %w", err)
	}
	for _, key := range props.Keys() {
		value, err := json.Marshal(props[key])
		if err != nil {
			return store.ErrInvalidInput.WithMessage(fmt.Sprintf("property %q is not encodable", key))
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entry_props (entry_id, key, value_json) VALUES (?, ?, ?)`,
			entryID, key, string(value)); err != nil {
			return fmt.Errorf("insert property %q: %w", key, err)
		}
	}
	return nil
}

func loadProps(ctx context.Context, q queryer, entryID int64) (domain.Properties, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value_json FROM entry_props WHERE entry_id = ? ORDER BY key`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	props := domain.Properties{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode property %q of entry %d: %w", key, entryID, err)
		}
		props[key] = v
	}
	return props, rows.Err()
}
