package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

const shelfColumns = `s.id, s.hobby_id, s.name, s.description, s.type, s.view_mode, s.sort_by, s.sort_order,
	s.config_json, s.position, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM shelf_items si WHERE si.shelf_id = s.id)`

func scanShelf(scanner interface{ Scan(dest ...any) error }) (*domain.Shelf, error) {
	var (
		sh        domain.Shelf
		config    string
		createdAt string
		updatedAt string
	)
	err := scanner.Scan(&sh.ID, &sh.NodeID, &sh.Name, &sh.Description, &sh.Type, &sh.ViewMode, &sh.SortBy,
		&sh.SortOrder, &config, &sh.Position, &createdAt, &updatedAt, &sh.ItemCount)
	if err != nil {
		return nil, err
	}
	if sh.Config, err = decodeJSON(config); err != nil {
		return nil, err
	}
	if sh.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sh.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sh, nil
}

// CreateShelf inserts a shelf under a hobby.
func (s *Store) CreateShelf(ctx context.Context, sh *domain.Shelf) error {
	return s.write(ctx, func(tx *store.Tx) error {
		if err := nodeExists(ctx, tx, sh.NodeID); err != nil {
			return err
		}
		config, err := encodeJSON(sh.Config)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}

		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO shelves (hobby_id, name, description, type, view_mode, sort_by, sort_order,
				config_json, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sh.NodeID, sh.Name, sh.Description, sh.Type, sh.ViewMode, sh.SortBy, sh.SortOrder,
			config, sh.Position, formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("insert shelf: %w", err)
		}
		if sh.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		sh.CreatedAt, sh.UpdatedAt = now, now
		return nil
	})
}

// GetShelf retrieves a shelf with its item count.
// Returns store.ErrNotFound if the shelf does not exist.
func (s *Store) GetShelf(ctx context.Context, id int64) (*domain.Shelf, error) {
	var sh *domain.Shelf
	err := s.read(func() error {
		var err error
		sh, err = getShelf(ctx, s.db, id)
		return err
	})
	return sh, err
}

func getShelf(ctx context.Context, q queryer, id int64) (*domain.Shelf, error) {
	sh, err := scanShelf(q.QueryRowContext(ctx, `SELECT `+shelfColumns+` FROM shelves s WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("shelf %d", id))
	}
	return sh, err
}

// ListShelves returns the shelves of a hobby, or of every hobby when nodeID
// is nil, ordered by position.
func (s *Store) ListShelves(ctx context.Context, nodeID *int64) ([]*domain.Shelf, error) {
	query := `SELECT ` + shelfColumns + ` FROM shelves s`
	var args []any
	if nodeID != nil {
		query += ` WHERE s.hobby_id = ?`
		args = append(args, *nodeID)
	}
	query += ` ORDER BY s.position, s.name, s.id`

	shelves := []*domain.Shelf{}
	err := s.read(func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sh, err := scanShelf(rows)
			if err != nil {
				return err
			}
			shelves = append(shelves, sh)
		}
		return rows.Err()
	})
	return shelves, err
}

// UpdateShelf writes a shelf's editable fields.
func (s *Store) UpdateShelf(ctx context.Context, sh *domain.Shelf) error {
	return s.write(ctx, func(tx *store.Tx) error {
		config, err := encodeJSON(sh.Config)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			UPDATE shelves SET name = ?, description = ?, type = ?, view_mode = ?, sort_by = ?, sort_order = ?,
				config_json = ?, position = ?, updated_at = ?
			WHERE id = ?`,
			sh.Name, sh.Description, sh.Type, sh.ViewMode, sh.SortBy, sh.SortOrder,
			config, sh.Position, formatTime(now), sh.ID)
		if err != nil {
			return fmt.Errorf("update shelf %d: %w", sh.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("shelf %d", sh.ID))
		}
		sh.UpdatedAt = now
		return nil
	})
}

// DeleteShelf removes a shelf and its items.
func (s *Store) DeleteShelf(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM shelves WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete shelf %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("shelf %d", id))
		}
		return nil
	})
}

// shelfItemColumns selects an item with the backing entry's display fields.
// The entry columns are NULL for external items and for dangling references.
const shelfItemColumns = `si.id, si.shelf_id, si.entry_id, si.external_url, si.title, si.subtitle, si.cover_url,
	si.metadata_json, si.position, si.added_at, e.title, e.description`

func scanShelfItem(scanner interface{ Scan(dest ...any) error }) (*domain.ShelfItem, error) {
	var (
		it               domain.ShelfItem
		entryID          sql.NullInt64
		metadata         string
		addedAt          string
		entryTitle       sql.NullString
		entryDescription sql.NullString
	)
	err := scanner.Scan(&it.ID, &it.ShelfID, &entryID, &it.ExternalURL, &it.Title, &it.Subtitle, &it.CoverURL,
		&metadata, &it.Position, &addedAt, &entryTitle, &entryDescription)
	if err != nil {
		return nil, err
	}
	it.EntryID = int64Ptr(entryID)
	if it.Metadata, err = decodeJSON(metadata); err != nil {
		return nil, err
	}
	if it.AddedAt, err = parseTime(addedAt); err != nil {
		return nil, err
	}
	it.Resolve(entryTitle.String, entryDescription.String, entryTitle.Valid)
	return &it, nil
}

// AddShelfItem adds an item to a shelf. A negative Position appends after the
// last item. When EntryID is set the entry must exist.
func (s *Store) AddShelfItem(ctx context.Context, it *domain.ShelfItem) error {
	return s.write(ctx, func(tx *store.Tx) error {
		if _, err := getShelf(ctx, tx, it.ShelfID); err != nil {
			return err
		}
		var entryTitle, entryDescription string
		found := false
		if it.EntryID != nil {
			err := tx.QueryRowContext(ctx, `SELECT title, description FROM entries WHERE id = ?`, *it.EntryID).
				Scan(&entryTitle, &entryDescription)
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound.WithMessage(fmt.Sprintf("entry %d", *it.EntryID))
			}
			if err != nil {
				return err
			}
			found = true
		}

		if it.Position < 0 {
			err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(position), -1) + 1 FROM shelf_items WHERE shelf_id = ?`, it.ShelfID).
				Scan(&it.Position)
			if err != nil {
				return fmt.Errorf("next position: %w", err)
			}
		}

		metadata, err := encodeJSON(it.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO shelf_items (shelf_id, entry_id, external_url, title, subtitle, cover_url, metadata_json, position, added_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ShelfID, nullInt64Ptr(it.EntryID), it.ExternalURL, it.Title, it.Subtitle, it.CoverURL,
			metadata, it.Position, formatTime(now))
		if err != nil {
			return fmt.Errorf("insert shelf item: %w", err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		it.AddedAt = now
		it.Resolve(entryTitle, entryDescription, found)

		_, err = tx.ExecContext(ctx, `UPDATE shelves SET updated_at = ? WHERE id = ?`, formatTime(now), it.ShelfID)
		return err
	})
}

// ListShelfItems returns a shelf's items ordered by position, newest first
// within a position, resolved against their entries.
func (s *Store) ListShelfItems(ctx context.Context, shelfID int64, limit, offset int) (*store.Page[*domain.ShelfItem], error) {
	limit = domain.ClampLimit(limit)
	offset = max(offset, 0)

	var (
		total int
		items []*domain.ShelfItem
	)
	err := s.read(func() error {
		if _, err := getShelf(ctx, s.db, shelfID); err != nil {
			return err
		}
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM shelf_items WHERE shelf_id = ?`, shelfID).Scan(&total); err != nil {
			return err
		}
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+shelfItemColumns+`
			FROM shelf_items si LEFT JOIN entries e ON e.id = si.entry_id
			WHERE si.shelf_id = ?
			ORDER BY si.position ASC, si.added_at DESC, si.id DESC
			LIMIT ? OFFSET ?`, shelfID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			it, err := scanShelfItem(rows)
			if err != nil {
				return err
			}
			items = append(items, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return store.NewPage(items, total, limit, offset), nil
}

// RemoveShelfItem deletes one item from a shelf.
func (s *Store) RemoveShelfItem(ctx context.Context, shelfID, itemID int64) error {
	return s.write(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM shelf_items WHERE id = ? AND shelf_id = ?`, itemID, shelfID)
		if err != nil {
			return fmt.Errorf("delete shelf item %d: %w", itemID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("item %d on shelf %d", itemID, shelfID))
		}
		return nil
	})
}

// MoveShelfItem sets an item's position.
func (s *Store) MoveShelfItem(ctx context.Context, shelfID, itemID int64, position int) error {
	return s.write(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE shelf_items SET position = ? WHERE id = ? AND shelf_id = ?`, position, itemID, shelfID)
		if err != nil {
			return fmt.Errorf("move shelf item %d: %w", itemID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("item %d on shelf %d", itemID, shelfID))
		}
		return nil
	})
}
