package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// nodeColumns is the ordered list of columns selected in hobby queries.
// Must match the scan order in scanNode.
const nodeColumns = `id, parent_id, name, slug, icon, color, config_json, position, is_active, created_at, updated_at`

// scanNode scans a sql.Row (or sql.Rows via its Scan method) into a domain.Node.
func scanNode(scanner interface{ Scan(dest ...any) error }) (*domain.Node, error) {
	var (
		n         domain.Node
		parentID  sql.NullInt64
		config    string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&n.ID,
		&parentID,
		&n.Name,
		&n.Slug,
		&n.Icon,
		&n.Color,
		&config,
		&n.Position,
		&n.Active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ParentID = int64Ptr(parentID)
	if n.Config, err = decodeJSON(config); err != nil {
		return nil, fmt.Errorf("decode hobby %d config: %w", n.ID, err)
	}
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNode inserts a hobby and sets its ID and timestamps.
// Returns store.ErrAlreadyExists on duplicate slug and store.ErrNotFound when
// the parent does not exist.
func (s *Store) CreateNode(ctx context.Context, n *domain.Node) error {
	return s.write(ctx, func(tx *store.Tx) error {
		if n.ParentID != nil {
			if err := nodeExists(ctx, tx, *n.ParentID); err != nil {
				return err
			}
		}

		config, err := encodeJSON(n.Config)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}

		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO hobbies (parent_id, name, slug, icon, color, config_json, position, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullInt64Ptr(n.ParentID),
			n.Name,
			n.Slug,
			n.Icon,
			n.Color,
			config,
			n.Position,
			n.Active,
			formatTime(now),
			formatTime(now),
		)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage(fmt.Sprintf("hobby slug %q", n.Slug))
		}
		if err != nil {
			return fmt.Errorf("insert hobby: %w", err)
		}

		if n.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		n.CreatedAt, n.UpdatedAt = now, now
		return nil
	})
}

// GetNode retrieves a hobby by ID.
// Returns store.ErrNotFound if the hobby does not exist.
func (s *Store) GetNode(ctx context.Context, id int64) (*domain.Node, error) {
	var n *domain.Node
	err := s.read(func() error {
		var err error
		n, err = getNode(ctx, s.db, `id = ?`, id)
		return err
	})
	return n, err
}

// GetNodeBySlug retrieves a hobby by slug.
// Returns store.ErrNotFound if the hobby does not exist.
func (s *Store) GetNodeBySlug(ctx context.Context, slug string) (*domain.Node, error) {
	var n *domain.Node
	err := s.read(func() error {
		var err error
		n, err = getNode(ctx, s.db, `slug = ?`, slug)
		return err
	})
	return n, err
}

func getNode(ctx context.Context, q queryer, where string, arg any) (*domain.Node, error) {
	row := q.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM hobbies WHERE `+where, arg)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("hobby %v", arg))
	}
	return n, err
}

func nodeExists(ctx context.Context, q queryer, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM hobbies WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("hobby %d", id))
	}
	return err
}

// activeNodeExists is nodeExists that also rejects inactive hobbies.
func activeNodeExists(ctx context.Context, q queryer, id int64) error {
	var active bool
	err := q.QueryRowContext(ctx, `SELECT is_active FROM hobbies WHERE id = ?`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound.WithMessage(fmt.Sprintf("hobby %d", id))
	}
	if err != nil {
		return err
	}
	if !active {
		return store.ErrInvalidInput.WithMessage(fmt.Sprintf("hobby %d is inactive", id))
	}
	return nil
}

// ListNodes returns hobbies ordered by position then name. Inactive hobbies
// are included only when asked.
func (s *Store) ListNodes(ctx context.Context, includeInactive bool) ([]*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM hobbies`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY position, name, id`

	var nodes []*domain.Node
	err := s.read(func() error {
		var err error
		nodes, err = queryNodes(ctx, s.db, query)
		return err
	})
	return nodes, err
}

// ListChildren returns the direct children of parentID, or the roots when
// parentID is nil.
func (s *Store) ListChildren(ctx context.Context, parentID *int64) ([]*domain.Node, error) {
	var nodes []*domain.Node
	err := s.read(func() error {
		var err error
		if parentID == nil {
			nodes, err = queryNodes(ctx, s.db,
				`SELECT `+nodeColumns+` FROM hobbies WHERE parent_id IS NULL ORDER BY position, name, id`)
			return err
		}
		if err := nodeExists(ctx, s.db, *parentID); err != nil {
			return err
		}
		nodes, err = queryNodes(ctx, s.db,
			`SELECT `+nodeColumns+` FROM hobbies WHERE parent_id = ? ORDER BY position, name, id`, *parentID)
		return err
	})
	return nodes, err
}

func queryNodes(ctx context.Context, q queryer, query string, args ...any) ([]*domain.Node, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := []*domain.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// NodeEntryCounts returns the number of unarchived entries directly under
// each hobby.
func (s *Store) NodeEntryCounts(ctx context.Context) (map[int64]int, error) {
	counts := make(map[int64]int)
	err := s.read(func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT hobby_id, COUNT(*) FROM entries WHERE is_archived = 0 GROUP BY hobby_id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var n int
			if err := rows.Scan(&id, &n); err != nil {
				return err
			}
			counts[id] = n
		}
		return rows.Err()
	})
	return counts, err
}

// DescendantIDs returns id and the ids of every hobby below it.
func (s *Store) DescendantIDs(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	err := s.read(func() error {
		if err := nodeExists(ctx, s.db, id); err != nil {
			return err
		}
		var err error
		ids, err = subtreeIDs(ctx, s.db, id)
		return err
	})
	return ids, err
}

func subtreeIDs(ctx context.Context, q queryer, id int64) ([]int64, error) {
	return queryIDs(ctx, q, `
		WITH RECURSIVE subtree(id) AS (
			SELECT ?
			UNION
			SELECT h.id FROM hobbies h JOIN subtree s ON h.parent_id = s.id
		)
		SELECT id FROM subtree`, id)
}

func queryIDs(ctx context.Context, q queryer, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateNode writes a hobby's mutable fields. Moving a hobby under itself or
// one of its descendants returns store.ErrCycle.
func (s *Store) UpdateNode(ctx context.Context, n *domain.Node) error {
	return s.write(ctx, func(tx *store.Tx) error {
		if err := nodeExists(ctx, tx, n.ID); err != nil {
			return err
		}
		if n.ParentID != nil {
			if *n.ParentID == n.ID {
				return store.ErrCycle
			}
			if err := nodeExists(ctx, tx, *n.ParentID); err != nil {
				return err
			}
			below, err := subtreeIDs(ctx, tx, n.ID)
			if err != nil {
				return err
			}
			for _, id := range below {
				if id == *n.ParentID {
					return store.ErrCycle
				}
			}
		}

		config, err := encodeJSON(n.Config)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}

		now := s.timestamp()
		_, err = tx.ExecContext(ctx, `
			UPDATE hobbies SET
				parent_id = ?, name = ?, icon = ?, color = ?, config_json = ?,
				position = ?, is_active = ?, updated_at = ?
			WHERE id = ?`,
			nullInt64Ptr(n.ParentID),
			n.Name,
			n.Icon,
			n.Color,
			config,
			n.Position,
			n.Active,
			formatTime(now),
			n.ID,
		)
		if err != nil {
			return fmt.Errorf("update hobby %d: %w", n.ID, err)
		}
		n.UpdatedAt = now
		return nil
	})
}

// DeleteNodeSubtree removes a hobby with every descendant, their entries and
// shelves. Tag usage counts and the search index are adjusted in the same
// transaction.
func (s *Store) DeleteNodeSubtree(ctx context.Context, id int64) (*domain.DeleteSubtreeResult, error) {
	result := &domain.DeleteSubtreeResult{}
	err := s.write(ctx, func(tx *store.Tx) error {
		if err := nodeExists(ctx, tx, id); err != nil {
			return err
		}

		nodeIDs, err := subtreeIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		in := placeholders(len(nodeIDs))
		args := int64Args(nodeIDs)

		entryIDs, err := queryIDs(ctx, tx, `SELECT id FROM entries WHERE hobby_id IN (`+in+`)`, args...)
		if err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM shelves WHERE hobby_id IN (`+in+`)`, args...).Scan(&result.Shelves); err != nil {
			return err
		}

		for _, entryID := range entryIDs {
			if err := s.releaseEntry(ctx, tx, entryID); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM hobbies WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete hobby %d: %w", id, err)
		}
		if err := removeUnusedTags(ctx, tx); err != nil {
			return err
		}

		result.Nodes = len(nodeIDs)
		result.Entries = len(entryIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
