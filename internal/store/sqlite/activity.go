package sqlite

import (
	"context"
	"fmt"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// LogActivity appends an audit record.
func (s *Store) LogActivity(ctx context.Context, a *domain.Activity) error {
	return s.write(ctx, func(tx *store.Tx) error {
		details, err := encodeJSON(a.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO activity_logs (action, entity_type, entity_id, details_json, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			a.Action, a.EntityType, a.EntityID, details, formatTime(now))
		if err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		a.CreatedAt = now
		return nil
	})
}

// ListActivity returns audit records matching f, newest first.
func (s *Store) ListActivity(ctx context.Context, f domain.ActivityFilter) ([]*domain.Activity, error) {
	query := `SELECT id, action, entity_type, entity_id, details_json, created_at FROM activity_logs WHERE 1 = 1`
	var args []any
	if f.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, f.EntityType)
	}
	if f.EntityID != 0 {
		query += ` AND entity_id = ?`
		args = append(args, f.EntityID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, domain.ClampLimit(f.Limit))

	out := []*domain.Activity{}
	err := s.read(func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				a         domain.Activity
				details   string
				createdAt string
			)
			if err := rows.Scan(&a.ID, &a.Action, &a.EntityType, &a.EntityID, &details, &createdAt); err != nil {
				return err
			}
			if a.Details, err = decodeJSON(details); err != nil {
				return err
			}
			if a.CreatedAt, err = parseTime(createdAt); err != nil {
				return err
			}
			out = append(out, &a)
		}
		return rows.Err()
	})
	return out, err
}
