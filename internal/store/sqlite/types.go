package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

const typeColumns = `id, key, name, schema_json, ui_config_json, version, is_active, created_at, updated_at`

func scanType(scanner interface{ Scan(dest ...any) error }) (*domain.ContentType, error) {
	var (
		t         domain.ContentType
		schema    string
		uiConfig  string
		createdAt string
		updatedAt string
	)
	err := scanner.Scan(&t.ID, &t.Key, &t.Name, &schema, &uiConfig, &t.Version, &t.Active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if t.Schema, err = decodeJSON(schema); err != nil {
		return nil, fmt.Errorf("decode type %q schema: %w", t.Key, err)
	}
	if t.UIConfig, err = decodeJSON(uiConfig); err != nil {
		return nil, fmt.Errorf("decode type %q ui config: %w", t.Key, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateType registers a content type.
// Returns store.ErrAlreadyExists on duplicate key.
func (s *Store) CreateType(ctx context.Context, t *domain.ContentType) error {
	return s.write(ctx, func(tx *store.Tx) error {
		schema, err := encodeJSON(t.Schema)
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		uiConfig, err := encodeJSON(t.UIConfig)
		if err != nil {
			return fmt.Errorf("encode ui config: %w", err)
		}
		if t.Version <= 0 {
			t.Version = 1
		}

		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO hobby_types (key, name, schema_json, ui_config_json, version, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Key, t.Name, schema, uiConfig, t.Version, t.Active, formatTime(now), formatTime(now))
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage(fmt.Sprintf("type key %q", t.Key))
		}
		if err != nil {
			return fmt.Errorf("insert type: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		t.CreatedAt, t.UpdatedAt = now, now
		return nil
	})
}

// GetType retrieves a content type by key.
// Returns store.ErrNotFound if the key is not registered.
func (s *Store) GetType(ctx context.Context, key string) (*domain.ContentType, error) {
	var t *domain.ContentType
	err := s.read(func() error {
		var err error
		t, err = getType(ctx, s.db, key)
		return err
	})
	return t, err
}

func getType(ctx context.Context, q queryer, key string) (*domain.ContentType, error) {
	t, err := scanType(q.QueryRowContext(ctx, `SELECT `+typeColumns+` FROM hobby_types WHERE key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("type %q", key))
	}
	return t, err
}

// ListTypes returns content types ordered by name.
func (s *Store) ListTypes(ctx context.Context, includeInactive bool) ([]*domain.ContentType, error) {
	query := `SELECT ` + typeColumns + ` FROM hobby_types`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name, key`

	types := []*domain.ContentType{}
	err := s.read(func() error {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanType(rows)
			if err != nil {
				return err
			}
			types = append(types, t)
		}
		return rows.Err()
	})
	return types, err
}

// UpdateType writes name, schema, UI config, version and active flag.
func (s *Store) UpdateType(ctx context.Context, t *domain.ContentType) error {
	return s.write(ctx, func(tx *store.Tx) error {
		schema, err := encodeJSON(t.Schema)
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		uiConfig, err := encodeJSON(t.UIConfig)
		if err != nil {
			return fmt.Errorf("encode ui config: %w", err)
		}

		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			UPDATE hobby_types SET name = ?, schema_json = ?, ui_config_json = ?, version = ?, is_active = ?, updated_at = ?
			WHERE key = ?`,
			t.Name, schema, uiConfig, t.Version, t.Active, formatTime(now), t.Key)
		if err != nil {
			return fmt.Errorf("update type %q: %w", t.Key, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("type %q", t.Key))
		}
		t.UpdatedAt = now
		return nil
	})
}

// CountEntriesByType returns how many entries use the type key.
func (s *Store) CountEntriesByType(ctx context.Context, key string) (int, error) {
	var n int
	err := s.read(func() error {
		return s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE type_key = ?`, key).Scan(&n)
	})
	return n, err
}
