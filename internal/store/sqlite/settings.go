package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// SettingSourceID identifies this installation in snapshot metadata.
const SettingSourceID = "source_id"

// GetSetting returns an app setting.
// Returns store.ErrNotFound if the key is unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.read(func() error {
		err := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("setting %q", key))
		}
		return err
	})
	return v, err
}

// SetSetting upserts an app setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return s.write(ctx, func(tx *store.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, formatTime(s.timestamp()))
		return err
	})
}

// SourceID returns the installation id, generating it on first use.
func (s *Store) SourceID(ctx context.Context) (string, error) {
	v, err := s.GetSetting(ctx, SettingSourceID)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	v = uuid.NewString()
	if err := s.SetSetting(ctx, SettingSourceID, v); err != nil {
		return "", err
	}
	return v, nil
}
