package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

const mediaColumns = `id, entry_id, type, filename, original_filename, mime_type, size_bytes,
	width, height, duration_seconds, metadata_json, thumbnail_path, position, created_at`

func scanMedia(scanner interface{ Scan(dest ...any) error }) (*domain.Media, error) {
	var (
		m         domain.Media
		width     sql.NullInt64
		height    sql.NullInt64
		duration  sql.NullFloat64
		metadata  string
		createdAt string
	)
	err := scanner.Scan(&m.ID, &m.EntryID, &m.Type, &m.Filename, &m.OriginalFilename, &m.MimeType,
		&m.SizeBytes, &width, &height, &duration, &metadata, &m.ThumbnailPath, &m.Position, &createdAt)
	if err != nil {
		return nil, err
	}
	if width.Valid {
		w := int(width.Int64)
		m.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		m.Height = &h
	}
	if duration.Valid {
		d := duration.Float64
		m.DurationSeconds = &d
	}
	if m.Metadata, err = decodeJSON(metadata); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMedia records a stored file against an entry. Only metadata is kept;
// the bytes live with the file storage collaborator.
func (s *Store) AddMedia(ctx context.Context, m *domain.Media) error {
	return s.write(ctx, func(tx *store.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE id = ?`, m.EntryID).Scan(&one); err != nil {
			if err == sql.ErrNoRows {
				return store.ErrNotFound.WithMessage(fmt.Sprintf("entry %d", m.EntryID))
			}
			return err
		}

		if m.Type == "" {
			m.Type = domain.MediaTypeFromMIME(m.MimeType)
		}
		metadata, err := encodeJSON(m.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}

		var width, height sql.NullInt64
		if m.Width != nil {
			width = sql.NullInt64{Int64: int64(*m.Width), Valid: true}
		}
		if m.Height != nil {
			height = sql.NullInt64{Int64: int64(*m.Height), Valid: true}
		}
		var duration sql.NullFloat64
		if m.DurationSeconds != nil {
			duration = sql.NullFloat64{Float64: *m.DurationSeconds, Valid: true}
		}

		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO entry_media (entry_id, type, filename, original_filename, mime_type, size_bytes,
				width, height, duration_seconds, metadata_json, thumbnail_path, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.EntryID, m.Type, m.Filename, m.OriginalFilename, m.MimeType, m.SizeBytes,
			width, height, duration, metadata, m.ThumbnailPath, m.Position, formatTime(now))
		if err != nil {
			return fmt.Errorf("insert media: %w", err)
		}
		if m.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		m.CreatedAt = now
		return nil
	})
}

// ListMedia returns an entry's media in display order.
func (s *Store) ListMedia(ctx context.Context, entryID int64) ([]*domain.Media, error) {
	var media []*domain.Media
	err := s.read(func() error {
		var err error
		media, err = listMedia(ctx, s.db, entryID)
		return err
	})
	return media, err
}

func listMedia(ctx context.Context, q queryer, entryID int64) ([]*domain.Media, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM entry_media WHERE entry_id = ? ORDER BY position, id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	media := []*domain.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// DeleteMedia removes one media row of an entry.
func (s *Store) DeleteMedia(ctx context.Context, entryID, mediaID int64) error {
	return s.write(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM entry_media WHERE id = ? AND entry_id = ?`, mediaID, entryID)
		if err != nil {
			return fmt.Errorf("delete media %d: %w", mediaID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("media %d of entry %d", mediaID, entryID))
		}
		return nil
	})
}
