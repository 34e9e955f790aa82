package sqlite

import (
	"context"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
)

// Stats counts rows across the store in one read.
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	var st domain.Stats
	err := s.read(func() error {
		return s.db.QueryRowContext(ctx, `
			SELECT
				(SELECT COUNT(*) FROM hobbies),
				(SELECT COUNT(*) FROM hobby_types),
				(SELECT COUNT(*) FROM entries),
				(SELECT COUNT(*) FROM entries WHERE is_archived = 1),
				(SELECT COUNT(*) FROM entries WHERE is_favorite = 1),
				(SELECT COUNT(*) FROM tags),
				(SELECT COUNT(*) FROM shelves),
				(SELECT COUNT(*) FROM shelf_items),
				(SELECT COUNT(*) FROM entry_media)`).Scan(
			&st.Nodes, &st.Types, &st.Entries, &st.Archived, &st.Favorites,
			&st.Tags, &st.Shelves, &st.ShelfItems, &st.Media,
		)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}
