// Package store defines the persistence interface for the HobbyShelf server.
package store

import (
	"context"
	"time"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)
	SearchEngine() string

	// Hobbies
	CreateNode(ctx context.Context, n *domain.Node) error
	GetNode(ctx context.Context, id int64) (*domain.Node, error)
	GetNodeBySlug(ctx context.Context, slug string) (*domain.Node, error)
	ListNodes(ctx context.Context, includeInactive bool) ([]*domain.Node, error)
	ListChildren(ctx context.Context, parentID *int64) ([]*domain.Node, error)
	NodeEntryCounts(ctx context.Context) (map[int64]int, error)
	DescendantIDs(ctx context.Context, id int64) ([]int64, error)
	UpdateNode(ctx context.Context, n *domain.Node) error
	DeleteNodeSubtree(ctx context.Context, id int64) (*domain.DeleteSubtreeResult, error)

	// Content types
	CreateType(ctx context.Context, t *domain.ContentType) error
	GetType(ctx context.Context, key string) (*domain.ContentType, error)
	ListTypes(ctx context.Context, includeInactive bool) ([]*domain.ContentType, error)
	UpdateType(ctx context.Context, t *domain.ContentType) error
	CountEntriesByType(ctx context.Context, key string) (int, error)

	// Entries
	CreateEntry(ctx context.Context, e *domain.Entry) error
	GetEntry(ctx context.Context, id int64) (*domain.Entry, error)
	GetEntrySummaries(ctx context.Context, ids []int64) (map[int64]*domain.EntrySummary, error)
	ListEntries(ctx context.Context, f domain.EntryFilter) (*Page[*domain.EntrySummary], error)
	UpdateEntry(ctx context.Context, e *domain.Entry, fields []string) error
	DeleteEntry(ctx context.Context, id int64) error
	SetArchived(ctx context.Context, id int64, archived bool) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	RecordView(ctx context.Context, id int64) (int64, time.Time, error)

	// Media
	AddMedia(ctx context.Context, m *domain.Media) error
	ListMedia(ctx context.Context, entryID int64) ([]*domain.Media, error)
	DeleteMedia(ctx context.Context, entryID, mediaID int64) error

	// Tags
	ListTags(ctx context.Context, limit int) ([]*domain.Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error)
	RebuildTagCounts(ctx context.Context) (int, error)

	// Shelves
	CreateShelf(ctx context.Context, sh *domain.Shelf) error
	GetShelf(ctx context.Context, id int64) (*domain.Shelf, error)
	ListShelves(ctx context.Context, nodeID *int64) ([]*domain.Shelf, error)
	UpdateShelf(ctx context.Context, sh *domain.Shelf) error
	DeleteShelf(ctx context.Context, id int64) error
	AddShelfItem(ctx context.Context, it *domain.ShelfItem) error
	ListShelfItems(ctx context.Context, shelfID int64, limit, offset int) (*Page[*domain.ShelfItem], error)
	MoveShelfItem(ctx context.Context, shelfID, itemID int64, position int) error
	RemoveShelfItem(ctx context.Context, shelfID, itemID int64) error

	// Search
	DocumentSource
	Search(ctx context.Context, q SearchQuery) (*SearchPage, error)
	Reindex(ctx context.Context) (int, error)

	// Activity, stats and settings
	LogActivity(ctx context.Context, a *domain.Activity) error
	ListActivity(ctx context.Context, f domain.ActivityFilter) ([]*domain.Activity, error)
	Stats(ctx context.Context) (*domain.Stats, error)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	SourceID(ctx context.Context) (string, error)

	// Snapshots
	ExportTables(ctx context.Context) (map[string][]Row, int, error)
	ReplaceAll(ctx context.Context, tables map[string][]Row, opts ReplaceOptions) (*ReplaceResult, error)
}
