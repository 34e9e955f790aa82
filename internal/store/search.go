package store

import (
	"context"
	"iter"
)

// SearchDocument is the indexed projection of an entry.
type SearchDocument struct {
	ID          int64
	NodeID      int64
	TypeKey     string
	Title       string
	Description string
	Body        string // plain text rendered from the markdown body
	Tags        string // comma-joined tag names
	Archived    bool
}

// SearchQuery is a tokenized search request.
type SearchQuery struct {
	Text            string
	Tokens          []string
	NodeID          *int64
	TypeKey         string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// SearchHit is one matching entry id with its relevance (higher is better).
type SearchHit struct {
	ID   int64
	Rank float64
}

// SearchPage is one page of hits plus the total number of matches.
type SearchPage struct {
	Total int
	Hits  []SearchHit
}

// SearchIndexer keeps a full-text index in step with entry writes. The write
// methods are called with the entry's own transaction.
type SearchIndexer interface {
	Name() string
	IndexEntry(ctx context.Context, tx *Tx, doc *SearchDocument) error
	DeleteEntry(ctx context.Context, tx *Tx, entryID int64) error
	// Reset drops every document. Callers re-index inside the same transaction.
	Reset(ctx context.Context, tx *Tx) error
	Search(ctx context.Context, q SearchQuery) (*SearchPage, error)
}

// DocumentSource loads search documents from committed state. Indexers that
// live outside the database use it to repair themselves after a failed commit.
type DocumentSource interface {
	// SearchDocuments returns documents for ids, or for every entry when ids is nil.
	SearchDocuments(ctx context.Context, ids []int64) iter.Seq2[*SearchDocument, error]
}
