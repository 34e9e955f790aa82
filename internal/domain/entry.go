package domain

import (
	"maps"
	"slices"
	"time"
)

// Properties is the type-specific payload of an entry: property key to a
// decoded JSON value. Each update replaces the whole set.
type Properties map[string]any

// Keys returns property keys in sorted order.
func (p Properties) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Entry is a typed content item owned by exactly one taxonomy node.
type Entry struct {
	ID           int64      `json:"id"`
	NodeID       int64      `json:"hobby_id"`
	NodeName     string     `json:"hobby_name,omitempty"`
	NodeSlug     string     `json:"hobby_slug,omitempty"`
	TypeKey      string     `json:"type_key"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Markdown     string     `json:"content_markdown"`
	ContentHTML  string     `json:"content_html,omitempty"`
	Tags         []string   `json:"tags"`
	Properties   Properties `json:"properties"`
	Media        []*Media   `json:"media,omitempty"`
	Favorite     bool       `json:"is_favorite"`
	Archived     bool       `json:"is_archived"`
	ViewCount    int64      `json:"view_count"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ArchiveFilter selects entries by archived flag.
type ArchiveFilter string

// Archive filter values. The zero value behaves like ArchiveExclude.
const (
	ArchiveExclude ArchiveFilter = "exclude"
	ArchiveOnly    ArchiveFilter = "only"
	ArchiveAll     ArchiveFilter = "all"
)

// Valid reports whether f is a known filter (empty counts as exclude).
func (f ArchiveFilter) Valid() bool {
	switch f {
	case "", ArchiveExclude, ArchiveOnly, ArchiveAll:
		return true
	default:
		return false
	}
}

// Listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// EntryFilter narrows ListEntries.
type EntryFilter struct {
	NodeID             *int64
	IncludeDescendants bool
	TypeKey            string
	Favorite           *bool
	Archived           ArchiveFilter
	Tag                string // tag slug
	Limit              int
	Offset             int
}

// EntrySummary is the compact form used in listings and search hits.
type EntrySummary struct {
	ID          int64     `json:"id"`
	NodeID      int64     `json:"hobby_id"`
	NodeName    string    `json:"hobby_name"`
	TypeKey     string    `json:"type_key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Favorite    bool      `json:"is_favorite"`
	Archived    bool      `json:"is_archived"`
	ViewCount   int64     `json:"view_count"`
	CreatedAt   time.Time `json:"created_at"`
}
