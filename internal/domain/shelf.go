package domain

import "time"

// ViewMode is a shelf display hint.
type ViewMode string

// View modes.
const (
	ViewList    ViewMode = "list"
	ViewGrid    ViewMode = "grid"
	ViewCompact ViewMode = "compact"
)

// Shelf defaults.
const (
	DefaultShelfType      = "general"
	DefaultShelfViewMode  = ViewGrid
	DefaultShelfSortBy    = "created_at"
	DefaultShelfSortOrder = "desc"
)

// Shelf is a named, ordered collection scoped to a taxonomy node.
type Shelf struct {
	ID          int64          `json:"id"`
	NodeID      int64          `json:"hobby_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	ViewMode    ViewMode       `json:"view_mode"`
	SortBy      string         `json:"sort_by"`
	SortOrder   string         `json:"sort_order"`
	Config      map[string]any `json:"config"`
	Position    int            `json:"position"`
	ItemCount   int            `json:"item_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PositionAppend asks AddShelfItem to place an item after the last one.
const PositionAppend = -1

// ShelfItem references an internal entry, an external item, or both.
type ShelfItem struct {
	ID          int64          `json:"id"`
	ShelfID     int64          `json:"shelf_id"`
	EntryID     *int64         `json:"entry_id,omitempty"`
	ExternalURL string         `json:"external_url,omitempty"`
	Title       string         `json:"title,omitempty"`
	Subtitle    string         `json:"subtitle,omitempty"`
	CoverURL    string         `json:"cover_url,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	Position    int            `json:"position"`
	AddedAt     time.Time      `json:"added_at"`

	// Resolved for display.
	DisplayTitle    string `json:"display_title"`
	DisplaySubtitle string `json:"display_subtitle"`
	Internal        bool   `json:"internal"`
}

// Resolve fills the display fields. Fields of the backing entry win; the
// item's own external fields are the fallback for anything the entry leaves empty.
func (i *ShelfItem) Resolve(entryTitle, entryDescription string, entryFound bool) {
	i.Internal = i.EntryID != nil && entryFound
	i.DisplayTitle = i.Title
	i.DisplaySubtitle = i.Subtitle
	if !i.Internal {
		return
	}
	if entryTitle != "" {
		i.DisplayTitle = entryTitle
	}
	if entryDescription != "" {
		i.DisplaySubtitle = entryDescription
	}
}
