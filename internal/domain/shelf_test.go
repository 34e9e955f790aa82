package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShelfItem_Resolve(t *testing.T) {
	entryID := int64(12)

	tests := []struct {
		name         string
		item         ShelfItem
		entryTitle   string
		entryDesc    string
		entryFound   bool
		wantTitle    string
		wantSubtitle string
		wantInternal bool
	}{
		{
			name:         "entry fields win",
			item:         ShelfItem{EntryID: &entryID, Title: "Saved title", Subtitle: "Saved subtitle"},
			entryTitle:   "Country loaf",
			entryDesc:    "75% hydration",
			entryFound:   true,
			wantTitle:    "Country loaf",
			wantSubtitle: "75% hydration",
			wantInternal: true,
		},
		{
			name:         "external fields fill gaps",
			item:         ShelfItem{EntryID: &entryID, Subtitle: "From the book"},
			entryTitle:   "Country loaf",
			entryFound:   true,
			wantTitle:    "Country loaf",
			wantSubtitle: "From the book",
			wantInternal: true,
		},
		{
			name:         "external only",
			item:         ShelfItem{ExternalURL: "https://example.com/knife", Title: "Gyuto 210", Subtitle: "Aogami #2"},
			wantTitle:    "Gyuto 210",
			wantSubtitle: "Aogami #2",
		},
		{
			name:       "missing entry falls back",
			item:       ShelfItem{EntryID: &entryID, Title: "Kept"},
			entryFound: false,
			wantTitle:  "Kept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.item
			item.Resolve(tt.entryTitle, tt.entryDesc, tt.entryFound)
			assert.Equal(t, tt.wantTitle, item.DisplayTitle)
			assert.Equal(t, tt.wantSubtitle, item.DisplaySubtitle)
			assert.Equal(t, tt.wantInternal, item.Internal)
		})
	}
}
