package domain

import "time"

// ContentType describes a kind of entry (article, photo, recipe...) and the
// shape of its properties. Entries reference it by Key without a foreign key,
// so retiring a type leaves historical entries intact.
type ContentType struct {
	ID        int64          `json:"id"`
	Key       string         `json:"key"`
	Name      string         `json:"name"`
	Schema    map[string]any `json:"schema"`
	UIConfig  map[string]any `json:"ui_config"`
	Version   int            `json:"version"`
	Active    bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
