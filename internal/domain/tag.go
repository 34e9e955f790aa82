package domain

import "time"

// Tag is a shared label. UsageCount always equals the number of entry_tags
// rows referencing the tag; tags that reach zero are removed.
type Tag struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Color      string    `json:"color,omitempty"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}
