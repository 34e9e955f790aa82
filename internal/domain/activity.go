package domain

import "time"

// Entity types recorded in the activity log.
const (
	EntityNode  = "hobby"
	EntityType  = "hobby_type"
	EntityEntry = "entry"
	EntityShelf = "shelf"
	EntityMedia = "media"
	EntityStore = "store"
)

// Activity actions.
const (
	ActionCreate    = "create"
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionArchive   = "archive"
	ActionUnarchive = "unarchive"
	ActionRegister  = "register"
	ActionRetire    = "retire"
	ActionAddItem   = "add_item"
	ActionRemove    = "remove_item"
	ActionRestore   = "restore"
)

// Activity is an append-only audit record.
type Activity struct {
	ID         int64          `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ActivityFilter narrows ListActivity. Zero values match everything.
type ActivityFilter struct {
	EntityType string
	EntityID   int64
	Limit      int
}
