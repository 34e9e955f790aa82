package store

// Row is one table row keyed by column name.
type Row = map[string]any

// Tables lists every snapshotted table, parents before children. Deletes run
// in reverse.
var Tables = []string{
	"hobbies",
	"hobby_types",
	"entries",
	"entry_props",
	"entry_media",
	"tags",
	"entry_tags",
	"shelves",
	"shelf_items",
	"activity_logs",
	"app_settings",
}

// ReplaceOptions narrows a full-store replace.
type ReplaceOptions struct {
	// Only limits the replace to these tables when non-empty.
	Only []string
	// SafetyCopy, when set, is the file the live database is copied to
	// before any table is replaced. No write lands between the copy and
	// the replace.
	SafetyCopy string
}

// ReplaceResult reports what a full-store replace did.
type ReplaceResult struct {
	Imported map[string]int // rows inserted per table
	Skipped  []string       // snapshot tables this store does not have
	Indexed  int            // entries re-indexed for search
}
