package backup

import (
	"fmt"
	"time"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// Metadata describes where and when a snapshot was taken.
type Metadata struct {
	ExportedAt    time.Time      `json:"exported_at"`
	SchemaVersion int            `json:"schema_version"`
	SourceID      string         `json:"source_id"`
	AppVersion    string         `json:"app_version"`
	TableCounts   map[string]int `json:"table_counts"`
}

// Snapshot is a complete copy of the store. Tables are keyed by table name;
// each row maps column names to values.
type Snapshot struct {
	Metadata *Metadata               `json:"metadata"`
	Tables   map[string][]store.Row `json:"tables"`
}

// check rejects documents that cannot be imported at all and reports
// non-fatal inconsistencies between the metadata and the tables.
func (s *Snapshot) check(maxSchema int) ([]TableError, error) {
	if s == nil || s.Metadata == nil {
		return nil, ErrInvalidSnapshot.WithDetails("snapshot has no metadata")
	}
	if s.Tables == nil {
		return nil, ErrInvalidSnapshot.WithDetails("snapshot has no tables")
	}
	if maxSchema > 0 && s.Metadata.SchemaVersion > maxSchema {
		return nil, domainerrors.SchemaMismatchf("snapshot schema %d is newer than supported %d",
			s.Metadata.SchemaVersion, maxSchema)
	}

	var problems []TableError
	for _, table := range store.Tables {
		want, ok := s.Metadata.TableCounts[table]
		if !ok {
			continue
		}
		if got := len(s.Tables[table]); got != want {
			problems = append(problems, TableError{
				Table: table,
				Error: fmt.Sprintf("metadata lists %d rows, snapshot holds %d", want, got),
			})
		}
	}
	return problems, nil
}

// counts returns the row count of every table in the snapshot.
func counts(tables map[string][]store.Row) map[string]int {
	out := make(map[string]int, len(tables))
	for name, rows := range tables {
		out[name] = len(rows)
	}
	return out
}
