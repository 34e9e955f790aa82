package backup

import (
	"strings"
	"time"
)

// Compression selects the snapshot container.
type Compression string

const (
	// CompressionNone writes plain JSON.
	CompressionNone Compression = "none"

	// CompressionGzip writes gzip-compressed JSON.
	CompressionGzip Compression = "gzip"

	// CompressionZip writes a zip archive holding a single snapshot.json.
	CompressionZip Compression = "zip"
)

// snapshotEntry is the file name inside zip containers.
const snapshotEntry = "snapshot.json"

// Valid returns true if the compression is recognized.
func (c Compression) Valid() bool {
	switch c {
	case CompressionNone, CompressionGzip, CompressionZip:
		return true
	default:
		return false
	}
}

// Ext returns the file extension for the container, including the dot.
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return ".json.gz"
	case CompressionZip:
		return ".zip"
	default:
		return ".json"
	}
}

// compressionOf infers the container from a file name. The second result
// is false for names that are not snapshots.
func compressionOf(name string) (Compression, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".json.gz"):
		return CompressionGzip, true
	case strings.HasSuffix(lower, ".zip"):
		return CompressionZip, true
	case strings.HasSuffix(lower, ".json"):
		return CompressionNone, true
	default:
		return "", false
	}
}

// CreateOptions configures snapshot creation.
type CreateOptions struct {
	Compression Compression // empty uses the service default
}

// ImportOptions configures a restore.
type ImportOptions struct {
	Confirm bool     // must be true; a restore replaces live data
	Tables  []string // restrict the restore to these tables; empty means all
}

// CreateResult contains the outcome of a snapshot creation.
type CreateResult struct {
	Name        string         `json:"name"`
	Path        string         `json:"-"`
	Size        int64          `json:"size"`
	Compression Compression    `json:"compression"`
	TableCounts map[string]int `json:"table_counts"`
	Checksum    string         `json:"checksum"` // sha256 of the file
	Duration    time.Duration  `json:"duration"`
}

// SnapshotInfo describes a stored snapshot file.
type SnapshotInfo struct {
	Name        string      `json:"name"`
	Path        string      `json:"-"`
	Size        int64       `json:"size"`
	CreatedAt   time.Time   `json:"created_at"`
	Compressed  bool        `json:"compressed"`
	Compression Compression `json:"compression"`
}

// TableError is a per-table problem that did not abort the restore.
type TableError struct {
	Table string `json:"table"`
	Error string `json:"error"`
}

// RestoreResult contains the outcome of a restore.
type RestoreResult struct {
	Imported     map[string]int `json:"imported"`
	Skipped      []string       `json:"skipped"`
	Errors       []TableError   `json:"errors"`
	Indexed      int            `json:"indexed"`
	SafetyBackup string         `json:"safety_backup"`
	Duration     time.Duration  `json:"duration"`
}
