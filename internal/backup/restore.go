package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// Import replaces the store contents with snap.
//
// A copy of the live database is written to the backup directory first and
// its path returned in the result. The copy and the replace run under one
// exclusive hold on the store, so no write falls between them. The replace
// itself runs in one transaction, so a snapshot that does not fit the
// schema, breaks a foreign key or fails to index leaves live data untouched.
func (s *BackupService) Import(ctx context.Context, snap *Snapshot, opts ImportOptions) (*RestoreResult, error) {
	if !opts.Confirm {
		return nil, ErrConfirmationRequired
	}
	problems, err := snap.check(s.cfg.SchemaVersion)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	safety, err := s.safetyPath()
	if err != nil {
		return nil, err
	}

	s.logger.Info("restoring snapshot",
		"source_id", snap.Metadata.SourceID,
		"exported_at", snap.Metadata.ExportedAt,
		"tables", opts.Tables,
		"safety_backup", safety)

	replaced, err := s.store.ReplaceAll(ctx, snap.Tables, store.ReplaceOptions{
		Only:       opts.Tables,
		SafetyCopy: safety,
	})
	if err != nil {
		err = importError(err)
		s.logger.Error("restore failed, live data unchanged",
			"code", domainerrors.CodeOf(err),
			"error", err,
			"safety_backup", safety)
		return nil, err
	}

	result := &RestoreResult{
		Imported:     replaced.Imported,
		Skipped:      replaced.Skipped,
		Errors:       problems,
		Indexed:      replaced.Indexed,
		SafetyBackup: safety,
		Duration:     time.Since(start),
	}
	if result.Skipped == nil {
		result.Skipped = []string{}
	}
	if result.Errors == nil {
		result.Errors = []TableError{}
	}
	for _, table := range result.Skipped {
		result.Errors = append(result.Errors, TableError{Table: table, Error: "unknown table skipped"})
	}

	s.logger.Info("restore complete",
		"imported", result.Imported,
		"skipped", len(result.Skipped),
		"indexed", result.Indexed,
		"duration", result.Duration)

	if s.cfg.Activity != nil {
		s.cfg.Activity.Record(ctx, domain.ActionRestore, domain.EntityStore, 0, map[string]any{
			"source_id":     snap.Metadata.SourceID,
			"exported_at":   snap.Metadata.ExportedAt,
			"safety_backup": filepath.Base(safety),
			"tables":        opts.Tables,
		})
	}
	return result, nil
}

// Restore imports a stored snapshot by name.
func (s *BackupService) Restore(ctx context.Context, name string, opts ImportOptions) (*RestoreResult, error) {
	if !opts.Confirm {
		return nil, ErrConfirmationRequired
	}
	info, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	snap, err := s.Load(info.Path)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, snap, opts)
}

// Recover restores a safety backup database file. A bare file name is
// looked up in the backup directory.
func (s *BackupService) Recover(ctx context.Context, path string, opts ImportOptions) (*RestoreResult, error) {
	if !opts.Confirm {
		return nil, ErrConfirmationRequired
	}
	if s.cfg.LoadDatabase == nil {
		return nil, domainerrors.Unavailable("database recovery is not configured")
	}
	if path == filepath.Base(path) {
		path = filepath.Join(s.cfg.Dir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, ErrBackupNotFound.WithCause(err)
	}

	tables, version, err := s.cfg.LoadDatabase(ctx, path)
	if err != nil {
		return nil, ErrInvalidSnapshot.WithCause(err)
	}
	snap := &Snapshot{
		Metadata: &Metadata{
			ExportedAt:    s.now().UTC(),
			SchemaVersion: version,
			SourceID:      "recovered:" + filepath.Base(path),
			AppVersion:    s.cfg.AppVersion,
			TableCounts:   counts(tables),
		},
		Tables: tables,
	}
	return s.Import(ctx, snap, opts)
}

// safetyPath picks a fresh file name in the backup directory for the copy
// of the live database taken before a restore.
func (s *BackupService) safetyPath() (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(s.cfg.Dir, safetyPrefix+s.now().UTC().Format(timeLayout)+".db")
	if _, err := os.Stat(path); err == nil {
		// Two restores in the same second.
		path = filepath.Join(s.cfg.Dir, fmt.Sprintf("%s%s-%d.db", safetyPrefix,
			s.now().UTC().Format(timeLayout), time.Now().UnixNano()))
	}
	return path, nil
}
