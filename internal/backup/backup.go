package backup

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/id"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

const (
	namePrefix   = "hobbyshelf-"
	safetyPrefix = ".safety-"
	timeLayout   = "20060102T150405Z"
)

// DatabaseLoader reads the tables and schema version of a database file.
// Recover uses it to read safety backups.
type DatabaseLoader func(ctx context.Context, path string) (map[string][]store.Row, int, error)

// ActivityRecorder receives an audit record after a successful restore.
type ActivityRecorder interface {
	Record(ctx context.Context, action, entityType string, entityID int64, details map[string]any)
}

// Config configures a BackupService.
type Config struct {
	Dir           string
	AppVersion    string
	Compression   Compression    // default container for Create
	SchemaVersion int            // newest snapshot schema accepted by Import; 0 accepts any
	LoadDatabase  DatabaseLoader // optional; Recover fails without it
	Activity      ActivityRecorder
}

// BackupService creates, lists and restores snapshots.
type BackupService struct {
	store  store.Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewBackupService creates a BackupService.
func NewBackupService(s store.Store, cfg Config, logger *slog.Logger) *BackupService {
	if !cfg.Compression.Valid() {
		cfg.Compression = CompressionGzip
	}
	return &BackupService{
		store:  s,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Dir returns the snapshot directory.
func (s *BackupService) Dir() string { return s.cfg.Dir }

// Export takes a consistent snapshot of the store.
func (s *BackupService) Export(ctx context.Context) (*Snapshot, error) {
	tables, version, err := s.store.ExportTables(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "export failed")
	}
	sourceID, err := s.store.SourceID(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "read source id")
	}
	return &Snapshot{
		Metadata: &Metadata{
			ExportedAt:    s.now().UTC(),
			SchemaVersion: version,
			SourceID:      sourceID,
			AppVersion:    s.cfg.AppVersion,
			TableCounts:   counts(tables),
		},
		Tables: tables,
	}, nil
}

// Create exports the store and writes the snapshot into the backup
// directory.
func (s *BackupService) Create(ctx context.Context, opts CreateOptions) (*CreateResult, error) {
	start := time.Now()

	c := opts.Compression
	if c == "" {
		c = s.cfg.Compression
	}
	if !c.Valid() {
		return nil, domainerrors.Validationf("unknown compression %q", c)
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	snap, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}

	token, err := id.Token(8)
	if err != nil {
		return nil, err
	}
	name := namePrefix + snap.Metadata.ExportedAt.Format(timeLayout) + "-" + token + c.Ext()
	path := filepath.Join(s.cfg.Dir, name)

	s.logger.Info("creating snapshot", "name", name, "compression", c)

	size, checksum, err := writeAtomic(path, func(w io.Writer) error {
		return Encode(w, snap, c)
	})
	if err != nil {
		return nil, err
	}

	result := &CreateResult{
		Name:        name,
		Path:        path,
		Size:        size,
		Compression: c,
		TableCounts: snap.Metadata.TableCounts,
		Checksum:    checksum,
		Duration:    time.Since(start),
	}
	s.logger.Info("snapshot complete",
		"name", name,
		"size", size,
		"duration", result.Duration,
		"checksum", checksum)
	return result, nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place. It returns the size and sha256 of what was written.
func writeAtomic(path string, write func(io.Writer) error) (int64, string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return 0, "", fmt.Errorf("create snapshot file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	if err := write(io.MultiWriter(f, hash)); err != nil {
		return 0, "", err
	}
	if err := f.Sync(); err != nil {
		return 0, "", fmt.Errorf("sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, "", fmt.Errorf("rename snapshot: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, "", err
	}
	return info.Size(), hex.EncodeToString(hash.Sum(nil)), nil
}

// List returns stored snapshots, newest first. Safety backups and
// temporary files are not listed.
func (s *BackupService) List(ctx context.Context) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []SnapshotInfo{}, nil
		}
		return nil, err
	}

	backups := []SnapshotInfo{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		c, ok := compressionOf(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, snapshotInfo(s.cfg.Dir, info, c))
	}

	slices.SortFunc(backups, func(a, b SnapshotInfo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Name, a.Name)
	})
	return backups, nil
}

// SafetyBackups lists the database copies taken before restores, newest
// first.
func (s *BackupService) SafetyBackups(ctx context.Context) ([]SnapshotInfo, error) {
	matches, err := filepath.Glob(filepath.Join(s.cfg.Dir, safetyPrefix+"*.db"))
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotInfo, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		out = append(out, SnapshotInfo{Name: info.Name(), Path: m, Size: info.Size(), CreatedAt: info.ModTime()})
	}
	// Names embed the timestamp.
	slices.SortFunc(out, func(a, b SnapshotInfo) int { return cmp.Compare(b.Name, a.Name) })
	return out, nil
}

// Get returns a stored snapshot by name.
func (s *BackupService) Get(ctx context.Context, name string) (*SnapshotInfo, error) {
	path, c, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}
	si := snapshotInfo(s.cfg.Dir, info, c)
	return &si, nil
}

// Delete removes a stored snapshot.
func (s *BackupService) Delete(ctx context.Context, name string) error {
	info, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := os.Remove(info.Path); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	s.logger.Info("snapshot deleted", "name", name)
	return nil
}

// Open returns the raw file of a stored snapshot for download. The caller
// closes it.
func (s *BackupService) Open(ctx context.Context, name string) (io.ReadCloser, *SnapshotInfo, error) {
	info, err := s.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(info.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot: %w", err)
	}
	return f, info, nil
}

// Load reads a snapshot from any path, inferring the container from the
// file name.
func (s *BackupService) Load(path string) (*Snapshot, error) {
	c, ok := compressionOf(path)
	if !ok {
		return nil, domainerrors.BadRequest("not a snapshot file: " + filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}
	defer f.Close()
	return Decode(f, c)
}

// resolve maps a snapshot name to a path inside the backup directory.
// Names with path components are rejected.
func (s *BackupService) resolve(name string) (string, Compression, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", "", ErrBackupNotFound
	}
	c, ok := compressionOf(name)
	if !ok {
		return "", "", ErrBackupNotFound
	}
	return filepath.Join(s.cfg.Dir, name), c, nil
}

func snapshotInfo(dir string, info fs.FileInfo, c Compression) SnapshotInfo {
	return SnapshotInfo{
		Name:        info.Name(),
		Path:        filepath.Join(dir, info.Name()),
		Size:        info.Size(),
		CreatedAt:   info.ModTime(),
		Compressed:  c != CompressionNone,
		Compression: c,
	}
}
