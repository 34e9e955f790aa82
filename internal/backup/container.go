package backup

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"encoding/json/v2"
)

// Encode writes snap to w in the given container.
func Encode(w io.Writer, snap *Snapshot, c Compression) error {
	switch c {
	case CompressionGzip:
		gz := gzip.NewWriter(w)
		gz.Name = snapshotEntry
		if err := json.MarshalWrite(gz, snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return gz.Close()

	case CompressionZip:
		zw := zip.NewWriter(w)
		f, err := zw.Create(snapshotEntry)
		if err != nil {
			return fmt.Errorf("create zip entry: %w", err)
		}
		if err := json.MarshalWrite(f, snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return zw.Close()

	default:
		if err := json.MarshalWrite(w, snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return nil
	}
}

// Decode reads a snapshot from r in the given container. Zip containers are
// buffered in memory because the zip reader needs random access.
func Decode(r io.Reader, c Compression) (*Snapshot, error) {
	var src io.Reader = r
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, ErrInvalidSnapshot.WithCause(err)
		}
		defer gz.Close()
		src = gz

	case CompressionZip:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, ErrInvalidSnapshot.WithCause(err)
		}
		f, err := zr.Open(snapshotEntry)
		if err != nil {
			return nil, ErrInvalidSnapshot.WithDetails("archive has no " + snapshotEntry)
		}
		defer f.Close()
		src = f
	}

	var snap Snapshot
	if err := json.UnmarshalRead(src, &snap); err != nil {
		return nil, ErrInvalidSnapshot.WithCause(err)
	}
	if snap.Metadata == nil {
		return nil, ErrInvalidSnapshot.WithDetails("snapshot has no metadata")
	}
	return &snap, nil
}
