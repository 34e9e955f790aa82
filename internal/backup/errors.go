// Package backup exports, stores and restores whole-store snapshots.
package backup

import (
	"errors"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

var (
	// ErrBackupNotFound indicates the requested snapshot file does not exist.
	ErrBackupNotFound = domainerrors.NotFound("backup not found")

	// ErrInvalidSnapshot indicates the document could not be decoded or is
	// missing its metadata.
	ErrInvalidSnapshot = domainerrors.BadRequest("invalid or corrupted snapshot")

	// ErrConfirmationRequired is returned when an import is not confirmed.
	ErrConfirmationRequired = domainerrors.Validation("restore replaces all data and must be confirmed")
)

// importError maps store restore failures to domain errors.
func importError(err error) error {
	var se *store.Error
	if !errors.As(err, &se) {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "restore failed")
	}
	return domainerrors.Wrap(err, se.Code, se.Message)
}
