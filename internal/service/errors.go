package service

import (
	"errors"
	"fmt"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// mapStoreError converts store errors to domain errors under the store
// error's code. Anything else is returned unchanged.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var se *store.Error
	if !errors.As(err, &se) {
		return err
	}
	return domainerrors.Wrap(err, se.Code, se.Message)
}

// referenceError reports a missing referenced record (parent hobby, owning
// hobby) as a validation failure of the field that points at it.
func referenceError(field string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.Fields(fmt.Sprintf("%s does not reference an existing record", field),
			[]string{field}, map[string]string{field: "does not exist"}).WithCause(err)
	}
	return mapStoreError(err)
}
