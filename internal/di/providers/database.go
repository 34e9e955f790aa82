package providers

import (
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/logger"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Database.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Database.Path, "schema_version", sqlite.SchemaVersion)

	return &StoreHandle{Store: db}, nil
}
