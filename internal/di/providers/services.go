package providers

import (
	"github.com/samber/do/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/backup"
	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/logger"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store/sqlite"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

// ProvideActivityService provides the audit trail service.
func ProvideActivityService(i do.Injector) (*service.ActivityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewActivityService(storeHandle.Store, log.Logger), nil
}

// ProvideTaxonomyService provides the hobby tree service.
func ProvideTaxonomyService(i do.Injector) (*service.TaxonomyService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTaxonomyService(storeHandle.Store, validator, activity, log.Logger), nil
}

// ProvideTypeService provides the content type registry.
func ProvideTypeService(i do.Injector) (*service.TypeService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTypeService(storeHandle.Store, validator, activity, log.Logger), nil
}

// ProvideEntryService provides the entry service.
func ProvideEntryService(i do.Injector) (*service.EntryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	types := do.MustInvoke[*service.TypeService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEntryService(storeHandle.Store, types, validator, activity, log.Logger, service.EntryOptions{
		SchemaEnforcement: cfg.Content.SchemaEnforcement,
		ViewCountMode:     cfg.Content.ViewCountMode,
	}), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Logger), nil
}

// ProvideShelfService provides the shelf service.
func ProvideShelfService(i do.Injector) (*service.ShelfService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewShelfService(storeHandle.Store, validator, activity, log.Logger), nil
}

// ProvideStatsService provides the statistics service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(storeHandle.Store, log.Logger), nil
}

// ProvideBackupService provides snapshot export and restore.
func ProvideBackupService(i do.Injector) (*backup.BackupService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return backup.NewBackupService(storeHandle.Store, backup.Config{
		Dir:           cfg.Backup.Path,
		AppVersion:    Version,
		Compression:   backup.Compression(cfg.Backup.Compression),
		SchemaVersion: sqlite.SchemaVersion,
		LoadDatabase:  sqlite.LoadDatabaseFile,
		Activity:      activity,
	}, log.Logger), nil
}
