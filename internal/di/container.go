// Package di provides dependency injection configuration for the HobbyShelf server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/api"
	"github.com/hobbyshelf/hobbyshelf-server/internal/backup"
	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/di/providers"
	"github.com/hobbyshelf/hobbyshelf-server/internal/logger"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	registerServices(injector)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// NewCLIContainer registers everything except the HTTP server, with
// configuration built from command-line overrides.
func NewCLIContainer(o config.Overrides) *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfigFrom(o))
	registerServices(injector)
	return injector
}

func registerServices(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Business services
	do.Provide(injector, providers.ProvideActivityService)
	do.Provide(injector, providers.ProvideTaxonomyService)
	do.Provide(injector, providers.ProvideTypeService)
	do.Provide(injector, providers.ProvideEntryService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideShelfService)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideBackupService)
}

// Bootstrap initializes all services and starts the HTTP server.
func Bootstrap(injector *do.RootScope) error {
	if err := BootstrapServices(injector); err != nil {
		return err
	}

	// Server
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*api.Server](injector)
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}

// BootstrapServices opens the store and search engine and builds the
// business services without starting a listener.
func BootstrapServices(injector *do.RootScope) error {
	// Core services first so the search engine is installed before any write.
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.SearchService](injector)

	// Business services
	_ = do.MustInvoke[*service.ActivityService](injector)
	_ = do.MustInvoke[*service.TaxonomyService](injector)
	_ = do.MustInvoke[*service.TypeService](injector)
	_ = do.MustInvoke[*service.EntryService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.ShelfService](injector)
	_ = do.MustInvoke[*service.StatsService](injector)
	_ = do.MustInvoke[*backup.BackupService](injector)

	return nil
}
