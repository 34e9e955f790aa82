// Package providers contains dependency injection providers for the HobbyShelf server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/logger"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideConfigFrom provides configuration built from explicit overrides
// instead of the process flag set.
func ProvideConfigFrom(o config.Overrides) func(do.Injector) (*config.Config, error) {
	return func(do.Injector) (*config.Config, error) {
		return config.Load(o)
	}
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting HobbyShelf Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.App.DataPath,
		"search_engine", cfg.Search.Engine,
		"schema_enforcement", cfg.Content.SchemaEnforcement,
	)

	return log, nil
}

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
