package api

import (
	"github.com/hobbyshelf/hobbyshelf-server/internal/backup"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Taxonomy *service.TaxonomyService
	Types    *service.TypeService
	Entries  *service.EntryService
	Tags     *service.TagService
	Shelves  *service.ShelfService
	Search   *service.SearchService
	Stats    *service.StatsService
	Activity *service.ActivityService
	Backup   *backup.BackupService
}
