package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/logger"
	"github.com/hobbyshelf/hobbyshelf-server/internal/search"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
)

// SearchIndexHandle holds the optional Bleve index. Index is nil when the
// built-in FTS5 engine is selected.
type SearchIndexHandle struct {
	Index *search.BleveIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	return h.Index.Close()
}

// ProvideSearchIndex opens the configured search engine and installs it on
// the store.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if cfg.Search.Engine != config.SearchEngineBleve {
		log.Info("Search index initialized", "engine", storeHandle.SearchEngine())
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewBleveIndex(search.BleveOptions{
		Path:   cfg.Search.IndexPath,
		Source: storeHandle.Store,
		Logger: log.Logger,
	})
	if err != nil {
		return nil, err
	}
	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "engine", index.Name(), "path", cfg.Search.IndexPath, "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// ProvideSearchService provides the search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	_ = do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(storeHandle.Store, log.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty Bleve index in the
// background when the store already holds entries.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	if indexHandle.Index == nil {
		return
	}
	searchService := do.MustInvoke[*service.SearchService](i)
	statsService := do.MustInvoke[*service.StatsService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.Index.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	stats, err := statsService.Stats(ctx)
	if err != nil || stats.Entries == 0 {
		return
	}

	log.Info("Search index is empty but entries exist, triggering initial reindex",
		"entry_count", stats.Entries,
	)

	go func() {
		n, err := searchService.Reindex(context.Background())
		if err != nil {
			log.WithError(err).Error("Initial search reindex failed")
			return
		}
		log.Info("Initial search reindex completed", "documents", n)
	}()
}
