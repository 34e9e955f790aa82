package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/api"
	"github.com/hobbyshelf/hobbyshelf-server/internal/backup"
	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/logger"
	"github.com/hobbyshelf/hobbyshelf-server/internal/ratelimit"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
)

// RateLimiterHandle stops the limiter's janitor on shutdown.
type RateLimiterHandle struct {
	*ratelimit.Limiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Close()
	}
	return nil
}

// ProvideRateLimiter provides the per-client request limiter. A zero rate
// disables limiting.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Server.RateLimitRPS == 0 {
		return &RateLimiterHandle{}, nil
	}
	return &RateLimiterHandle{
		Limiter: ratelimit.New(ratelimit.Config{
			RPS:   cfg.Server.RateLimitRPS,
			Burst: cfg.Server.RateLimitBurst,
		}),
	}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideAPIServer provides the HTTP handler with every route registered.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)

	services := &api.Services{
		Taxonomy: do.MustInvoke[*service.TaxonomyService](i),
		Types:    do.MustInvoke[*service.TypeService](i),
		Entries:  do.MustInvoke[*service.EntryService](i),
		Tags:     do.MustInvoke[*service.TagService](i),
		Shelves:  do.MustInvoke[*service.ShelfService](i),
		Search:   do.MustInvoke[*service.SearchService](i),
		Stats:    do.MustInvoke[*service.StatsService](i),
		Activity: do.MustInvoke[*service.ActivityService](i),
		Backup:   do.MustInvoke[*backup.BackupService](i),
	}

	return api.NewServer(services, limiter.Limiter, api.Options{
		Version:     Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		SearchIndex: storeHandle.SearchEngine(),
	}, log.Logger), nil
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*api.Server](i)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
