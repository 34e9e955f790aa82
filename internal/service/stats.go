package service

import (
	"context"
	"log/slog"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// StatsService reports collection counts.
type StatsService struct {
	store  store.Store
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(store store.Store, logger *slog.Logger) *StatsService {
	return &StatsService{
		store:  store,
		logger: logger,
	}
}

// Stats returns row counts for the whole collection.
func (s *StatsService) Stats(ctx context.Context) (*domain.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return st, nil
}
