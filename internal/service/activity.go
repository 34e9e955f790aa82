package service

import (
	"context"
	"log/slog"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// ActivityService records and lists the audit trail.
type ActivityService struct {
	store  store.Store
	logger *slog.Logger
}

// NewActivityService creates a new activity service.
func NewActivityService(store store.Store, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		store:  store,
		logger: logger,
	}
}

// Record appends an activity row. Failures are logged and swallowed; the
// mutation being recorded has already committed.
func (s *ActivityService) Record(ctx context.Context, action, entityType string, entityID int64, details map[string]any) {
	if s == nil {
		return
	}
	a := &domain.Activity{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	if err := s.store.LogActivity(ctx, a); err != nil {
		s.logger.Warn("failed to record activity",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// List returns activity newest first.
func (s *ActivityService) List(ctx context.Context, filter domain.ActivityFilter) ([]*domain.Activity, error) {
	filter.Limit = domain.ClampLimit(filter.Limit)
	out, err := s.store.ListActivity(ctx, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return out, nil
}
