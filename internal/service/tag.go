package service

import (
	"context"
	"log/slog"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
	"github.com/hobbyshelf/hobbyshelf-server/internal/util"
)

// DefaultPopularTags is how many tags PopularTags returns by default.
const DefaultPopularTags = 10

// TagService reads the shared tag registry and repairs its counters.
// Tags are created and released by entry writes, never directly.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		logger: logger,
	}
}

// ListTags returns tags by usage, most used first.
func (s *TagService) ListTags(ctx context.Context, limit int) ([]*domain.Tag, error) {
	tags, err := s.store.ListTags(ctx, domain.ClampLimit(limit))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return tags, nil
}

// PopularTags returns the n most used tags.
func (s *TagService) PopularTags(ctx context.Context, n int) ([]*domain.Tag, error) {
	if n <= 0 {
		n = DefaultPopularTags
	}
	return s.ListTags(ctx, n)
}

// GetTag looks a tag up by name or slug.
func (s *TagService) GetTag(ctx context.Context, nameOrSlug string) (*domain.Tag, error) {
	slug := util.Slugify(util.NormalizeTagName(nameOrSlug))
	if slug == "" {
		return nil, domainerrors.Validation("tag has no usable characters")
	}
	t, err := s.store.GetTagBySlug(ctx, slug)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return t, nil
}

// RebuildCounts recomputes usage counters and the denormalized tag strings
// from the entry_tags relation. Returns the number of rows repaired.
func (s *TagService) RebuildCounts(ctx context.Context) (int, error) {
	n, err := s.store.RebuildTagCounts(ctx)
	if err != nil {
		return 0, mapStoreError(err)
	}
	s.logger.Info("tag counts rebuilt", "repaired", n)
	return n, nil
}
