package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

// ShelfService manages shelves and their items.
type ShelfService struct {
	store     store.Store
	validator *validation.Validator
	activity  *ActivityService
	logger    *slog.Logger
}

// NewShelfService creates a new shelf service.
func NewShelfService(store store.Store, validator *validation.Validator, activity *ActivityService, logger *slog.Logger) *ShelfService {
	return &ShelfService{
		store:     store,
		validator: validator,
		activity:  activity,
		logger:    logger,
	}
}

// CreateShelfRequest describes a new shelf. Empty display fields take the defaults.
type CreateShelfRequest struct {
	NodeID      int64          `json:"hobby_id" validate:"required,gt=0"`
	Name        string         `json:"name" validate:"required,max=200"`
	Description string         `json:"description,omitempty" validate:"max=2000"`
	Type        string         `json:"type,omitempty" validate:"max=50"`
	ViewMode    string         `json:"view_mode,omitempty" validate:"omitempty,oneof=list grid compact"`
	SortBy      string         `json:"sort_by,omitempty" validate:"omitempty,oneof=created_at title position added_at"`
	SortOrder   string         `json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
	Config      map[string]any `json:"config,omitempty"`
	Position    int            `json:"position,omitempty" validate:"gte=0"`
}

// UpdateShelfRequest is a partial update. Nil fields are left unchanged.
type UpdateShelfRequest struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=2000"`
	Type        *string        `json:"type,omitempty" validate:"omitempty,max=50"`
	ViewMode    *string        `json:"view_mode,omitempty" validate:"omitempty,oneof=list grid compact"`
	SortBy      *string        `json:"sort_by,omitempty" validate:"omitempty,oneof=created_at title position added_at"`
	SortOrder   *string        `json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
	Config      map[string]any `json:"config,omitempty"`
	Position    *int           `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// AddItemRequest adds an internal entry, an external item, or both. A nil
// Position appends the item after the last one.
type AddItemRequest struct {
	EntryID     *int64         `json:"entry_id,omitempty" validate:"omitempty,gt=0"`
	ExternalURL string         `json:"external_url,omitempty" validate:"omitempty,url,max=2048"`
	Title       string         `json:"title,omitempty" validate:"max=500"`
	Subtitle    string         `json:"subtitle,omitempty" validate:"max=500"`
	CoverURL    string         `json:"cover_url,omitempty" validate:"omitempty,url,max=2048"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Position    *int           `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// CreateShelf creates a shelf under a hobby.
func (s *ShelfService) CreateShelf(ctx context.Context, req CreateShelfRequest) (*domain.Shelf, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetNode(ctx, req.NodeID); err != nil {
		return nil, referenceError("hobby_id", err)
	}

	sh := &domain.Shelf{
		NodeID:      req.NodeID,
		Name:        req.Name,
		Description: req.Description,
		Type:        cmpOr(req.Type, domain.DefaultShelfType),
		ViewMode:    domain.ViewMode(cmpOr(req.ViewMode, string(domain.DefaultShelfViewMode))),
		SortBy:      cmpOr(req.SortBy, domain.DefaultShelfSortBy),
		SortOrder:   cmpOr(req.SortOrder, domain.DefaultShelfSortOrder),
		Config:      req.Config,
		Position:    req.Position,
	}
	if sh.Config == nil {
		sh.Config = map[string]any{}
	}
	if err := s.store.CreateShelf(ctx, sh); err != nil {
		return nil, referenceError("hobby_id", err)
	}

	s.logger.Info("shelf created",
		"shelf_id", sh.ID,
		"hobby_id", sh.NodeID,
		"name", sh.Name,
	)
	s.activity.Record(ctx, domain.ActionCreate, domain.EntityShelf, sh.ID, map[string]any{"name": sh.Name, "hobby_id": sh.NodeID})

	return sh, nil
}

// GetShelf returns a shelf with its item count.
func (s *ShelfService) GetShelf(ctx context.Context, id int64) (*domain.Shelf, error) {
	sh, err := s.store.GetShelf(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return sh, nil
}

// ListShelves returns shelves by position then name, optionally for one hobby.
func (s *ShelfService) ListShelves(ctx context.Context, nodeID *int64) ([]*domain.Shelf, error) {
	shelves, err := s.store.ListShelves(ctx, nodeID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return shelves, nil
}

// UpdateShelf applies a partial update.
func (s *ShelfService) UpdateShelf(ctx context.Context, id int64, req UpdateShelfRequest) (*domain.Shelf, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	sh, err := s.store.GetShelf(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domainerrors.Fields("name is required", []string{"name"}, map[string]string{"name": "is required"})
		}
		sh.Name = name
	}
	if req.Description != nil {
		sh.Description = *req.Description
	}
	if req.Type != nil {
		sh.Type = cmpOr(*req.Type, domain.DefaultShelfType)
	}
	if req.ViewMode != nil {
		sh.ViewMode = domain.ViewMode(cmpOr(*req.ViewMode, string(domain.DefaultShelfViewMode)))
	}
	if req.SortBy != nil {
		sh.SortBy = cmpOr(*req.SortBy, domain.DefaultShelfSortBy)
	}
	if req.SortOrder != nil {
		sh.SortOrder = cmpOr(*req.SortOrder, domain.DefaultShelfSortOrder)
	}
	if req.Config != nil {
		sh.Config = req.Config
	}
	if req.Position != nil {
		sh.Position = *req.Position
	}

	if err := s.store.UpdateShelf(ctx, sh); err != nil {
		return nil, mapStoreError(err)
	}
	s.logger.Info("shelf updated", "shelf_id", sh.ID)
	s.activity.Record(ctx, domain.ActionUpdate, domain.EntityShelf, sh.ID, map[string]any{"name": sh.Name})

	return sh, nil
}

// DeleteShelf removes a shelf and its items. Referenced entries are untouched.
func (s *ShelfService) DeleteShelf(ctx context.Context, id int64) error {
	if err := s.store.DeleteShelf(ctx, id); err != nil {
		return mapStoreError(err)
	}
	s.logger.Info("shelf deleted", "shelf_id", id)
	s.activity.Record(ctx, domain.ActionDelete, domain.EntityShelf, id, nil)
	return nil
}

// AddItem puts an entry or an external item on a shelf. The item must name
// an entry or carry an external title or URL.
func (s *ShelfService) AddItem(ctx context.Context, shelfID int64, req AddItemRequest) (*domain.ShelfItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.ExternalURL = strings.TrimSpace(req.ExternalURL)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.EntryID == nil && req.Title == "" && req.ExternalURL == "" {
		return nil, domainerrors.Fields("item needs an entry or an external title or URL",
			[]string{"entry_id", "title", "external_url"},
			map[string]string{
				"entry_id":     "is required when title and external_url are empty",
				"title":        "is required when entry_id and external_url are empty",
				"external_url": "is required when entry_id and title are empty",
			})
	}

	it := &domain.ShelfItem{
		ShelfID:     shelfID,
		EntryID:     req.EntryID,
		ExternalURL: req.ExternalURL,
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		CoverURL:    req.CoverURL,
		Metadata:    req.Metadata,
		Position:    domain.PositionAppend,
	}
	if req.Position != nil {
		it.Position = *req.Position
	}
	if it.Metadata == nil {
		it.Metadata = map[string]any{}
	}
	if err := s.store.AddShelfItem(ctx, it); err != nil {
		return nil, mapStoreError(err)
	}

	s.logger.Info("shelf item added",
		"shelf_id", shelfID,
		"item_id", it.ID,
		"internal", it.Internal,
	)
	s.activity.Record(ctx, domain.ActionAddItem, domain.EntityShelf, shelfID, map[string]any{"item_id": it.ID, "title": it.DisplayTitle})

	return it, nil
}

// ListItems returns a shelf's items by position, newest first within a
// position. Display fields prefer the linked entry over external fields.
func (s *ShelfService) ListItems(ctx context.Context, shelfID int64, limit, offset int) (*store.Page[*domain.ShelfItem], error) {
	if _, err := s.store.GetShelf(ctx, shelfID); err != nil {
		return nil, mapStoreError(err)
	}
	page, err := s.store.ListShelfItems(ctx, shelfID, domain.ClampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, mapStoreError(err)
	}
	return page, nil
}

// RemoveItem takes an item off a shelf.
func (s *ShelfService) RemoveItem(ctx context.Context, shelfID, itemID int64) error {
	if err := s.store.RemoveShelfItem(ctx, shelfID, itemID); err != nil {
		return mapStoreError(err)
	}
	s.activity.Record(ctx, domain.ActionRemove, domain.EntityShelf, shelfID, map[string]any{"item_id": itemID})
	return nil
}

// MoveItem changes an item's position.
func (s *ShelfService) MoveItem(ctx context.Context, shelfID, itemID int64, position int) error {
	if position < 0 {
		return domainerrors.Fields("invalid position", []string{"position"}, map[string]string{"position": "must be greater than or equal to 0"})
	}
	if err := s.store.MoveShelfItem(ctx, shelfID, itemID, position); err != nil {
		return mapStoreError(err)
	}
	return nil
}
