package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
	"github.com/hobbyshelf/hobbyshelf-server/internal/util"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

// TaxonomyService manages the hobby forest.
type TaxonomyService struct {
	store     store.Store
	validator *validation.Validator
	activity  *ActivityService
	logger    *slog.Logger
}

// NewTaxonomyService creates a new taxonomy service.
func NewTaxonomyService(store store.Store, validator *validation.Validator, activity *ActivityService, logger *slog.Logger) *TaxonomyService {
	return &TaxonomyService{
		store:     store,
		validator: validator,
		activity:  activity,
		logger:    logger,
	}
}

// CreateNodeRequest describes a new hobby. An empty slug is derived from the name.
type CreateNodeRequest struct {
	Name     string         `json:"name" validate:"required,max=100"`
	Slug     string         `json:"slug,omitempty" validate:"omitempty,max=100,slug"`
	ParentID *int64         `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
	Icon     string         `json:"icon,omitempty" validate:"max=32"`
	Color    string         `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Position int            `json:"position,omitempty" validate:"gte=0"`
	Config   map[string]any `json:"config,omitempty"`
}

// UpdateNodeRequest is a partial update. Nil fields are left unchanged.
// Slug may be sent back unchanged but never altered.
type UpdateNodeRequest struct {
	Name       *string        `json:"name,omitempty" validate:"omitempty,max=100"`
	Slug       *string        `json:"slug,omitempty"`
	Icon       *string        `json:"icon,omitempty" validate:"omitempty,max=32"`
	Color      *string        `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Position   *int           `json:"position,omitempty" validate:"omitempty,gte=0"`
	Config     map[string]any `json:"config,omitempty"`
	Active     *bool          `json:"is_active,omitempty"`
	ParentID   *int64         `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
	MoveToRoot bool           `json:"move_to_root,omitempty"`
}

// CreateNode creates a hobby. Returns a conflict error when the slug is taken.
func (s *TaxonomyService) CreateNode(ctx context.Context, req CreateNodeRequest) (*domain.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" {
		slug = util.Slugify(req.Name)
		if slug == "" {
			return nil, domainerrors.Fields("name has no characters usable in a slug",
				[]string{"name"}, map[string]string{"name": "has no characters usable in a slug"})
		}
	}

	n := &domain.Node{
		ParentID: req.ParentID,
		Name:     req.Name,
		Slug:     slug,
		Icon:     cmpOr(req.Icon, domain.DefaultNodeIcon),
		Color:    cmpOr(req.Color, domain.DefaultNodeColor),
		Config:   req.Config,
		Position: req.Position,
		Active:   true,
	}
	if n.Config == nil {
		n.Config = map[string]any{}
	}

	if err := s.store.CreateNode(ctx, n); err != nil {
		return nil, referenceError("parent_id", err)
	}

	s.logger.Info("hobby created",
		"hobby_id", n.ID,
		"slug", n.Slug,
	)
	s.activity.Record(ctx, domain.ActionCreate, domain.EntityNode, n.ID, map[string]any{"name": n.Name, "slug": n.Slug})

	return n, nil
}

// GetNode returns a hobby by ID.
func (s *TaxonomyService) GetNode(ctx context.Context, id int64) (*domain.Node, error) {
	n, err := s.store.GetNode(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return n, nil
}

// GetNodeBySlug returns a hobby by slug.
func (s *TaxonomyService) GetNodeBySlug(ctx context.Context, slug string) (*domain.Node, error) {
	n, err := s.store.GetNodeBySlug(ctx, slug)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return n, nil
}

// ListActiveNodes returns active hobbies ordered by position, then name.
func (s *TaxonomyService) ListActiveNodes(ctx context.Context) ([]*domain.Node, error) {
	return s.ListNodes(ctx, false)
}

// ListNodes returns hobbies, optionally including inactive ones.
func (s *TaxonomyService) ListNodes(ctx context.Context, includeInactive bool) ([]*domain.Node, error) {
	nodes, err := s.store.ListNodes(ctx, includeInactive)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return nodes, nil
}

// ListChildren returns the active children of parentID, or the roots when nil.
func (s *TaxonomyService) ListChildren(ctx context.Context, parentID *int64) ([]*domain.Node, error) {
	if parentID != nil {
		if _, err := s.store.GetNode(ctx, *parentID); err != nil {
			return nil, mapStoreError(err)
		}
	}
	nodes, err := s.store.ListChildren(ctx, parentID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return nodes, nil
}

// NodeTree returns the forest of active hobbies with direct entry counts.
// Children of an inactive hobby are hidden along with it.
func (s *TaxonomyService) NodeTree(ctx context.Context) ([]*domain.NodeTree, error) {
	all, err := s.store.ListNodes(ctx, true)
	if err != nil {
		return nil, mapStoreError(err)
	}
	counts, err := s.store.NodeEntryCounts(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}

	hidden := make(map[int64]bool)
	for _, n := range all {
		if !n.Active {
			hidden[n.ID] = true
		}
	}
	// Inactive ancestors hide the whole branch. Parents sort independently of
	// children, so repeat until no new node is hidden.
	for changed := true; changed; {
		changed = false
		for _, n := range all {
			if !hidden[n.ID] && n.ParentID != nil && hidden[*n.ParentID] {
				hidden[n.ID] = true
				changed = true
			}
		}
	}

	visible := make([]*domain.Node, 0, len(all))
	for _, n := range all {
		if !hidden[n.ID] {
			visible = append(visible, n)
		}
	}
	return domain.BuildForest(visible, counts), nil
}

// UpdateNode applies a partial update. Reparenting that would make the node
// its own ancestor is a validation error.
func (s *TaxonomyService) UpdateNode(ctx context.Context, id int64, req UpdateNodeRequest) (*domain.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	n, err := s.store.GetNode(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if req.Slug != nil && *req.Slug != n.Slug {
		return nil, domainerrors.Fields("slug is immutable", []string{"slug"}, map[string]string{"slug": "cannot be changed"})
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domainerrors.Fields("name is required", []string{"name"}, map[string]string{"name": "is required"})
		}
		n.Name = name
	}
	if req.Icon != nil {
		n.Icon = cmpOr(*req.Icon, domain.DefaultNodeIcon)
	}
	if req.Color != nil {
		n.Color = cmpOr(*req.Color, domain.DefaultNodeColor)
	}
	if req.Position != nil {
		n.Position = *req.Position
	}
	if req.Config != nil {
		n.Config = req.Config
	}
	if req.Active != nil {
		n.Active = *req.Active
	}

	moved := false
	switch {
	case req.MoveToRoot:
		moved = n.ParentID != nil
		n.ParentID = nil
	case req.ParentID != nil:
		if *req.ParentID == n.ID {
			return nil, domainerrors.Validation(store.ErrCycle.Message)
		}
		if _, err := s.store.GetNode(ctx, *req.ParentID); err != nil {
			return nil, referenceError("parent_id", err)
		}
		moved = n.ParentID == nil || *n.ParentID != *req.ParentID
		n.ParentID = req.ParentID
	}

	if err := s.store.UpdateNode(ctx, n); err != nil {
		return nil, mapStoreError(err)
	}

	s.logger.Info("hobby updated",
		"hobby_id", n.ID,
		"moved", moved,
	)
	details := map[string]any{"name": n.Name}
	if moved {
		details["parent_id"] = n.ParentID
	}
	s.activity.Record(ctx, domain.ActionUpdate, domain.EntityNode, n.ID, details)

	return n, nil
}

// MoveNode reparents a hobby. A nil parent makes it a root.
func (s *TaxonomyService) MoveNode(ctx context.Context, id int64, parentID *int64) (*domain.Node, error) {
	return s.UpdateNode(ctx, id, UpdateNodeRequest{ParentID: parentID, MoveToRoot: parentID == nil})
}

// DeleteSubtree removes a hobby, its descendants and everything they own in
// one transaction.
func (s *TaxonomyService) DeleteSubtree(ctx context.Context, id int64) (*domain.DeleteSubtreeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := s.store.GetNode(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	res, err := s.store.DeleteNodeSubtree(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.logger.Info("hobby deleted",
		"hobby_id", id,
		"slug", n.Slug,
		"nodes", res.Nodes,
		"entries", res.Entries,
		"shelves", res.Shelves,
	)
	s.activity.Record(ctx, domain.ActionDelete, domain.EntityNode, id, map[string]any{
		"slug":    n.Slug,
		"nodes":   res.Nodes,
		"entries": res.Entries,
		"shelves": res.Shelves,
	})

	return res, nil
}

func cmpOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
