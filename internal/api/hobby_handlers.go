package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
)

func (s *Server) registerHobbyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listHobbies",
		Method:      http.MethodGet,
		Path:        "/api/v1/hobbies",
		Summary:     "List hobbies",
		Description: "Returns hobbies ordered by position and name",
		Tags:        []string{"Hobbies"},
	}, s.handleListHobbies)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createHobby",
		Method:        http.MethodPost,
		Path:          "/api/v1/hobbies",
		Summary:       "Create hobby",
		Description:   "Creates a hobby, optionally under a parent",
		Tags:          []string{"Hobbies"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateHobby)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHobbyTree",
		Method:      http.MethodGet,
		Path:        "/api/v1/hobbies/tree",
		Summary:     "Hobby tree",
		Description: "Returns the active hobby forest with entry counts",
		Tags:        []string{"Hobbies"},
	}, s.handleHobbyTree)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHobbyBySlug",
		Method:      http.MethodGet,
		Path:        "/api/v1/hobbies/slug/{slug}",
		Summary:     "Get hobby by slug",
		Tags:        []string{"Hobbies"},
	}, s.handleGetHobbyBySlug)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHobby",
		Method:      http.MethodGet,
		Path:        "/api/v1/hobbies/{id}",
		Summary:     "Get hobby",
		Tags:        []string{"Hobbies"},
	}, s.handleGetHobby)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateHobby",
		Method:      http.MethodPatch,
		Path:        "/api/v1/hobbies/{id}",
		Summary:     "Update hobby",
		Description: "Partial update. The slug cannot change; parent changes are checked for cycles.",
		Tags:        []string{"Hobbies"},
	}, s.handleUpdateHobby)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveHobby",
		Method:      http.MethodPost,
		Path:        "/api/v1/hobbies/{id}/move",
		Summary:     "Move hobby",
		Description: "Reparents a hobby. Omit parent_id to make it a root.",
		Tags:        []string{"Hobbies"},
	}, s.handleMoveHobby)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteHobby",
		Method:      http.MethodDelete,
		Path:        "/api/v1/hobbies/{id}",
		Summary:     "Delete hobby",
		Description: "Deletes the hobby, its descendants, their entries and shelves",
		Tags:        []string{"Hobbies"},
	}, s.handleDeleteHobby)
}

// === DTOs ===

// ListHobbiesInput contains parameters for listing hobbies.
type ListHobbiesInput struct {
	IncludeInactive bool  `query:"include_inactive" doc:"Include deactivated hobbies"`
	ParentID        int64 `query:"parent_id" doc:"Only children of this hobby"`
	RootsOnly       bool  `query:"roots" doc:"Only root hobbies"`
}

// HobbiesResponse contains a list of hobbies.
type HobbiesResponse struct {
	Hobbies []*domain.Node `json:"hobbies" doc:"Hobbies"`
}

// HobbiesOutput wraps the hobby list for Huma.
type HobbiesOutput struct {
	Body HobbiesResponse
}

// HobbyOutput wraps a hobby for Huma.
type HobbyOutput struct {
	Body *domain.Node
}

// CreateHobbyInput wraps the create request for Huma.
type CreateHobbyInput struct {
	Body service.CreateNodeRequest
}

// HobbyIDInput identifies a hobby.
type HobbyIDInput struct {
	ID int64 `path:"id" doc:"Hobby ID"`
}

// HobbySlugInput identifies a hobby by slug.
type HobbySlugInput struct {
	Slug string `path:"slug" doc:"Hobby slug"`
}

// UpdateHobbyInput wraps the update request for Huma.
type UpdateHobbyInput struct {
	ID   int64 `path:"id" doc:"Hobby ID"`
	Body service.UpdateNodeRequest
}

// MoveHobbyInput wraps the move request for Huma.
type MoveHobbyInput struct {
	ID   int64 `path:"id" doc:"Hobby ID"`
	Body struct {
		ParentID *int64 `json:"parent_id,omitempty" doc:"New parent; omit for root"`
	}
}

// HobbyTreeResponse contains the hobby forest.
type HobbyTreeResponse struct {
	Tree []*domain.NodeTree `json:"tree" doc:"Root hobbies with nested children"`
}

// HobbyTreeOutput wraps the tree for Huma.
type HobbyTreeOutput struct {
	Body HobbyTreeResponse
}

// DeleteHobbyOutput reports what a subtree delete removed.
type DeleteHobbyOutput struct {
	Body *domain.DeleteSubtreeResult
}

// === Handlers ===

func (s *Server) handleListHobbies(ctx context.Context, input *ListHobbiesInput) (*HobbiesOutput, error) {
	var (
		nodes []*domain.Node
		err   error
	)
	switch {
	case input.ParentID > 0:
		nodes, err = s.services.Taxonomy.ListChildren(ctx, &input.ParentID)
	case input.RootsOnly:
		nodes, err = s.services.Taxonomy.ListChildren(ctx, nil)
	default:
		nodes, err = s.services.Taxonomy.ListNodes(ctx, input.IncludeInactive)
	}
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []*domain.Node{}
	}
	return &HobbiesOutput{Body: HobbiesResponse{Hobbies: nodes}}, nil
}

func (s *Server) handleCreateHobby(ctx context.Context, input *CreateHobbyInput) (*HobbyOutput, error) {
	n, err := s.services.Taxonomy.CreateNode(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &HobbyOutput{Body: n}, nil
}

func (s *Server) handleHobbyTree(ctx context.Context, _ *struct{}) (*HobbyTreeOutput, error) {
	tree, err := s.services.Taxonomy.NodeTree(ctx)
	if err != nil {
		return nil, err
	}
	return &HobbyTreeOutput{Body: HobbyTreeResponse{Tree: tree}}, nil
}

func (s *Server) handleGetHobbyBySlug(ctx context.Context, input *HobbySlugInput) (*HobbyOutput, error) {
	n, err := s.services.Taxonomy.GetNodeBySlug(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	return &HobbyOutput{Body: n}, nil
}

func (s *Server) handleGetHobby(ctx context.Context, input *HobbyIDInput) (*HobbyOutput, error) {
	n, err := s.services.Taxonomy.GetNode(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &HobbyOutput{Body: n}, nil
}

func (s *Server) handleUpdateHobby(ctx context.Context, input *UpdateHobbyInput) (*HobbyOutput, error) {
	n, err := s.services.Taxonomy.UpdateNode(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &HobbyOutput{Body: n}, nil
}

func (s *Server) handleMoveHobby(ctx context.Context, input *MoveHobbyInput) (*HobbyOutput, error) {
	n, err := s.services.Taxonomy.MoveNode(ctx, input.ID, input.Body.ParentID)
	if err != nil {
		return nil, err
	}
	return &HobbyOutput{Body: n}, nil
}

func (s *Server) handleDeleteHobby(ctx context.Context, input *HobbyIDInput) (*DeleteHobbyOutput, error) {
	res, err := s.services.Taxonomy.DeleteSubtree(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &DeleteHobbyOutput{Body: res}, nil
}
