package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

func (s *Server) registerShelfRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listShelves",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelves",
		Summary:     "List shelves",
		Tags:        []string{"Shelves"},
	}, s.handleListShelves)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createShelf",
		Method:        http.MethodPost,
		Path:          "/api/v1/shelves",
		Summary:       "Create shelf",
		Tags:          []string{"Shelves"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "getShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelves/{id}",
		Summary:     "Get shelf",
		Tags:        []string{"Shelves"},
	}, s.handleGetShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateShelf",
		Method:      http.MethodPatch,
		Path:        "/api/v1/shelves/{id}",
		Summary:     "Update shelf",
		Tags:        []string{"Shelves"},
	}, s.handleUpdateShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteShelf",
		Method:      http.MethodDelete,
		Path:        "/api/v1/shelves/{id}",
		Summary:     "Delete shelf",
		Description: "Deletes the shelf and its items. Referenced entries are kept.",
		Tags:        []string{"Shelves"},
	}, s.handleDeleteShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "listShelfItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelves/{id}/items",
		Summary:     "List shelf items",
		Description: "Returns items in position order",
		Tags:        []string{"Shelves"},
	}, s.handleListShelfItems)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addShelfItem",
		Method:        http.MethodPost,
		Path:          "/api/v1/shelves/{id}/items",
		Summary:       "Add shelf item",
		Description:   "Adds an entry, an external item, or both. Without a position the item is appended.",
		Tags:          []string{"Shelves"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddShelfItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveShelfItem",
		Method:      http.MethodPatch,
		Path:        "/api/v1/shelves/{id}/items/{itemId}",
		Summary:     "Move shelf item",
		Tags:        []string{"Shelves"},
	}, s.handleMoveShelfItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeShelfItem",
		Method:      http.MethodDelete,
		Path:        "/api/v1/shelves/{id}/items/{itemId}",
		Summary:     "Remove shelf item",
		Tags:        []string{"Shelves"},
	}, s.handleRemoveShelfItem)
}

// === DTOs ===

// ListShelvesInput contains parameters for listing shelves.
type ListShelvesInput struct {
	HobbyID int64 `query:"hobby_id" doc:"Only shelves of this hobby"`
}

// ShelvesResponse contains a list of shelves.
type ShelvesResponse struct {
	Shelves []*domain.Shelf `json:"shelves" doc:"Shelves"`
}

// ShelvesOutput wraps the shelf list for Huma.
type ShelvesOutput struct {
	Body ShelvesResponse
}

// ShelfOutput wraps a shelf for Huma.
type ShelfOutput struct {
	Body *domain.Shelf
}

// CreateShelfInput wraps the create request for Huma.
type CreateShelfInput struct {
	Body service.CreateShelfRequest
}

// ShelfIDInput identifies a shelf.
type ShelfIDInput struct {
	ID int64 `path:"id" doc:"Shelf ID"`
}

// UpdateShelfInput wraps the update request for Huma.
type UpdateShelfInput struct {
	ID   int64 `path:"id" doc:"Shelf ID"`
	Body service.UpdateShelfRequest
}

// ListShelfItemsInput pages through a shelf.
type ListShelfItemsInput struct {
	ID     int64 `path:"id" doc:"Shelf ID"`
	Limit  int   `query:"limit" minimum:"0" doc:"Page size (default 50, max 100)"`
	Offset int   `query:"offset" minimum:"0" doc:"Items to skip"`
}

// ShelfItemsOutput wraps a page of items for Huma.
type ShelfItemsOutput struct {
	Body *store.Page[*domain.ShelfItem]
}

// AddShelfItemInput wraps the add request for Huma.
type AddShelfItemInput struct {
	ID   int64 `path:"id" doc:"Shelf ID"`
	Body service.AddItemRequest
}

// ShelfItemOutput wraps an item for Huma.
type ShelfItemOutput struct {
	Body *domain.ShelfItem
}

// ShelfItemIDInput identifies an item on a shelf.
type ShelfItemIDInput struct {
	ID     int64 `path:"id" doc:"Shelf ID"`
	ItemID int64 `path:"itemId" doc:"Item ID"`
}

// MoveShelfItemInput sets an item's position.
type MoveShelfItemInput struct {
	ID     int64 `path:"id" doc:"Shelf ID"`
	ItemID int64 `path:"itemId" doc:"Item ID"`
	Body   struct {
		Position int `json:"position" minimum:"0" doc:"New position"`
	}
}

// === Handlers ===

func (s *Server) handleListShelves(ctx context.Context, input *ListShelvesInput) (*ShelvesOutput, error) {
	var nodeID *int64
	if input.HobbyID > 0 {
		nodeID = &input.HobbyID
	}
	shelves, err := s.services.Shelves.ListShelves(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if shelves == nil {
		shelves = []*domain.Shelf{}
	}
	return &ShelvesOutput{Body: ShelvesResponse{Shelves: shelves}}, nil
}

func (s *Server) handleCreateShelf(ctx context.Context, input *CreateShelfInput) (*ShelfOutput, error) {
	sh, err := s.services.Shelves.CreateShelf(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &ShelfOutput{Body: sh}, nil
}

func (s *Server) handleGetShelf(ctx context.Context, input *ShelfIDInput) (*ShelfOutput, error) {
	sh, err := s.services.Shelves.GetShelf(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ShelfOutput{Body: sh}, nil
}

func (s *Server) handleUpdateShelf(ctx context.Context, input *UpdateShelfInput) (*ShelfOutput, error) {
	sh, err := s.services.Shelves.UpdateShelf(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ShelfOutput{Body: sh}, nil
}

func (s *Server) handleDeleteShelf(ctx context.Context, input *ShelfIDInput) (*MessageOutput, error) {
	if err := s.services.Shelves.DeleteShelf(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Shelf deleted"}}, nil
}

func (s *Server) handleListShelfItems(ctx context.Context, input *ListShelfItemsInput) (*ShelfItemsOutput, error) {
	page, err := s.services.Shelves.ListItems(ctx, input.ID, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return &ShelfItemsOutput{Body: page}, nil
}

func (s *Server) handleAddShelfItem(ctx context.Context, input *AddShelfItemInput) (*ShelfItemOutput, error) {
	item, err := s.services.Shelves.AddItem(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ShelfItemOutput{Body: item}, nil
}

func (s *Server) handleMoveShelfItem(ctx context.Context, input *MoveShelfItemInput) (*MessageOutput, error) {
	if err := s.services.Shelves.MoveItem(ctx, input.ID, input.ItemID, input.Body.Position); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Item moved"}}, nil
}

func (s *Server) handleRemoveShelfItem(ctx context.Context, input *ShelfItemIDInput) (*MessageOutput, error) {
	if err := s.services.Shelves.RemoveItem(ctx, input.ID, input.ItemID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Item removed"}}, nil
}
