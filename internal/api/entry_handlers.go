package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

func (s *Server) registerEntryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listEntries",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries",
		Summary:     "List entries",
		Description: "Returns entries newest first. Archived entries are excluded unless asked for.",
		Tags:        []string{"Entries"},
	}, s.handleListEntries)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createEntry",
		Method:        http.MethodPost,
		Path:          "/api/v1/entries",
		Summary:       "Create entry",
		Description:   "Creates an entry under an active hobby. HTML content is converted to markdown.",
		Tags:          []string{"Entries"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEntry",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Get entry",
		Description: "Returns an entry with rendered HTML and media, and records a view",
		Tags:        []string{"Entries"},
	}, s.handleGetEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateEntry",
		Method:      http.MethodPatch,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Update entry",
		Description: "Partial update. Tags and properties are replaced as a whole when sent.",
		Tags:        []string{"Entries"},
	}, s.handleUpdateEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteEntry",
		Method:      http.MethodDelete,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Delete entry",
		Tags:        []string{"Entries"},
	}, s.handleDeleteEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "archiveEntry",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries/{id}/archive",
		Summary:     "Archive entry",
		Tags:        []string{"Entries"},
	}, s.handleArchiveEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "unarchiveEntry",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries/{id}/unarchive",
		Summary:     "Unarchive entry",
		Tags:        []string{"Entries"},
	}, s.handleUnarchiveEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "favoriteEntry",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries/{id}/favorite",
		Summary:     "Set favorite",
		Description: "Marks or unmarks an entry as favorite",
		Tags:        []string{"Entries"},
	}, s.handleFavoriteEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "listEntryMedia",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}/media",
		Summary:     "List media",
		Tags:        []string{"Entries"},
	}, s.handleListMedia)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addEntryMedia",
		Method:        http.MethodPost,
		Path:          "/api/v1/entries/{id}/media",
		Summary:       "Attach media",
		Description:   "Records metadata for a file stored elsewhere",
		Tags:          []string{"Entries"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddMedia)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteEntryMedia",
		Method:      http.MethodDelete,
		Path:        "/api/v1/entries/{id}/media/{mediaId}",
		Summary:     "Remove media",
		Tags:        []string{"Entries"},
	}, s.handleDeleteMedia)
}

// === DTOs ===

// ListEntriesInput contains filters for listing entries.
type ListEntriesInput struct {
	HobbyID            int64  `query:"hobby_id" doc:"Only entries of this hobby"`
	IncludeDescendants bool   `query:"include_descendants" doc:"With hobby_id, also include entries of descendant hobbies"`
	TypeKey            string `query:"type_key" doc:"Only entries of this type"`
	Favorite           string `query:"favorite" enum:"true,false" doc:"Filter by favorite flag"`
	Archived           string `query:"archived" enum:"exclude,only,all" doc:"Archived filter (default exclude)"`
	Tag                string `query:"tag" doc:"Tag slug"`
	Limit              int    `query:"limit" minimum:"0" doc:"Page size (default 50, max 100)"`
	Offset             int    `query:"offset" minimum:"0" doc:"Rows to skip"`
}

// EntriesOutput wraps a page of entry summaries for Huma.
type EntriesOutput struct {
	Body *store.Page[*domain.EntrySummary]
}

// EntryOutput wraps an entry for Huma.
type EntryOutput struct {
	Body *domain.Entry
}

// CreateEntryInput wraps the create request for Huma.
type CreateEntryInput struct {
	Body service.CreateEntryRequest
}

// EntryIDInput identifies an entry.
type EntryIDInput struct {
	ID int64 `path:"id" doc:"Entry ID"`
}

// UpdateEntryInput wraps the update request for Huma.
type UpdateEntryInput struct {
	ID   int64 `path:"id" doc:"Entry ID"`
	Body service.UpdateEntryRequest
}

// FavoriteEntryInput sets the favorite flag.
type FavoriteEntryInput struct {
	ID   int64 `path:"id" doc:"Entry ID"`
	Body struct {
		Favorite bool `json:"is_favorite" doc:"New favorite flag"`
	}
}

// AddMediaInput wraps the media metadata for Huma.
type AddMediaInput struct {
	ID   int64 `path:"id" doc:"Entry ID"`
	Body service.MediaInput
}

// MediaIDInput identifies one attachment of an entry.
type MediaIDInput struct {
	ID      int64 `path:"id" doc:"Entry ID"`
	MediaID int64 `path:"mediaId" doc:"Media ID"`
}

// MediaListResponse contains an entry's attachments.
type MediaListResponse struct {
	Media []*domain.Media `json:"media" doc:"Attachments in position order"`
}

// MediaListOutput wraps the media list for Huma.
type MediaListOutput struct {
	Body MediaListResponse
}

// MediaOutput wraps one attachment for Huma.
type MediaOutput struct {
	Body *domain.Media
}

// MessageResponse is a simple acknowledgement.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleListEntries(ctx context.Context, input *ListEntriesInput) (*EntriesOutput, error) {
	filter := domain.EntryFilter{
		IncludeDescendants: input.IncludeDescendants,
		TypeKey:            input.TypeKey,
		Archived:           domain.ArchiveFilter(input.Archived),
		Tag:                input.Tag,
		Limit:              input.Limit,
		Offset:             input.Offset,
	}
	if input.HobbyID > 0 {
		filter.NodeID = &input.HobbyID
	}
	if input.Favorite != "" {
		fav := input.Favorite == "true"
		filter.Favorite = &fav
	}

	page, err := s.services.Entries.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &EntriesOutput{Body: page}, nil
}

func (s *Server) handleCreateEntry(ctx context.Context, input *CreateEntryInput) (*EntryOutput, error) {
	e, err := s.services.Entries.CreateEntry(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: e}, nil
}

func (s *Server) handleGetEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error) {
	e, err := s.services.Entries.GetEntry(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: e}, nil
}

func (s *Server) handleUpdateEntry(ctx context.Context, input *UpdateEntryInput) (*EntryOutput, error) {
	e, err := s.services.Entries.UpdateEntry(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: e}, nil
}

func (s *Server) handleDeleteEntry(ctx context.Context, input *EntryIDInput) (*MessageOutput, error) {
	if err := s.services.Entries.DeleteEntry(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Entry deleted"}}, nil
}

func (s *Server) handleArchiveEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error) {
	e, err := s.services.Entries.ArchiveEntry(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: e}, nil
}

func (s *Server) handleUnarchiveEntry(ctx context.Context, input *EntryIDInput) (*EntryOutput, error) {
	e, err := s.services.Entries.UnarchiveEntry(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: e}, nil
}

func (s *Server) handleFavoriteEntry(ctx context.Context, input *FavoriteEntryInput) (*EntryOutput, error) {
	e, err := s.services.Entries.SetFavorite(ctx, input.ID, input.Body.Favorite)
	if err != nil {
		return nil, err
	}
	return &EntryOutput{Body: e}, nil
}

func (s *Server) handleListMedia(ctx context.Context, input *EntryIDInput) (*MediaListOutput, error) {
	media, err := s.services.Entries.ListMedia(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if media == nil {
		media = []*domain.Media{}
	}
	return &MediaListOutput{Body: MediaListResponse{Media: media}}, nil
}

func (s *Server) handleAddMedia(ctx context.Context, input *AddMediaInput) (*MediaOutput, error) {
	m, err := s.services.Entries.AddMedia(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &MediaOutput{Body: m}, nil
}

func (s *Server) handleDeleteMedia(ctx context.Context, input *MediaIDInput) (*MessageOutput, error) {
	if err := s.services.Entries.DeleteMedia(ctx, input.ID, input.MediaID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Media removed"}}, nil
}
