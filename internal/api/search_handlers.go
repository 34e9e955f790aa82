package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Full-text search",
		Description: "Searches entry titles, content, tags and properties. A blank query returns no hits.",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains search parameters.
type SearchInput struct {
	Query           string `query:"q" doc:"Search terms"`
	HobbyID         int64  `query:"hobby_id" doc:"Only entries of this hobby"`
	TypeKey         string `query:"type_key" doc:"Only entries of this type"`
	IncludeArchived bool   `query:"include_archived" doc:"Include archived entries"`
	Limit           int    `query:"limit" minimum:"0" doc:"Page size (default 50, max 100)"`
	Offset          int    `query:"offset" minimum:"0" doc:"Hits to skip"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *service.SearchResults
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	req := service.SearchRequest{
		Query:           input.Query,
		TypeKey:         input.TypeKey,
		IncludeArchived: input.IncludeArchived,
		Limit:           input.Limit,
		Offset:          input.Offset,
	}
	if input.HobbyID > 0 {
		req.NodeID = &input.HobbyID
	}

	results, err := s.services.Search.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: results}, nil
}
