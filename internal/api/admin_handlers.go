package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "reindex",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reindex",
		Summary:     "Rebuild search index",
		Description: "Rebuilds the full-text index from stored entries",
		Tags:        []string{"Admin"},
	}, s.handleReindex)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuildTagCounts",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/tags/rebuild",
		Summary:     "Rebuild tag counts",
		Description: "Recomputes tag usage counters from entry assignments",
		Tags:        []string{"Admin"},
	}, s.handleRebuildTagCounts)
}

// CountResponse reports how many rows an admin task touched.
type CountResponse struct {
	Count   int    `json:"count" doc:"Rows processed"`
	Message string `json:"message" doc:"Summary"`
}

// CountOutput wraps a count for Huma.
type CountOutput struct {
	Body CountResponse
}

func (s *Server) handleReindex(ctx context.Context, _ *struct{}) (*CountOutput, error) {
	n, err := s.services.Search.Reindex(ctx)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Body: CountResponse{Count: n, Message: "Search index rebuilt"}}, nil
}

func (s *Server) handleRebuildTagCounts(ctx context.Context, _ *struct{}) (*CountOutput, error) {
	n, err := s.services.Tags.RebuildCounts(ctx)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Body: CountResponse{Count: n, Message: "Tag counts rebuilt"}}, nil
}
