package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/search"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// SearchService runs full-text queries and resolves hits to entry summaries.
type SearchService struct {
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		store:  store,
		logger: logger,
	}
}

// SearchRequest is a user search.
type SearchRequest struct {
	Query           string `json:"q"`
	NodeID          *int64 `json:"hobby_id,omitempty"`
	TypeKey         string `json:"type_key,omitempty"`
	IncludeArchived bool   `json:"include_archived,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Offset          int    `json:"offset,omitempty"`
}

// SearchHit is one matching entry.
type SearchHit struct {
	Entry    *domain.EntrySummary `json:"entry"`
	NodeName string               `json:"hobby_name"`
	Snippet  string               `json:"snippet"`
	Rank     float64              `json:"rank"`
}

// SearchResults is one page of hits, best first.
type SearchResults struct {
	Query  string       `json:"query"`
	Engine string       `json:"engine"`
	Total  int          `json:"total"`
	Hits   []*SearchHit `json:"hits"`
}

// Search tokenizes the query and runs it on the active engine. Archived
// entries are excluded unless asked for. A blank query returns no hits.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResults, error) {
	results := &SearchResults{
		Query:  req.Query,
		Engine: s.store.SearchEngine(),
		Hits:   []*SearchHit{},
	}
	if strings.TrimSpace(req.Query) == "" {
		return results, nil
	}

	q := store.SearchQuery{
		Text:            req.Query,
		Tokens:          search.Tokenize(req.Query),
		NodeID:          req.NodeID,
		TypeKey:         req.TypeKey,
		IncludeArchived: req.IncludeArchived,
		Limit:           domain.ClampLimit(req.Limit),
		Offset:          max(req.Offset, 0),
	}
	page, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, mapStoreError(err)
	}
	results.Total = page.Total
	if len(page.Hits) == 0 {
		return results, nil
	}

	ids := make([]int64, len(page.Hits))
	for i, h := range page.Hits {
		ids[i] = h.ID
	}
	summaries, err := s.store.GetEntrySummaries(ctx, ids)
	if err != nil {
		return nil, mapStoreError(err)
	}

	for _, h := range page.Hits {
		summary, ok := summaries[h.ID]
		if !ok {
			// Deleted between the index lookup and the load.
			s.logger.Debug("search hit without entry", "entry_id", h.ID)
			continue
		}
		results.Hits = append(results.Hits, &SearchHit{
			Entry:    summary,
			NodeName: summary.NodeName,
			Snippet:  search.Snippet(summary.Description),
			Rank:     h.Rank,
		})
	}

	s.logger.Debug("search",
		"query", req.Query,
		"engine", results.Engine,
		"total", results.Total,
		"returned", len(results.Hits),
	)
	return results, nil
}

// Reindex rebuilds the active engine from the entries table.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	n, err := s.store.Reindex(ctx)
	if err != nil {
		return 0, mapStoreError(err)
	}
	return n, nil
}
