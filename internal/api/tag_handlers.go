package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns tags by usage, most used first",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{slug}",
		Summary:     "Get tag",
		Description: "Looks a tag up by slug or display name",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)
}

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	Limit   int  `query:"limit" minimum:"0" doc:"Maximum tags (default 50, max 100)"`
	Popular bool `query:"popular" doc:"Return only the most used tags"`
}

// TagsResponse contains a list of tags.
type TagsResponse struct {
	Tags []*domain.Tag `json:"tags" doc:"Tags with usage counts"`
}

// TagsOutput wraps the tag list for Huma.
type TagsOutput struct {
	Body TagsResponse
}

// TagSlugInput identifies a tag.
type TagSlugInput struct {
	Slug string `path:"slug" doc:"Tag slug or name"`
}

// TagOutput wraps a tag for Huma.
type TagOutput struct {
	Body *domain.Tag
}

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*TagsOutput, error) {
	var (
		tags []*domain.Tag
		err  error
	)
	if input.Popular {
		tags, err = s.services.Tags.PopularTags(ctx, input.Limit)
	} else {
		tags, err = s.services.Tags.ListTags(ctx, input.Limit)
	}
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return &TagsOutput{Body: TagsResponse{Tags: tags}}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagSlugInput) (*TagOutput, error) {
	t, err := s.services.Tags.GetTag(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: t}, nil
}
