package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	"github.com/hobbyshelf/hobbyshelf-server/internal/schema"
	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
)

func (s *Server) registerTypeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTypes",
		Method:      http.MethodGet,
		Path:        "/api/v1/types",
		Summary:     "List content types",
		Tags:        []string{"Types"},
	}, s.handleListTypes)

	huma.Register(s.api, huma.Operation{
		OperationID: "registerType",
		Method:      http.MethodPut,
		Path:        "/api/v1/types",
		Summary:     "Register content type",
		Description: "Creates a type at version 1, or replaces an existing type's schema and bumps its version",
		Tags:        []string{"Types"},
	}, s.handleRegisterType)

	huma.Register(s.api, huma.Operation{
		OperationID: "getType",
		Method:      http.MethodGet,
		Path:        "/api/v1/types/{key}",
		Summary:     "Get content type",
		Tags:        []string{"Types"},
	}, s.handleGetType)

	huma.Register(s.api, huma.Operation{
		OperationID: "retireType",
		Method:      http.MethodDelete,
		Path:        "/api/v1/types/{key}",
		Summary:     "Retire content type",
		Description: "Marks the type inactive. Existing entries keep their type key.",
		Tags:        []string{"Types"},
	}, s.handleRetireType)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateProperties",
		Method:      http.MethodPost,
		Path:        "/api/v1/types/{key}/validate",
		Summary:     "Validate properties",
		Description: "Checks a property set against the type schema without storing anything",
		Tags:        []string{"Types"},
	}, s.handleValidateProperties)
}

// === DTOs ===

// ListTypesInput contains parameters for listing types.
type ListTypesInput struct {
	IncludeInactive bool `query:"include_inactive" doc:"Include retired types"`
}

// TypesResponse contains a list of content types.
type TypesResponse struct {
	Types []*domain.ContentType `json:"types" doc:"Content types"`
}

// TypesOutput wraps the type list for Huma.
type TypesOutput struct {
	Body TypesResponse
}

// TypeOutput wraps a content type for Huma.
type TypeOutput struct {
	Body *domain.ContentType
}

// RegisterTypeInput wraps the register request for Huma.
type RegisterTypeInput struct {
	Body service.RegisterTypeRequest
}

// TypeKeyInput identifies a content type.
type TypeKeyInput struct {
	Key string `path:"key" doc:"Type key"`
}

// ValidatePropertiesInput carries a property set to check.
type ValidatePropertiesInput struct {
	Key  string `path:"key" doc:"Type key"`
	Body struct {
		Properties map[string]any `json:"properties" doc:"Properties to validate"`
	}
}

// ValidationResponse reports schema violations.
type ValidationResponse struct {
	Valid      bool               `json:"valid" doc:"True when there are no violations"`
	Violations []schema.Violation `json:"violations" doc:"Violations in schema property order"`
}

// ValidationOutput wraps the validation result for Huma.
type ValidationOutput struct {
	Body ValidationResponse
}

// === Handlers ===

func (s *Server) handleListTypes(ctx context.Context, input *ListTypesInput) (*TypesOutput, error) {
	types, err := s.services.Types.ListTypes(ctx, input.IncludeInactive)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []*domain.ContentType{}
	}
	return &TypesOutput{Body: TypesResponse{Types: types}}, nil
}

func (s *Server) handleRegisterType(ctx context.Context, input *RegisterTypeInput) (*TypeOutput, error) {
	ct, err := s.services.Types.RegisterType(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &TypeOutput{Body: ct}, nil
}

func (s *Server) handleGetType(ctx context.Context, input *TypeKeyInput) (*TypeOutput, error) {
	ct, err := s.services.Types.GetType(ctx, input.Key)
	if err != nil {
		return nil, err
	}
	return &TypeOutput{Body: ct}, nil
}

func (s *Server) handleRetireType(ctx context.Context, input *TypeKeyInput) (*TypeOutput, error) {
	ct, err := s.services.Types.RetireType(ctx, input.Key)
	if err != nil {
		return nil, err
	}
	return &TypeOutput{Body: ct}, nil
}

func (s *Server) handleValidateProperties(ctx context.Context, input *ValidatePropertiesInput) (*ValidationOutput, error) {
	violations, err := s.services.Types.ValidateProperties(ctx, input.Key, input.Body.Properties)
	if err != nil {
		return nil, err
	}
	if violations == nil {
		violations = []schema.Violation{}
	}
	return &ValidationOutput{Body: ValidationResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	}}, nil
}
