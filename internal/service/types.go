package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/schema"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

var typeKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// TypeService manages content type definitions and validates entry
// properties against their schemas.
type TypeService struct {
	store     store.Store
	validator *validation.Validator
	schemas   *schema.Cache
	activity  *ActivityService
	logger    *slog.Logger
}

// NewTypeService creates a new type service.
func NewTypeService(store store.Store, validator *validation.Validator, activity *ActivityService, logger *slog.Logger) *TypeService {
	return &TypeService{
		store:     store,
		validator: validator,
		schemas:   schema.NewCache(),
		activity:  activity,
		logger:    logger,
	}
}

// RegisterTypeRequest defines or redefines a content type.
type RegisterTypeRequest struct {
	Key      string         `json:"key" validate:"required,max=64"`
	Name     string         `json:"name" validate:"required,max=100"`
	Schema   map[string]any `json:"schema,omitempty"`
	UIConfig map[string]any `json:"ui_config,omitempty"`
}

// RegisterType inserts a type at version 1, or updates the name, schema and
// UI hint of an existing key and increments its version. Re-registering a
// retired type reactivates it.
func (s *TypeService) RegisterType(ctx context.Context, req RegisterTypeRequest) (*domain.ContentType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.Key = strings.TrimSpace(req.Key)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !typeKeyPattern.MatchString(req.Key) {
		return nil, domainerrors.Fields("invalid type key", []string{"key"},
			map[string]string{"key": "must start with a letter and contain only lowercase letters, digits, '-' and '_'"})
	}
	if req.Schema == nil {
		req.Schema = map[string]any{}
	}
	if req.UIConfig == nil {
		req.UIConfig = map[string]any{}
	}
	if _, err := schema.Parse(req.Schema); err != nil {
		return nil, domainerrors.Fields("invalid property schema", []string{"schema"},
			map[string]string{"schema": err.Error()}).WithCause(err)
	}

	ct, err := s.store.GetType(ctx, req.Key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		ct = &domain.ContentType{
			Key:      req.Key,
			Name:     req.Name,
			Schema:   req.Schema,
			UIConfig: req.UIConfig,
			Version:  1,
			Active:   true,
		}
		if err := s.store.CreateType(ctx, ct); err != nil {
			return nil, mapStoreError(err)
		}
	case err != nil:
		return nil, mapStoreError(err)
	default:
		ct.Name = req.Name
		ct.Schema = req.Schema
		ct.UIConfig = req.UIConfig
		ct.Version++
		ct.Active = true
		if err := s.store.UpdateType(ctx, ct); err != nil {
			return nil, mapStoreError(err)
		}
	}
	s.schemas.Invalidate(ct.Key)

	s.logger.Info("content type registered",
		"key", ct.Key,
		"version", ct.Version,
	)
	s.activity.Record(ctx, domain.ActionRegister, domain.EntityType, ct.ID, map[string]any{"key": ct.Key, "version": ct.Version})

	return ct, nil
}

// GetType returns a type by key.
func (s *TypeService) GetType(ctx context.Context, key string) (*domain.ContentType, error) {
	ct, err := s.store.GetType(ctx, key)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return ct, nil
}

// ListTypes returns types ordered by key.
func (s *TypeService) ListTypes(ctx context.Context, includeInactive bool) ([]*domain.ContentType, error) {
	types, err := s.store.ListTypes(ctx, includeInactive)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return types, nil
}

// RetireType marks a type inactive. Entries that reference it stay valid.
func (s *TypeService) RetireType(ctx context.Context, key string) (*domain.ContentType, error) {
	ct, err := s.store.GetType(ctx, key)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if !ct.Active {
		return ct, nil
	}
	ct.Active = false
	if err := s.store.UpdateType(ctx, ct); err != nil {
		return nil, mapStoreError(err)
	}
	s.schemas.Invalidate(ct.Key)

	inUse, err := s.store.CountEntriesByType(ctx, key)
	if err != nil {
		s.logger.Warn("failed to count entries of retired type", "key", key, "error", err)
	}
	s.logger.Info("content type retired",
		"key", key,
		"entries", inUse,
	)
	s.activity.Record(ctx, domain.ActionRetire, domain.EntityType, ct.ID, map[string]any{"key": key, "entries": inUse})

	return ct, nil
}

// ValidateProperties checks props against the type's schema. It returns the
// violations found (nil when valid); the error is reserved for lookup failures.
func (s *TypeService) ValidateProperties(ctx context.Context, typeKey string, props map[string]any) ([]schema.Violation, error) {
	ct, err := s.store.GetType(ctx, typeKey)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return s.validate(ct, props)
}

func (s *TypeService) validate(ct *domain.ContentType, props map[string]any) ([]schema.Violation, error) {
	compiled, err := s.schemas.Get(ct.Key, ct.Version, ct.Schema)
	if err != nil {
		// A stored schema that no longer parses is a data problem, not the caller's.
		return nil, domainerrors.Wrapf(err, domainerrors.CodeInternal, "schema of type %q is invalid", ct.Key)
	}
	return compiled.Validate(props), nil
}

// ViolationsError converts violations to a validation error whose field
// names are prefixed with "properties.".
func ViolationsError(typeKey string, violations []schema.Violation) error {
	order := make([]string, 0, len(violations))
	fields := make(map[string]string, len(violations))
	for _, v := range violations {
		name := "properties." + v.Field
		if _, dup := fields[name]; !dup {
			order = append(order, name)
			fields[name] = v.Message
		}
	}
	return domainerrors.Fields("properties do not match the schema of type "+typeKey, order, fields)
}
