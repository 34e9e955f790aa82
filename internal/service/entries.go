package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hobbyshelf/hobbyshelf-server/internal/config"
	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/markdown"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
	"github.com/hobbyshelf/hobbyshelf-server/internal/validation"
)

// EntryOptions are the write policies of EntryService.
type EntryOptions struct {
	SchemaEnforcement string // config.Enforcement*
	ViewCountMode     string // config.ViewCount*
}

// EntryService manages entries, their properties, tags and media.
type EntryService struct {
	store     store.Store
	types     *TypeService
	validator *validation.Validator
	activity  *ActivityService
	logger    *slog.Logger
	opts      EntryOptions
}

// NewEntryService creates a new entry service.
func NewEntryService(
	store store.Store,
	types *TypeService,
	validator *validation.Validator,
	activity *ActivityService,
	logger *slog.Logger,
	opts EntryOptions,
) *EntryService {
	if opts.SchemaEnforcement == "" {
		opts.SchemaEnforcement = config.EnforcementWarn
	}
	if opts.ViewCountMode == "" {
		opts.ViewCountMode = config.ViewCountBestEffort
	}
	return &EntryService{
		store:     store,
		types:     types,
		validator: validator,
		activity:  activity,
		logger:    logger,
		opts:      opts,
	}
}

// CreateEntryRequest describes a new entry. ContentHTML is a web clipping that
// is converted to markdown when Markdown is empty.
type CreateEntryRequest struct {
	NodeID      int64          `json:"hobby_id" validate:"required,gt=0"`
	TypeKey     string         `json:"type_key" validate:"required,max=64"`
	Title       string         `json:"title" validate:"required,max=500"`
	Description string         `json:"description,omitempty" validate:"max=5000"`
	Markdown    string         `json:"content_markdown,omitempty"`
	ContentHTML string         `json:"content_html,omitempty"`
	Tags        []string       `json:"tags,omitempty" validate:"max=50,dive,max=100"`
	Properties  map[string]any `json:"properties,omitempty"`
	Favorite    bool           `json:"is_favorite,omitempty"`
}

// UpdateEntryRequest is a partial update. Nil fields are left unchanged.
// A non-nil Properties replaces the whole property set; a non-nil Tags
// replaces every tag.
type UpdateEntryRequest struct {
	NodeID      *int64          `json:"hobby_id,omitempty" validate:"omitempty,gt=0"`
	TypeKey     *string         `json:"type_key,omitempty" validate:"omitempty,max=64"`
	Title       *string         `json:"title,omitempty" validate:"omitempty,max=500"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=5000"`
	Markdown    *string         `json:"content_markdown,omitempty"`
	ContentHTML *string         `json:"content_html,omitempty"`
	Tags        *[]string       `json:"tags,omitempty" validate:"omitempty,max=50,dive,max=100"`
	Properties  *map[string]any `json:"properties,omitempty"`
	Favorite    *bool           `json:"is_favorite,omitempty"`
	Archived    *bool           `json:"is_archived,omitempty"`
}

// MediaInput is the metadata of an uploaded file.
type MediaInput struct {
	Type             domain.MediaType `json:"type,omitempty" validate:"omitempty,oneof=image video audio file"`
	Filename         string           `json:"filename" validate:"required,max=255"`
	OriginalFilename string           `json:"original_filename,omitempty" validate:"max=255"`
	MimeType         string           `json:"mime_type,omitempty" validate:"max=127"`
	SizeBytes        int64            `json:"size_bytes,omitempty" validate:"gte=0"`
	Width            *int             `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height           *int             `json:"height,omitempty" validate:"omitempty,gt=0"`
	DurationSeconds  *float64         `json:"duration_seconds,omitempty" validate:"omitempty,gte=0"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
	ThumbnailPath    string           `json:"thumbnail_path,omitempty" validate:"max=1024"`
	Position         int              `json:"position,omitempty" validate:"gte=0"`
}

// CreateEntry validates and stores a new entry. The hobby must exist and be
// active. Properties are checked against the type schema according to the
// configured enforcement policy.
func (s *EntryService) CreateEntry(ctx context.Context, req CreateEntryRequest) (*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	node, err := s.store.GetNode(ctx, req.NodeID)
	if err != nil {
		return nil, referenceError("hobby_id", err)
	}
	if !node.Active {
		return nil, domainerrors.Fields("hobby is inactive", []string{"hobby_id"}, map[string]string{"hobby_id": "is inactive"})
	}

	body, err := s.resolveMarkdown(req.Markdown, req.ContentHTML)
	if err != nil {
		return nil, err
	}
	props := domain.Properties(req.Properties)
	if props == nil {
		props = domain.Properties{}
	}
	if err := s.enforceSchema(ctx, req.TypeKey, props); err != nil {
		return nil, err
	}

	e := &domain.Entry{
		NodeID:      req.NodeID,
		TypeKey:     req.TypeKey,
		Title:       req.Title,
		Description: req.Description,
		Markdown:    body,
		Tags:        req.Tags,
		Properties:  props,
		Favorite:    req.Favorite,
	}
	if err := s.store.CreateEntry(ctx, e); err != nil {
		return nil, referenceError("hobby_id", err)
	}

	s.logger.Info("entry created",
		"entry_id", e.ID,
		"hobby_id", e.NodeID,
		"type_key", e.TypeKey,
	)
	s.activity.Record(ctx, domain.ActionCreate, domain.EntityEntry, e.ID, map[string]any{"title": e.Title, "hobby_id": e.NodeID})

	e.NodeName, e.NodeSlug = node.Name, node.Slug
	return s.render(e)
}

// GetEntry returns an entry and counts the view: view_count goes up by one
// and last_viewed_at is set. In best-effort mode a failed increment is logged
// and the entry is still returned.
func (s *EntryService) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	count, viewedAt, viewErr := s.store.RecordView(ctx, id)
	if viewErr != nil {
		if errors.Is(viewErr, store.ErrNotFound) {
			return nil, mapStoreError(viewErr)
		}
		if s.opts.ViewCountMode == config.ViewCountStrict {
			return nil, domainerrors.Wrap(viewErr, domainerrors.CodeInternal, "record entry view")
		}
		s.logger.Warn("failed to record entry view",
			"entry_id", id,
			"error", viewErr,
		)
	}

	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if viewErr == nil {
		e.ViewCount = count
		e.LastViewedAt = &viewedAt
	}
	return s.render(e)
}

// PeekEntry returns an entry without counting a view.
func (s *EntryService) PeekEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return s.render(e)
}

// ListEntries returns entries newest first. Archived entries are excluded
// unless the filter asks for them.
func (s *EntryService) ListEntries(ctx context.Context, filter domain.EntryFilter) (*store.Page[*domain.EntrySummary], error) {
	if !filter.Archived.Valid() {
		return nil, domainerrors.Fields("invalid archived filter", []string{"archived"},
			map[string]string{"archived": "must be one of: exclude only all"})
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Limit = domain.ClampLimit(filter.Limit)
	page, err := s.store.ListEntries(ctx, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return page, nil
}

// UpdateEntry applies a partial update and re-indexes the entry. Only the
// supplied fields are written.
func (s *EntryService) UpdateEntry(ctx context.Context, id int64, req UpdateEntryRequest) (*domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	changed := make([]string, 0, 8)
	if req.NodeID != nil && *req.NodeID != e.NodeID {
		node, err := s.store.GetNode(ctx, *req.NodeID)
		if err != nil {
			return nil, referenceError("hobby_id", err)
		}
		if !node.Active {
			return nil, domainerrors.Fields("hobby is inactive", []string{"hobby_id"}, map[string]string{"hobby_id": "is inactive"})
		}
		e.NodeID, e.NodeName, e.NodeSlug = node.ID, node.Name, node.Slug
		changed = append(changed, "hobby_id")
	}
	recheck := false
	if req.TypeKey != nil && *req.TypeKey != e.TypeKey {
		if strings.TrimSpace(*req.TypeKey) == "" {
			return nil, domainerrors.Fields("type_key is required", []string{"type_key"}, map[string]string{"type_key": "is required"})
		}
		e.TypeKey = *req.TypeKey
		recheck = true
		changed = append(changed, "type_key")
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domainerrors.Fields("title is required", []string{"title"}, map[string]string{"title": "is required"})
		}
		e.Title = title
		changed = append(changed, "title")
	}
	if req.Description != nil {
		e.Description = *req.Description
		changed = append(changed, "description")
	}
	switch {
	case req.Markdown != nil:
		e.Markdown = *req.Markdown
		changed = append(changed, "content_markdown")
	case req.ContentHTML != nil:
		body, err := s.resolveMarkdown("", *req.ContentHTML)
		if err != nil {
			return nil, err
		}
		e.Markdown = body
		changed = append(changed, "content_markdown")
	}
	if req.Tags != nil {
		e.Tags = *req.Tags
		changed = append(changed, "tags")
	}
	if req.Properties != nil {
		e.Properties = domain.Properties(*req.Properties)
		if e.Properties == nil {
			e.Properties = domain.Properties{}
		}
		recheck = true
		changed = append(changed, "properties")
	}
	if req.Favorite != nil {
		e.Favorite = *req.Favorite
		changed = append(changed, "is_favorite")
	}
	if req.Archived != nil {
		e.Archived = *req.Archived
		changed = append(changed, "is_archived")
	}

	if recheck {
		if err := s.enforceSchema(ctx, e.TypeKey, e.Properties); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateEntry(ctx, e, changed); err != nil {
		return nil, referenceError("hobby_id", err)
	}

	s.logger.Info("entry updated",
		"entry_id", e.ID,
		"fields", changed,
	)
	s.activity.Record(ctx, domain.ActionUpdate, domain.EntityEntry, e.ID, map[string]any{"fields": changed})

	return s.render(e)
}

// DeleteEntry removes an entry permanently with its properties, tag links,
// media rows and shelf items. Tags left unused are removed.
func (s *EntryService) DeleteEntry(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		return mapStoreError(err)
	}
	s.logger.Info("entry deleted", "entry_id", id)
	s.activity.Record(ctx, domain.ActionDelete, domain.EntityEntry, id, nil)
	return nil
}

// ArchiveEntry hides an entry from default listings and search. It is
// reversible with UnarchiveEntry.
func (s *EntryService) ArchiveEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	return s.setArchived(ctx, id, true)
}

// UnarchiveEntry restores an archived entry to listings and search.
func (s *EntryService) UnarchiveEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	return s.setArchived(ctx, id, false)
}

func (s *EntryService) setArchived(ctx context.Context, id int64, archived bool) (*domain.Entry, error) {
	if err := s.store.SetArchived(ctx, id, archived); err != nil {
		return nil, mapStoreError(err)
	}
	action := domain.ActionUnarchive
	if archived {
		action = domain.ActionArchive
	}
	s.logger.Info("entry "+action+"d", "entry_id", id)
	s.activity.Record(ctx, action, domain.EntityEntry, id, nil)
	return s.PeekEntry(ctx, id)
}

// SetFavorite sets or clears the favorite flag.
func (s *EntryService) SetFavorite(ctx context.Context, id int64, favorite bool) (*domain.Entry, error) {
	if err := s.store.SetFavorite(ctx, id, favorite); err != nil {
		return nil, mapStoreError(err)
	}
	s.activity.Record(ctx, domain.ActionUpdate, domain.EntityEntry, id, map[string]any{"is_favorite": favorite})
	return s.PeekEntry(ctx, id)
}

// AddMedia records metadata of a file attached to an entry. The type is
// derived from the MIME type when omitted.
func (s *EntryService) AddMedia(ctx context.Context, entryID int64, in MediaInput) (*domain.Media, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	m := &domain.Media{
		EntryID:          entryID,
		Type:             in.Type,
		Filename:         in.Filename,
		OriginalFilename: in.OriginalFilename,
		MimeType:         in.MimeType,
		SizeBytes:        in.SizeBytes,
		Width:            in.Width,
		Height:           in.Height,
		DurationSeconds:  in.DurationSeconds,
		Metadata:         in.Metadata,
		ThumbnailPath:    in.ThumbnailPath,
		Position:         in.Position,
	}
	if m.Type == "" {
		m.Type = domain.MediaTypeFromMIME(m.MimeType)
	}
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	if err := s.store.AddMedia(ctx, m); err != nil {
		return nil, mapStoreError(err)
	}
	s.logger.Info("media added",
		"entry_id", entryID,
		"media_id", m.ID,
		"type", m.Type,
	)
	s.activity.Record(ctx, domain.ActionCreate, domain.EntityMedia, m.ID, map[string]any{"entry_id": entryID, "filename": m.Filename})
	return m, nil
}

// ListMedia returns an entry's media by position.
func (s *EntryService) ListMedia(ctx context.Context, entryID int64) ([]*domain.Media, error) {
	if _, err := s.store.GetEntry(ctx, entryID); err != nil {
		return nil, mapStoreError(err)
	}
	media, err := s.store.ListMedia(ctx, entryID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return media, nil
}

// DeleteMedia removes one media row of an entry.
func (s *EntryService) DeleteMedia(ctx context.Context, entryID, mediaID int64) error {
	if err := s.store.DeleteMedia(ctx, entryID, mediaID); err != nil {
		return mapStoreError(err)
	}
	s.activity.Record(ctx, domain.ActionDelete, domain.EntityMedia, mediaID, map[string]any{"entry_id": entryID})
	return nil
}

// enforceSchema applies the configured schema policy to props.
func (s *EntryService) enforceSchema(ctx context.Context, typeKey string, props domain.Properties) error {
	mode := s.opts.SchemaEnforcement
	if mode == config.EnforcementOff {
		return nil
	}

	ct, err := s.store.GetType(ctx, typeKey)
	if errors.Is(err, store.ErrNotFound) {
		if mode == config.EnforcementStrict {
			return domainerrors.Fields("unknown content type", []string{"type_key"},
				map[string]string{"type_key": "is not a registered type"})
		}
		s.logger.Warn("entry uses an unregistered type", "type_key", typeKey)
		return nil
	}
	if err != nil {
		return mapStoreError(err)
	}

	violations, err := s.types.validate(ct, props)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		return nil
	}
	if mode == config.EnforcementStrict {
		return ViolationsError(typeKey, violations)
	}
	for _, v := range violations {
		s.logger.Warn("entry property does not match schema",
			"type_key", typeKey,
			"field", v.Field,
			"message", v.Message,
		)
	}
	return nil
}

func (s *EntryService) resolveMarkdown(md, html string) (string, error) {
	if md != "" || html == "" {
		return md, nil
	}
	out, err := markdown.FromHTML(html)
	if err != nil {
		return "", domainerrors.Fields("content_html could not be converted", []string{"content_html"},
			map[string]string{"content_html": "is not convertible HTML"}).WithCause(err)
	}
	return out, nil
}

// render fills ContentHTML from the markdown body.
func (s *EntryService) render(e *domain.Entry) (*domain.Entry, error) {
	html, err := markdown.ToHTML(e.Markdown)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "render entry body")
	}
	e.ContentHTML = html
	return e, nil
}
