package service

import (
	"context"
	"errors"

	"github.com/hobbyshelf/hobbyshelf-server/internal/domain"
	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/util"
)

// SeedNode is a top-level hobby with its sub-hobbies.
type SeedNode struct {
	Name     string
	Icon     string
	Color    string
	Children []string
	Config   map[string]any
}

// DefaultHobbies is the starter hobby tree.
var DefaultHobbies = []SeedNode{
	{
		Name: "Music", Icon: "🎵", Color: "#8B5CF6",
		Children: []string{"Guitar", "Drums", "Piano", "Production", "DJ", "Vocal"},
		Config:   map[string]any{"tabs": []any{"entries", "library", "music", "links"}},
	},
	{
		Name: "Books & Performing Arts & Cinema", Icon: "📚", Color: "#EC4899",
		Children: []string{"Books", "Theatre", "Music", "Tragedy", "Science", "Photography", "Cinema"},
		Config:   map[string]any{"tabs": []any{"entries", "library", "shelves", "notes"}},
	},
	{
		Name: "Photography", Icon: "📷", Color: "#F59E0B",
		Children: []string{"Shooting", "Color Grading", "Photo Editing"},
		Config: map[string]any{
			"tabs":    []any{"entries", "gallery", "presets", "links"},
			"gallery": map[string]any{"aspectRatio": "square"},
		},
	},
	{
		Name: "Videography", Icon: "🎬", Color: "#EF4444",
		Children: []string{"Shooting", "Editing", "Color Grading"},
		Config:   map[string]any{"tabs": []any{"entries", "projects", "presets", "links"}},
	},
	{
		Name: "Skateboarding", Icon: "🛹", Color: "#10B981",
		Children: []string{"Street", "Vert", "Equipment"},
		Config:   map[string]any{"tabs": []any{"entries", "tricks", "spots", "links"}},
	},
	{
		Name: "Cardistry/Magic", Icon: "🃏", Color: "#F59E0B",
		Children: []string{"Cardistry", "Magic Tricks", "Equipment"},
		Config:   map[string]any{"tabs": []any{"entries", "moves", "tricks", "links"}},
	},
	{
		Name: "Fashion", Icon: "👔", Color: "#8B5CF6",
		Children: []string{"Outfits", "Brands", "Styling"},
		Config:   map[string]any{"tabs": []any{"entries", "looks", "brands", "links"}},
	},
	{
		Name: "Technology", Icon: "💻", Color: "#10B981",
		Children: []string{"Coding", "AI", "Linux", "Hardware"},
		Config:   map[string]any{"tabs": []any{"entries", "code", "links", "notes"}},
	},
}

func stringProp() map[string]any { return map[string]any{"type": "string"} }

// DefaultTypes are the starter content types.
var DefaultTypes = []RegisterTypeRequest{
	{
		Key:  "article",
		Name: "Article",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url":         map[string]any{"type": "string", "format": "uri"},
				"author":      stringProp(),
				"publication": stringProp(),
				"readTime":    map[string]any{"type": "integer", "minimum": 1},
				"highlights":  map[string]any{"type": "array", "items": stringProp()},
			},
		},
		UIConfig: map[string]any{"fields": []any{
			map[string]any{"name": "url", "type": "url", "label": "Article URL"},
			map[string]any{"name": "author", "type": "text", "label": "Author"},
			map[string]any{"name": "readTime", "type": "number", "label": "Read Time (minutes)"},
		}},
	},
	{
		Key:  "photo",
		Name: "Photo",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"camera":       stringProp(),
				"lens":         stringProp(),
				"iso":          map[string]any{"type": "integer", "minimum": 50, "maximum": 102400},
				"aperture":     map[string]any{"type": "number", "minimum": 0.7, "maximum": 32},
				"shutterSpeed": stringProp(),
				"focalLength":  map[string]any{"type": "integer"},
				"location":     stringProp(),
				"preset":       stringProp(),
			},
		},
	},
	{
		Key:  "recipe",
		Name: "Recipe",
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"servings"},
			"properties": map[string]any{
				"servings":    map[string]any{"type": "integer", "minimum": 1},
				"prepMinutes": map[string]any{"type": "integer", "minimum": 0},
				"difficulty":  map[string]any{"type": "string", "enum": []any{"easy", "medium", "hard"}},
				"ingredients": map[string]any{"type": "array", "items": stringProp()},
			},
		},
	},
	{
		Key:  "code_snippet",
		Name: "Code Snippet",
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"language", "code"},
			"properties": map[string]any{
				"language":     map[string]any{"type": "string", "enum": []any{"python", "javascript", "typescript", "rust", "go", "sql"}},
				"code":         stringProp(),
				"framework":    stringProp(),
				"dependencies": map[string]any{"type": "array", "items": stringProp()},
				"github_url":   map[string]any{"type": "string", "format": "uri"},
			},
		},
	},
	{
		Key:  "video",
		Name: "Video",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"duration":   map[string]any{"type": "integer", "minimum": 1},
				"resolution": map[string]any{"type": "string", "enum": []any{"720p", "1080p", "4K", "8K"}},
				"fps":        map[string]any{"type": "integer", "enum": []any{24, 30, 60, 120, 240}},
				"codec":      stringProp(),
				"equipment":  map[string]any{"type": "array", "items": stringProp()},
			},
		},
	},
	{
		Key:  "book",
		Name: "Book",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"author": stringProp(),
				"isbn":   stringProp(),
				"pages":  map[string]any{"type": "integer", "minimum": 1},
				"rating": map[string]any{"type": "number", "minimum": 0, "maximum": 5},
				"status": map[string]any{"type": "string", "enum": []any{"to-read", "reading", "completed"}},
			},
		},
	},
	{
		Key:  "general",
		Name: "General Note",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"category": stringProp(),
				"priority": map[string]any{"type": "string", "enum": []any{"low", "medium", "high"}},
				"status":   map[string]any{"type": "string", "enum": []any{"draft", "published", "archived"}},
			},
		},
	},
}

// SeedResult counts what a seed run created.
type SeedResult struct {
	NodesCreated int `json:"hobbies_created"`
	NodesSkipped int `json:"hobbies_skipped"`
	Types        int `json:"types"`
}

// Seed installs the default hobby tree and content types. Hobbies whose
// slug already exists are left alone, so running it twice is harmless.
// Sub-hobby slugs are prefixed with the parent slug because names such as
// "Equipment" repeat under different parents.
func Seed(ctx context.Context, taxonomy *TaxonomyService, types *TypeService) (*SeedResult, error) {
	res := &SeedResult{}

	for i, root := range DefaultHobbies {
		slug := util.Slugify(root.Name)
		parent, created, err := ensureNode(ctx, taxonomy, CreateNodeRequest{
			Name:     root.Name,
			Slug:     slug,
			Icon:     root.Icon,
			Color:    root.Color,
			Position: i,
			Config:   root.Config,
		})
		if err != nil {
			return nil, err
		}
		res.count(created)

		for j, child := range root.Children {
			_, created, err := ensureNode(ctx, taxonomy, CreateNodeRequest{
				Name:     child,
				Slug:     slug + "-" + util.Slugify(child),
				ParentID: &parent.ID,
				Color:    root.Color,
				Position: j,
			})
			if err != nil {
				return nil, err
			}
			res.count(created)
		}
	}

	for _, req := range DefaultTypes {
		if _, err := types.GetType(ctx, req.Key); err == nil {
			continue
		} else if !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
		if _, err := types.RegisterType(ctx, req); err != nil {
			return nil, err
		}
		res.Types++
	}

	return res, nil
}

func (r *SeedResult) count(created bool) {
	if created {
		r.NodesCreated++
	} else {
		r.NodesSkipped++
	}
}

func ensureNode(ctx context.Context, taxonomy *TaxonomyService, req CreateNodeRequest) (n *domain.Node, created bool, err error) {
	existing, err := taxonomy.GetNodeBySlug(ctx, req.Slug)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, false, err
	}
	n, err = taxonomy.CreateNode(ctx, req)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}
