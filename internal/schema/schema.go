// Package schema validates entry properties against a content type's property
// schema. Schemas are JSON Schema documents restricted to what entries need:
// object properties with type, required, enum, minimum/maximum, length,
// pattern, format and array items.
package schema

import (
	"encoding/json/v2"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

var knownTypes = []string{"", "object", "string", "integer", "number", "boolean", "array", "null"}

// Violation is one property that does not satisfy the schema.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// Schema is a compiled property schema.
type Schema struct {
	root     *huma.Schema
	required []string
}

// Parse compiles a schema document. An empty document accepts anything.
func Parse(doc map[string]any) (*Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	var root huma.Schema
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if root.Type != "" && root.Type != "object" {
		return nil, fmt.Errorf("schema root must be an object, got %q", root.Type)
	}
	if err := checkTypes("", &root); err != nil {
		return nil, err
	}
	for _, name := range root.Required {
		if _, ok := root.Properties[name]; !ok && root.Properties != nil {
			return nil, fmt.Errorf("required property %q is not declared", name)
		}
	}

	// Root-level required is checked here so violations name the field;
	// everything else is delegated to huma.
	required := slices.Clone(root.Required)
	root.Required = nil
	root.Type = "object"
	root.PrecomputeMessages()

	return &Schema{root: &root, required: required}, nil
}

func checkTypes(path string, s *huma.Schema) error {
	if !slices.Contains(knownTypes, s.Type) {
		return fmt.Errorf("unsupported type %q at %q", s.Type, strings.TrimPrefix(path, "."))
	}
	if s.Minimum != nil && s.Maximum != nil && *s.Minimum > *s.Maximum {
		return fmt.Errorf("minimum greater than maximum at %q", strings.TrimPrefix(path, "."))
	}
	for name, prop := range s.Properties {
		if prop == nil {
			return fmt.Errorf("empty property schema %q", name)
		}
		if err := checkTypes(path+"."+name, prop); err != nil {
			return err
		}
	}
	if s.Items != nil {
		if err := checkTypes(path+"[]", s.Items); err != nil {
			return err
		}
	}
	return nil
}

// Required lists the top-level required properties.
func (s *Schema) Required() []string {
	return slices.Clone(s.required)
}

// Validate checks props and returns violations ordered with missing required
// fields first, then by field name. A nil result means the properties are valid.
func (s *Schema) Validate(props map[string]any) []Violation {
	var out []Violation
	for _, name := range s.required {
		if v, ok := props[name]; !ok || v == nil {
			out = append(out, Violation{Field: name, Message: "is required"})
		}
	}

	if props == nil {
		props = map[string]any{}
	}
	res := &huma.ValidateResult{}
	registry := huma.NewMapRegistry("#/components/schemas/", huma.DefaultSchemaNamer)
	huma.Validate(registry, s.root, huma.NewPathBuffer([]byte{}, 0), huma.ModeWriteToServer, props, res)

	var rest []Violation
	for _, err := range res.Errors {
		rest = append(rest, toViolation(err))
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Field < rest[j].Field })
	out = append(out, rest...)
	return out
}

func toViolation(err error) Violation {
	if d, ok := err.(*huma.ErrorDetail); ok {
		field := strings.TrimPrefix(d.Location, ".")
		if field == "" {
			field = "properties"
		}
		return Violation{Field: field, Message: d.Message}
	}
	return Violation{Field: "properties", Message: err.Error()}
}

// Cache holds compiled schemas keyed by type key and version.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	version int
	schema  *Schema
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the compiled schema for key at version, compiling doc on a miss.
func (c *Cache) Get(key string, version int, doc map[string]any) (*Schema, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && e.version == version {
		return e.schema, nil
	}

	s, err := Parse(doc)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{version: version, schema: s}
	c.mu.Unlock()
	return s, nil
}

// Invalidate drops a cached schema.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
