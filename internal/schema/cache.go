// ABOUTME: Process-scoped cache of database property schemas.
// ABOUTME: Descriptors map property names to types plus the valid option labels for choice properties.

package schema

import (
	"context"
	"sort"
	"sync"

	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
)

// Property types with closed option sets.
const (
	TypeTitle       = "title"
	TypeRichText    = "rich_text"
	TypeCheckbox    = "checkbox"
	TypeSelect      = "select"
	TypeStatus      = "status"
	TypeMultiSelect = "multi_select"
)

// IsChoiceType reports whether propType draws its values from a named
// option set.
func IsChoiceType(propType string) bool {
	switch propType {
	case TypeSelect, TypeStatus, TypeMultiSelect:
		return true
	}
	return false
}

// Property is one schema entry: a name, a type, and (for choice types) the
// valid option labels in schema order. Labels are compared case-sensitively.
type Property struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// Descriptor is the property schema of one database.
type Descriptor struct {
	DatabaseID string              `json:"database_id"`
	Title      string              `json:"title"`
	Properties map[string]Property `json:"-"`
}

// Property looks up a schema entry by exact name.
func (d *Descriptor) Property(name string) (Property, bool) {
	p, ok := d.Properties[name]
	return p, ok
}

// TitleProperty returns the name of the database's title property.
func (d *Descriptor) TitleProperty() (string, error) {
	for name, prop := range d.Properties {
		if prop.Type == TypeTitle {
			return name, nil
		}
	}
	return "", apierr.E(apierr.KindSchemaMismatch, "database %s has no title property", d.DatabaseID)
}

// Sorted returns the schema entries sorted by property name, for stable
// presentation of a mapping whose order is otherwise irrelevant.
func (d *Descriptor) Sorted() []Property {
	props := make([]Property, 0, len(d.Properties))
	for _, p := range d.Properties {
		props = append(props, p)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props
}

// Cache owns the fetched descriptors, keyed by database id. Refreshes
// replace an entry wholesale so concurrent readers never observe a
// partially built descriptor.
type Cache struct {
	api notion.API

	mu      sync.RWMutex
	entries map[string]*Descriptor
}

// NewCache builds an empty cache over api.
func NewCache(api notion.API) *Cache {
	return &Cache{api: api, entries: make(map[string]*Descriptor)}
}

// Get returns the descriptor for databaseID, fetching on a cache miss or
// when forceRefresh is set. A remote 404 surfaces as not_found.
func (c *Cache) Get(ctx context.Context, databaseID string, forceRefresh bool) (*Descriptor, error) {
	if !forceRefresh {
		c.mu.RLock()
		if desc, ok := c.entries[databaseID]; ok {
			c.mu.RUnlock()
			return desc, nil
		}
		c.mu.RUnlock()
	}

	db, err := c.api.GetDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	desc := descriptorFromDatabase(db)

	c.mu.Lock()
	c.entries[databaseID] = desc
	c.mu.Unlock()
	return desc, nil
}

// OptionsFor returns the ordered option labels of a choice property.
// A missing property or a non-choice type is a schema mismatch.
func (c *Cache) OptionsFor(ctx context.Context, databaseID, propertyName string) ([]string, error) {
	desc, err := c.Get(ctx, databaseID, false)
	if err != nil {
		return nil, err
	}
	prop, ok := desc.Property(propertyName)
	if !ok {
		return nil, apierr.E(apierr.KindSchemaMismatch,
			"property %q does not exist in database %s", propertyName, databaseID)
	}
	if !IsChoiceType(prop.Type) {
		return nil, apierr.E(apierr.KindSchemaMismatch,
			"property %q is %s, not a choice type", propertyName, prop.Type)
	}
	return prop.Options, nil
}

// Invalidate drops one cached descriptor.
func (c *Cache) Invalidate(databaseID string) {
	c.mu.Lock()
	delete(c.entries, databaseID)
	c.mu.Unlock()
}

func descriptorFromDatabase(db *notion.Database) *Descriptor {
	desc := &Descriptor{
		DatabaseID: db.ID,
		Title:      db.PlainTitle(),
		Properties: make(map[string]Property, len(db.Properties)),
	}
	for name, raw := range db.Properties {
		propType, _ := raw["type"].(string)
		prop := Property{Name: name, Type: propType}
		if IsChoiceType(propType) {
			prop.Options = extractOptions(raw, propType)
		}
		desc.Properties[name] = prop
	}
	return desc
}

// extractOptions pulls option labels out of the raw property object,
// preserving the order the schema defines them in.
func extractOptions(raw map[string]any, propType string) []string {
	typed, ok := raw[propType].(map[string]any)
	if !ok {
		return nil
	}
	rawOptions, ok := typed["options"].([]any)
	if !ok {
		return nil
	}
	var labels []string
	for _, o := range rawOptions {
		option, ok := o.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := option["name"].(string); ok && name != "" {
			labels = append(labels, name)
		}
	}
	return labels
}
