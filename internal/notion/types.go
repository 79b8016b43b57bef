// ABOUTME: Wire types for the subset of the Notion API this server consumes.
// ABOUTME: Pages, databases, blocks, rich text, and the paginated list envelopes.

package notion

import "encoding/json"

// Object kinds returned by search and child listings.
const (
	KindPage     = "page"
	KindDatabase = "database"
)

// Object is a search hit: a page or database with its plain-text title.
type Object struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
	URL   string `json:"url,omitempty"`
}

// Parent identifies where a page lives.
type Parent struct {
	Type       string `json:"type,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// RichText is one span of Notion rich text. Only the pieces this server
// reads or writes are modeled.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// TextContent is the written form of a rich text span.
type TextContent struct {
	Content string `json:"content"`
}

// NewRichText wraps plain text into the single-span rich text shape used
// for every title/rich_text/block write.
func NewRichText(content string) []RichText {
	return []RichText{{Type: "text", Text: &TextContent{Content: content}}}
}

// PlainText concatenates the plain_text of every span.
func PlainText(spans []RichText) string {
	var out string
	for _, span := range spans {
		out += span.PlainText
	}
	return out
}

// Page is a Notion page. Property values stay schemaless maps keyed by
// property name; each value object carries its own "type" discriminator.
type Page struct {
	ID         string                    `json:"id"`
	URL        string                    `json:"url,omitempty"`
	Archived   bool                      `json:"archived,omitempty"`
	Parent     Parent                    `json:"parent"`
	Properties map[string]map[string]any `json:"properties"`
}

// Title returns the plain text of the page's title property, if any.
func (p *Page) Title() string {
	for _, prop := range p.Properties {
		if prop["type"] == "title" {
			return PlainTextAny(prop["title"])
		}
	}
	return ""
}

// Database is a Notion database with its property schema.
type Database struct {
	ID         string                    `json:"id"`
	URL        string                    `json:"url,omitempty"`
	Title      []RichText                `json:"title"`
	Properties map[string]map[string]any `json:"properties"`
}

// PlainTitle returns the database title as plain text, "Untitled" when empty.
func (d *Database) PlainTitle() string {
	if t := PlainText(d.Title); t != "" {
		return t
	}
	return "Untitled"
}

// Block is one content block. Type-specific payload lives in Fields under
// the key matching Type (and child_page/child_database carry a title).
type Block struct {
	ID          string
	Type        string
	HasChildren bool
	Fields      map[string]any
}

// UnmarshalJSON keeps the envelope typed while preserving the type-specific
// payload verbatim.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if id, ok := raw["id"].(string); ok {
		b.ID = id
	}
	if t, ok := raw["type"].(string); ok {
		b.Type = t
	}
	if hc, ok := raw["has_children"].(bool); ok {
		b.HasChildren = hc
	}
	b.Fields = raw
	return nil
}

// Payload returns the type-specific object for the block, or nil.
func (b *Block) Payload() map[string]any {
	payload, _ := b.Fields[b.Type].(map[string]any)
	return payload
}

// BlockList is one page of a paginated block listing.
type BlockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// PageList is one page of database query results.
type PageList struct {
	Results    []*Page `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// QueryRequest carries a database query: a pass-through filter plus the
// continuation cursor and page size.
type QueryRequest struct {
	Filter      map[string]any `json:"filter,omitempty"`
	StartCursor string         `json:"start_cursor,omitempty"`
	PageSize    int            `json:"page_size,omitempty"`
}

// CreatePageRequest creates a page under a database or page parent.
type CreatePageRequest struct {
	Parent     Parent           `json:"parent"`
	Properties map[string]any   `json:"properties"`
	Children   []map[string]any `json:"children,omitempty"`
}

// PlainTextAny extracts concatenated plain_text from a schemaless rich
// text array, as found inside raw property values and block payloads.
func PlainTextAny(v any) string {
	spans, ok := v.([]any)
	if !ok {
		return ""
	}
	var out string
	for _, s := range spans {
		span, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if pt, ok := span["plain_text"].(string); ok {
			out += pt
		}
	}
	return out
}
