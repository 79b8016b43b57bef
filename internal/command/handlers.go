// ABOUTME: Handlers for every registered action: page, database, and block operations.
// ABOUTME: Each handler validates against the live schema before issuing any remote write.

package command

import (
	"context"

	"github.com/2389/notebridge/internal/coerce"
	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
	"github.com/2389/notebridge/internal/resolve"
	"github.com/2389/notebridge/internal/schema"
)

// maxListPageSize caps caller-supplied page sizes at the Notion limit.
const maxListPageSize = 100

func pageRead(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		PageID string `json:"page_id"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}

	page, err := d.API.GetPage(ctx, params.PageID)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := readBlockTree(ctx, d.API, page.ID)
	if err != nil {
		return nil, nil, err
	}
	return map[string]any{"page": normalizePage(page), "blocks": blocks}, nil, nil
}

func pageCreate(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		Parent     string             `json:"parent"`
		Title      string             `json:"title"`
		Properties map[string]any     `json:"properties"`
		Content    string             `json:"content"`
		Blocks     []coerce.BlockSpec `json:"blocks"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}
	if params.Parent == "" {
		return nil, nil, apierr.E(apierr.KindValidation, "parent is required")
	}
	if params.Title == "" {
		return nil, nil, apierr.E(apierr.KindValidation, "title is required")
	}

	parentID, parentKind, meta, err := resolveParent(ctx, d, params.Parent)
	if err != nil {
		return nil, nil, err
	}

	var req notion.CreatePageRequest
	switch parentKind {
	case notion.KindDatabase:
		desc, err := d.Schemas.Get(ctx, parentID, false)
		if err != nil {
			return nil, nil, err
		}
		titleProp, err := desc.TitleProperty()
		if err != nil {
			return nil, nil, err
		}
		properties := map[string]any{
			titleProp: map[string]any{"title": notion.NewRichText(params.Title)},
		}
		if len(params.Properties) > 0 {
			writes, err := coerce.Properties(desc, params.Properties)
			if err != nil {
				return nil, nil, err
			}
			for name, write := range writes {
				properties[name] = write
			}
		}
		req = notion.CreatePageRequest{
			Parent:     notion.Parent{Type: "database_id", DatabaseID: parentID},
			Properties: properties,
		}
	default:
		if len(params.Properties) > 0 {
			return nil, nil, apierr.E(apierr.KindValidation,
				"properties require a database parent; %q is a page", params.Parent)
		}
		req = notion.CreatePageRequest{
			Parent: notion.Parent{Type: "page_id", PageID: parentID},
			Properties: map[string]any{
				"title": map[string]any{"title": notion.NewRichText(params.Title)},
			},
		}
	}

	if len(params.Blocks) > 0 {
		children, err := coerce.Blocks(params.Blocks)
		if err != nil {
			return nil, nil, err
		}
		req.Children = children
	} else if params.Content != "" {
		req.Children = coerce.BlocksFromContent(params.Content)
	}

	page, err := d.API.CreatePage(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return normalizePage(page), meta, nil
}

func pageUpdate(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		PageID        string             `json:"page_id"`
		Properties    map[string]any     `json:"properties"`
		ContentAppend []coerce.BlockSpec `json:"content_append"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}
	if len(params.Properties) == 0 && len(params.ContentAppend) == 0 {
		return nil, nil, apierr.E(apierr.KindValidation, "nothing to update: supply properties or content_append")
	}

	// Validate everything before the first remote write so a failed
	// coercion can never leave a partial update behind.
	var writes map[string]any
	if len(params.Properties) > 0 {
		page, err := d.API.GetPage(ctx, params.PageID)
		if err != nil {
			return nil, nil, err
		}
		desc, err := schemaForPage(ctx, d, page)
		if err != nil {
			return nil, nil, err
		}
		writes, err = coerce.Properties(desc, params.Properties)
		if err != nil {
			return nil, nil, err
		}
	}
	var appendWrites []map[string]any
	if len(params.ContentAppend) > 0 {
		appendWrites, err = coerce.Blocks(params.ContentAppend)
		if err != nil {
			return nil, nil, err
		}
	}

	result := map[string]any{}
	if writes != nil {
		page, err := d.API.UpdateProperties(ctx, params.PageID, writes)
		if err != nil {
			return nil, nil, err
		}
		result["page"] = normalizePage(page)
	}
	if appendWrites != nil {
		if _, err := d.API.AppendBlocks(ctx, params.PageID, appendWrites); err != nil {
			return nil, nil, err
		}
		result["appended"] = len(appendWrites)
	}
	return result, nil, nil
}

func pageArchive(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		PageID string `json:"page_id"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}
	page, err := d.API.ArchivePage(ctx, params.PageID)
	if err != nil {
		return nil, nil, err
	}
	return normalizePage(page), nil, nil
}

func pageReplaceContent(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		PageID  string `json:"page_id"`
		Content string `json:"content"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}

	pageID, err := notion.NormalizeID("page_id", params.PageID)
	if err != nil {
		return nil, nil, err
	}
	if err := deleteAllChildren(ctx, d.API, pageID); err != nil {
		return nil, nil, err
	}
	children := coerce.BlocksFromContent(params.Content)
	if children == nil {
		children = []map[string]any{}
	}
	if _, err := d.API.AppendBlocks(ctx, pageID, children); err != nil {
		return nil, nil, err
	}
	return map[string]any{"page_id": pageID, "blocks": len(children)}, nil, nil
}

func dbList(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		PageSize int    `json:"page_size"`
		Cursor   string `json:"cursor"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}
	if params.PageSize < 0 || params.PageSize > maxListPageSize {
		return nil, nil, apierr.E(apierr.KindValidation, "page_size must be between 1 and %d", maxListPageSize)
	}

	root, err := d.Resolver.ResolveRoot(ctx)
	if err != nil {
		return nil, nil, err
	}

	// The one action that is pagination-aware to its caller: the
	// continuation cursor passes through instead of being drained here.
	list, err := d.API.ListChildren(ctx, root.ID, params.Cursor, params.PageSize)
	if err != nil {
		return nil, nil, err
	}
	children := resolve.RefsFromList(list)
	if children == nil {
		children = []resolve.ChildRef{}
	}
	result := map[string]any{
		"root":     root,
		"children": children,
		"has_more": list.HasMore,
	}
	if list.HasMore {
		result["next_cursor"] = list.NextCursor
	}
	return result, nil, nil
}

func dbSchema(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		DatabaseID string `json:"database_id"`
		Refresh    bool   `json:"refresh"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}

	databaseID, meta, err := resolveDatabase(ctx, d, params.DatabaseID)
	if err != nil {
		return nil, nil, err
	}
	desc, err := d.Schemas.Get(ctx, databaseID, params.Refresh)
	if err != nil {
		return nil, nil, err
	}
	return map[string]any{
		"database_id": desc.DatabaseID,
		"title":       desc.Title,
		"properties":  desc.Sorted(),
	}, meta, nil
}

func dbQuery(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		DatabaseID string         `json:"database_id"`
		Filter     map[string]any `json:"filter"`
		Cursor     string         `json:"cursor"`
		PageSize   int            `json:"page_size"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}
	if params.PageSize < 0 || params.PageSize > maxListPageSize {
		return nil, nil, apierr.E(apierr.KindValidation, "page_size must be between 1 and %d", maxListPageSize)
	}

	databaseID, meta, err := resolveDatabase(ctx, d, params.DatabaseID)
	if err != nil {
		return nil, nil, err
	}

	if params.Filter != nil {
		desc, err := d.Schemas.Get(ctx, databaseID, false)
		if err != nil {
			return nil, nil, err
		}
		if err := validateFilter(desc, params.Filter); err != nil {
			return nil, nil, err
		}
	}

	list, err := d.API.QueryDatabase(ctx, databaseID, notion.QueryRequest{
		Filter:      params.Filter,
		StartCursor: params.Cursor,
		PageSize:    params.PageSize,
	})
	if err != nil {
		return nil, nil, err
	}

	items := make([]map[string]any, len(list.Results))
	for i, page := range list.Results {
		items[i] = normalizePage(page)
	}
	result := map[string]any{
		"database_id": databaseID,
		"results":     items,
		"has_more":    list.HasMore,
	}
	if list.HasMore {
		result["next_cursor"] = list.NextCursor
	}
	return result, meta, nil
}

func blockAppend(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		BlockID string             `json:"block_id"`
		Blocks  []coerce.BlockSpec `json:"blocks"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}

	children, err := coerce.Blocks(params.Blocks)
	if err != nil {
		return nil, nil, err
	}
	if _, err := d.API.AppendBlocks(ctx, params.BlockID, children); err != nil {
		return nil, nil, err
	}
	return map[string]any{"block_id": params.BlockID, "appended": len(children)}, nil, nil
}

func blockReplace(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		BlockID string             `json:"block_id"`
		Blocks  []coerce.BlockSpec `json:"blocks"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}

	children, err := coerce.Blocks(params.Blocks)
	if err != nil {
		return nil, nil, err
	}
	blockID, err := notion.NormalizeID("block_id", params.BlockID)
	if err != nil {
		return nil, nil, err
	}
	if err := deleteAllChildren(ctx, d.API, blockID); err != nil {
		return nil, nil, err
	}
	if _, err := d.API.AppendBlocks(ctx, blockID, children); err != nil {
		return nil, nil, err
	}
	return map[string]any{"block_id": blockID, "replaced": len(children)}, nil, nil
}

func blockDelete(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		BlockIDs []string `json:"block_ids"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}
	if len(params.BlockIDs) == 0 {
		return nil, nil, apierr.E(apierr.KindValidation, "block_ids must include at least one id")
	}

	deleted := make([]string, 0, len(params.BlockIDs))
	for _, blockID := range params.BlockIDs {
		id, err := notion.NormalizeID("block_id", blockID)
		if err != nil {
			return nil, nil, err
		}
		if err := d.API.DeleteBlock(ctx, id); err != nil {
			return nil, nil, err
		}
		deleted = append(deleted, id)
	}
	return map[string]any{"deleted": deleted}, nil, nil
}

func blockUpdate(ctx context.Context, d *Deps, raw []byte) (any, Meta, error) {
	params, err := decodeParams[struct {
		BlockID string `json:"block_id"`
		Text    string `json:"text"`
	}](raw)
	if err != nil {
		return nil, nil, err
	}
	if params.Text == "" {
		return nil, nil, apierr.E(apierr.KindValidation, "text is required")
	}

	block, err := d.API.GetBlock(ctx, params.BlockID)
	if err != nil {
		return nil, nil, err
	}
	if !coerce.SupportedBlockTypes[block.Type] {
		return nil, nil, apierr.E(apierr.KindValidation,
			"unsupported block type for text update: %q", block.Type)
	}
	payload := map[string]any{
		block.Type: map[string]any{"rich_text": notion.NewRichText(params.Text)},
	}
	updated, err := d.API.UpdateBlock(ctx, block.ID, payload)
	if err != nil {
		return nil, nil, err
	}
	return map[string]any{"block_id": updated.ID, "type": updated.Type}, nil, nil
}

// resolveParent turns a name-or-id parent parameter into a concrete id and
// kind. Explicit ids are probed as database first, then page.
func resolveParent(ctx context.Context, d *Deps, value string) (string, string, Meta, error) {
	ref := ParseRef(value)
	if ref.ID != "" {
		if _, err := d.Schemas.Get(ctx, ref.ID, false); err == nil {
			return ref.ID, notion.KindDatabase, nil, nil
		} else if apierr.KindOf(err) != apierr.KindNotFound {
			return "", "", nil, err
		}
		if _, err := d.API.GetPage(ctx, ref.ID); err != nil {
			return "", "", nil, err
		}
		return ref.ID, notion.KindPage, nil, nil
	}

	child, meta, err := resolveByName(ctx, d, ref.Name)
	if err != nil {
		return "", "", nil, err
	}
	return child.ID, child.Kind, meta, nil
}

// resolveDatabase turns a name-or-id database parameter into an id,
// requiring a database when resolution went through a name.
func resolveDatabase(ctx context.Context, d *Deps, value string) (string, Meta, error) {
	if value == "" {
		return "", nil, apierr.E(apierr.KindValidation, "database_id is required")
	}
	ref := ParseRef(value)
	if ref.ID != "" {
		return ref.ID, nil, nil
	}
	child, meta, err := resolveByName(ctx, d, ref.Name)
	if err != nil {
		return "", nil, err
	}
	if child.Kind != notion.KindDatabase {
		return "", nil, apierr.E(apierr.KindValidation,
			"%q resolved to a %s, expected a database", ref.Name, child.Kind)
	}
	return child.ID, meta, nil
}

// schemaForPage returns the schema that governs a page's properties: the
// parent database's descriptor when there is one, otherwise a descriptor
// synthesized from the page's own property values (no option sets, so
// choice writes on plain pages are rejected).
func schemaForPage(ctx context.Context, d *Deps, page *notion.Page) (*schema.Descriptor, error) {
	if page.Parent.Type == "database_id" && page.Parent.DatabaseID != "" {
		return d.Schemas.Get(ctx, page.Parent.DatabaseID, false)
	}
	desc := &schema.Descriptor{
		DatabaseID: page.ID,
		Properties: make(map[string]schema.Property, len(page.Properties)),
	}
	for name, value := range page.Properties {
		propType, _ := value["type"].(string)
		desc.Properties[name] = schema.Property{Name: name, Type: propType}
	}
	return desc, nil
}

// validateFilter walks a Notion filter object and rejects any "property"
// key naming a property the schema does not have.
func validateFilter(desc *schema.Descriptor, filter map[string]any) error {
	if name, ok := filter["property"].(string); ok {
		if _, exists := desc.Property(name); !exists {
			return apierr.E(apierr.KindValidation,
				"filter references unknown property %q", name)
		}
	}
	for _, key := range []string{"and", "or"} {
		group, ok := filter[key].([]any)
		if !ok {
			continue
		}
		for _, entry := range group {
			sub, ok := entry.(map[string]any)
			if !ok {
				return apierr.E(apierr.KindValidation, "malformed %s filter group", key)
			}
			if err := validateFilter(desc, sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func normalizePage(page *notion.Page) map[string]any {
	return map[string]any{
		"id":         page.ID,
		"title":      page.Title(),
		"url":        page.URL,
		"archived":   page.Archived,
		"properties": page.Properties,
	}
}
