// ABOUTME: Recursive block-tree reading and bulk child deletion for page content operations.
// ABOUTME: Child databases encountered in a tree are expanded into their pages.

package command

import (
	"context"

	"github.com/2389/notebridge/internal/notion"
)

// readBlockTree fetches every child of containerID and descends into
// blocks that have children of their own.
func readBlockTree(ctx context.Context, api notion.API, containerID string) ([]map[string]any, error) {
	blocks, err := collectBlocks(ctx, api, containerID)
	if err != nil {
		return nil, err
	}
	tree := make([]map[string]any, 0, len(blocks))
	for i := range blocks {
		node, err := buildBlockNode(ctx, api, &blocks[i])
		if err != nil {
			return nil, err
		}
		tree = append(tree, node)
	}
	return tree, nil
}

func buildBlockNode(ctx context.Context, api notion.API, block *notion.Block) (map[string]any, error) {
	node := serializeBlock(block)

	var children []map[string]any
	if block.HasChildren {
		sub, err := readBlockTree(ctx, api, block.ID)
		if err != nil {
			return nil, err
		}
		children = append(children, sub...)
	}

	// A child database expands into its pages, each with its own content.
	if block.Type == "child_database" {
		pages, err := collectDatabasePages(ctx, api, block.ID)
		if err != nil {
			return nil, err
		}
		for _, page := range pages {
			pageNode := map[string]any{
				"id":    page.ID,
				"type":  "page",
				"title": page.Title(),
			}
			pageChildren, err := readBlockTree(ctx, api, page.ID)
			if err != nil {
				return nil, err
			}
			if len(pageChildren) > 0 {
				pageNode["children"] = pageChildren
			}
			children = append(children, pageNode)
		}
	}

	if len(children) > 0 {
		node["children"] = children
	}
	return node, nil
}

func serializeBlock(block *notion.Block) map[string]any {
	node := map[string]any{"id": block.ID, "type": block.Type}
	payload := block.Payload()
	switch block.Type {
	case "child_page", "child_database":
		if payload != nil {
			if title, ok := payload["title"].(string); ok {
				node["title"] = title
			}
		}
		return node
	}
	if payload == nil {
		return node
	}
	if rich, ok := payload["rich_text"]; ok {
		if text := notion.PlainTextAny(rich); text != "" {
			node["text"] = text
		}
	}
	if title, ok := payload["title"]; ok {
		if t := notion.PlainTextAny(title); t != "" {
			node["title"] = t
		}
	}
	return node
}

// collectBlocks drains the child listing for one container.
func collectBlocks(ctx context.Context, api notion.API, containerID string) ([]notion.Block, error) {
	var blocks []notion.Block
	cursor := ""
	for {
		list, err := api.ListChildren(ctx, containerID, cursor, maxListPageSize)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, list.Results...)
		if !list.HasMore || list.NextCursor == "" {
			return blocks, nil
		}
		cursor = list.NextCursor
	}
}

// collectDatabasePages drains a database query.
func collectDatabasePages(ctx context.Context, api notion.API, databaseID string) ([]*notion.Page, error) {
	var pages []*notion.Page
	cursor := ""
	for {
		list, err := api.QueryDatabase(ctx, databaseID, notion.QueryRequest{
			StartCursor: cursor,
			PageSize:    maxListPageSize,
		})
		if err != nil {
			return nil, err
		}
		pages = append(pages, list.Results...)
		if !list.HasMore || list.NextCursor == "" {
			return pages, nil
		}
		cursor = list.NextCursor
	}
}

// deleteAllChildren removes every direct child block of containerID.
func deleteAllChildren(ctx context.Context, api notion.API, containerID string) error {
	blocks, err := collectBlocks(ctx, api, containerID)
	if err != nil {
		return err
	}
	for i := range blocks {
		if blocks[i].ID == "" {
			continue
		}
		if err := api.DeleteBlock(ctx, blocks[i].ID); err != nil {
			return err
		}
	}
	return nil
}
