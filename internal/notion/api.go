// ABOUTME: The API interface the core consumes instead of a concrete HTTP client.
// ABOUTME: Resolver, schema cache, dispatcher, and self-test all depend on this boundary.

package notion

import "context"

// API is the external workspace collaborator. Every method is a remote call
// that may fail with a structured error (not_found for remote 404s,
// upstream_error for everything else). Tests substitute a stub.
type API interface {
	// FindByExactTitle searches the workspace and returns every page or
	// database whose title matches name exactly (case-sensitive).
	FindByExactTitle(ctx context.Context, name string) ([]Object, error)

	// ListChildren fetches one page of a container's child blocks. An empty
	// cursor starts the listing; pageSize<=0 uses the API default.
	ListChildren(ctx context.Context, containerID, cursor string, pageSize int) (*BlockList, error)

	// GetDatabase fetches a database and its property schema.
	GetDatabase(ctx context.Context, databaseID string) (*Database, error)

	// QueryDatabase runs a pass-through query with pagination.
	QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*PageList, error)

	// GetPage fetches a page with its property values.
	GetPage(ctx context.Context, pageID string) (*Page, error)

	// CreatePage creates a page under a database or page parent.
	CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error)

	// UpdateProperties issues one batched property update for a page.
	UpdateProperties(ctx context.Context, pageID string, properties map[string]any) (*Page, error)

	// ArchivePage sets archived=true on a page.
	ArchivePage(ctx context.Context, pageID string) (*Page, error)

	// GetBlock fetches a single block.
	GetBlock(ctx context.Context, blockID string) (*Block, error)

	// AppendBlocks appends children to a page or block, in order.
	AppendBlocks(ctx context.Context, blockID string, children []map[string]any) (*BlockList, error)

	// UpdateBlock patches a block with a type-specific payload.
	UpdateBlock(ctx context.Context, blockID string, payload map[string]any) (*Block, error)

	// DeleteBlock deletes (archives) a block.
	DeleteBlock(ctx context.Context, blockID string) error
}
