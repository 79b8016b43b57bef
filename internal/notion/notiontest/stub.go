// ABOUTME: In-memory stub of the notion.API interface for tests.
// ABOUTME: Records call counts per method so tests can assert that no remote write was issued.

package notiontest

import (
	"context"
	"fmt"
	"sync"

	"github.com/2389/notebridge/internal/notion"
)

// Stub implements notion.API with per-method function fields. Unset
// methods fail loudly so a test never silently exercises an unexpected
// call path.
type Stub struct {
	mu    sync.Mutex
	calls map[string]int

	FindByExactTitleFunc func(ctx context.Context, name string) ([]notion.Object, error)
	ListChildrenFunc     func(ctx context.Context, containerID, cursor string, pageSize int) (*notion.BlockList, error)
	GetDatabaseFunc      func(ctx context.Context, databaseID string) (*notion.Database, error)
	QueryDatabaseFunc    func(ctx context.Context, databaseID string, req notion.QueryRequest) (*notion.PageList, error)
	GetPageFunc          func(ctx context.Context, pageID string) (*notion.Page, error)
	CreatePageFunc       func(ctx context.Context, req notion.CreatePageRequest) (*notion.Page, error)
	UpdatePropertiesFunc func(ctx context.Context, pageID string, properties map[string]any) (*notion.Page, error)
	ArchivePageFunc      func(ctx context.Context, pageID string) (*notion.Page, error)
	GetBlockFunc         func(ctx context.Context, blockID string) (*notion.Block, error)
	AppendBlocksFunc     func(ctx context.Context, blockID string, children []map[string]any) (*notion.BlockList, error)
	UpdateBlockFunc      func(ctx context.Context, blockID string, payload map[string]any) (*notion.Block, error)
	DeleteBlockFunc      func(ctx context.Context, blockID string) error
}

var _ notion.API = (*Stub)(nil)

func (s *Stub) record(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[method]++
}

// Calls returns how many times a method was invoked.
func (s *Stub) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Stub) FindByExactTitle(ctx context.Context, name string) ([]notion.Object, error) {
	s.record("FindByExactTitle")
	if s.FindByExactTitleFunc == nil {
		return nil, fmt.Errorf("unexpected FindByExactTitle call")
	}
	return s.FindByExactTitleFunc(ctx, name)
}

func (s *Stub) ListChildren(ctx context.Context, containerID, cursor string, pageSize int) (*notion.BlockList, error) {
	s.record("ListChildren")
	if s.ListChildrenFunc == nil {
		return nil, fmt.Errorf("unexpected ListChildren call")
	}
	return s.ListChildrenFunc(ctx, containerID, cursor, pageSize)
}

func (s *Stub) GetDatabase(ctx context.Context, databaseID string) (*notion.Database, error) {
	s.record("GetDatabase")
	if s.GetDatabaseFunc == nil {
		return nil, fmt.Errorf("unexpected GetDatabase call")
	}
	return s.GetDatabaseFunc(ctx, databaseID)
}

func (s *Stub) QueryDatabase(ctx context.Context, databaseID string, req notion.QueryRequest) (*notion.PageList, error) {
	s.record("QueryDatabase")
	if s.QueryDatabaseFunc == nil {
		return nil, fmt.Errorf("unexpected QueryDatabase call")
	}
	return s.QueryDatabaseFunc(ctx, databaseID, req)
}

func (s *Stub) GetPage(ctx context.Context, pageID string) (*notion.Page, error) {
	s.record("GetPage")
	if s.GetPageFunc == nil {
		return nil, fmt.Errorf("unexpected GetPage call")
	}
	return s.GetPageFunc(ctx, pageID)
}

func (s *Stub) CreatePage(ctx context.Context, req notion.CreatePageRequest) (*notion.Page, error) {
	s.record("CreatePage")
	if s.CreatePageFunc == nil {
		return nil, fmt.Errorf("unexpected CreatePage call")
	}
	return s.CreatePageFunc(ctx, req)
}

func (s *Stub) UpdateProperties(ctx context.Context, pageID string, properties map[string]any) (*notion.Page, error) {
	s.record("UpdateProperties")
	if s.UpdatePropertiesFunc == nil {
		return nil, fmt.Errorf("unexpected UpdateProperties call")
	}
	return s.UpdatePropertiesFunc(ctx, pageID, properties)
}

func (s *Stub) ArchivePage(ctx context.Context, pageID string) (*notion.Page, error) {
	s.record("ArchivePage")
	if s.ArchivePageFunc == nil {
		return nil, fmt.Errorf("unexpected ArchivePage call")
	}
	return s.ArchivePageFunc(ctx, pageID)
}

func (s *Stub) GetBlock(ctx context.Context, blockID string) (*notion.Block, error) {
	s.record("GetBlock")
	if s.GetBlockFunc == nil {
		return nil, fmt.Errorf("unexpected GetBlock call")
	}
	return s.GetBlockFunc(ctx, blockID)
}

func (s *Stub) AppendBlocks(ctx context.Context, blockID string, children []map[string]any) (*notion.BlockList, error) {
	s.record("AppendBlocks")
	if s.AppendBlocksFunc == nil {
		return nil, fmt.Errorf("unexpected AppendBlocks call")
	}
	return s.AppendBlocksFunc(ctx, blockID, children)
}

func (s *Stub) UpdateBlock(ctx context.Context, blockID string, payload map[string]any) (*notion.Block, error) {
	s.record("UpdateBlock")
	if s.UpdateBlockFunc == nil {
		return nil, fmt.Errorf("unexpected UpdateBlock call")
	}
	return s.UpdateBlockFunc(ctx, blockID, payload)
}

func (s *Stub) DeleteBlock(ctx context.Context, blockID string) error {
	s.record("DeleteBlock")
	if s.DeleteBlockFunc == nil {
		return fmt.Errorf("unexpected DeleteBlock call")
	}
	return s.DeleteBlockFunc(ctx, blockID)
}
