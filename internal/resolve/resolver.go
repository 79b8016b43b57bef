// ABOUTME: Resolves the configured root container and its children without hardcoded ids.
// ABOUTME: Caches the root for the process lifetime and walks child listings one page at a time.

package resolve

import (
	"context"
	"sync"

	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
)

// RootContainer is the well-known top-level object all resolution starts
// from, found by exact title match.
type RootContainer struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ChildRef is a page or database living under a container.
type ChildRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

// Resolver finds the root container and lists its children. All remote
// access is read-only; the only local state is the cached root.
type Resolver struct {
	api      notion.API
	rootName string

	mu   sync.RWMutex
	root *RootContainer
}

// New builds a resolver for the container titled rootName.
func New(api notion.API, rootName string) *Resolver {
	return &Resolver{api: api, rootName: rootName}
}

// ResolveRoot returns the root container, fetching it at most once per
// process unless Refresh intervenes. Exactly one object must carry the
// configured title: zero matches is not_found, more than one is ambiguous
// (never pick-first).
func (r *Resolver) ResolveRoot(ctx context.Context) (RootContainer, error) {
	r.mu.RLock()
	if r.root != nil {
		root := *r.root
		r.mu.RUnlock()
		return root, nil
	}
	r.mu.RUnlock()

	matches, err := r.api.FindByExactTitle(ctx, r.rootName)
	if err != nil {
		return RootContainer{}, err
	}
	switch len(matches) {
	case 0:
		return RootContainer{}, apierr.E(apierr.KindNotFound, "no object titled %q found in workspace", r.rootName)
	case 1:
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return RootContainer{}, apierr.WithDetails(apierr.KindAmbiguous,
			map[string]any{"matches": ids},
			"%d objects titled %q found, expected exactly one", len(matches), r.rootName)
	}

	root := RootContainer{ID: matches[0].ID, Title: matches[0].Title}
	r.mu.Lock()
	r.root = &root
	r.mu.Unlock()
	return root, nil
}

// Refresh drops the cached root so the next ResolveRoot fetches again.
func (r *Resolver) Refresh() {
	r.mu.Lock()
	r.root = nil
	r.mu.Unlock()
}

// ListChildren starts a lazy walk over a container's children. Only one
// remote page is held in memory at a time.
func (r *Resolver) ListChildren(containerID string) *ChildPager {
	return &ChildPager{api: r.api, containerID: containerID}
}

// CollectChildren drains the full listing. Convenience for small
// workspaces; large ones should walk the pager directly.
func (r *Resolver) CollectChildren(ctx context.Context, containerID string) ([]ChildRef, error) {
	pager := r.ListChildren(containerID)
	var all []ChildRef
	for !pager.Done() {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
	return all, nil
}

// FindChildByName scans the full child listing for an exact, case-sensitive
// title match. Absence is not an error: the ref is nil and the caller
// decides. Two children sharing the name is ambiguous.
func (r *Resolver) FindChildByName(ctx context.Context, containerID, name string) (*ChildRef, error) {
	pager := r.ListChildren(containerID)
	var found *ChildRef
	for !pager.Done() {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		for i := range page {
			if page[i].Title != name {
				continue
			}
			if found != nil {
				return nil, apierr.E(apierr.KindAmbiguous,
					"more than one child titled %q under container %s", name, containerID)
			}
			child := page[i]
			found = &child
		}
	}
	return found, nil
}

// ChildPager walks a container's child blocks page by page, surfacing only
// the pages and databases among them. The continuation cursor never leaves
// this type.
type ChildPager struct {
	api         notion.API
	containerID string
	cursor      string
	done        bool
}

// Done reports whether the listing is exhausted.
func (p *ChildPager) Done() bool {
	return p.done
}

// Next fetches one remote page of children. After the final page Done
// reports true and further calls return an empty page.
func (p *ChildPager) Next(ctx context.Context) ([]ChildRef, error) {
	if p.done {
		return nil, nil
	}
	list, err := p.api.ListChildren(ctx, p.containerID, p.cursor, 0)
	if err != nil {
		return nil, err
	}
	if list.HasMore && list.NextCursor != "" {
		p.cursor = list.NextCursor
	} else {
		p.done = true
	}

	return RefsFromList(list), nil
}

// RefsFromList extracts the pages and databases from one page of a child
// block listing, preserving order.
func RefsFromList(list *notion.BlockList) []ChildRef {
	var refs []ChildRef
	for i := range list.Results {
		if ref, ok := childRefFromBlock(&list.Results[i]); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func childRefFromBlock(block *notion.Block) (ChildRef, bool) {
	switch block.Type {
	case "child_page":
		return ChildRef{ID: block.ID, Title: childTitle(block), Kind: notion.KindPage}, true
	case "child_database":
		return ChildRef{ID: block.ID, Title: childTitle(block), Kind: notion.KindDatabase}, true
	}
	return ChildRef{}, false
}

func childTitle(block *notion.Block) string {
	if payload := block.Payload(); payload != nil {
		if title, ok := payload["title"].(string); ok {
			return title
		}
	}
	return ""
}
