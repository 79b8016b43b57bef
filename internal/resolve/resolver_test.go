// ABOUTME: Tests for root resolution and paginated child listing.
// ABOUTME: Verifies root caching, ambiguity handling, cursor walking, and case-sensitive child lookup.

package resolve

import (
	"context"
	"testing"

	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
	"github.com/2389/notebridge/internal/notion/notiontest"
)

const rootID = "11111111-1111-1111-1111-111111111111"

func childPage(id, title string) notion.Block {
	return notion.Block{
		ID:   id,
		Type: "child_page",
		Fields: map[string]any{
			"id":         id,
			"type":       "child_page",
			"child_page": map[string]any{"title": title},
		},
	}
}

func childDatabase(id, title string) notion.Block {
	return notion.Block{
		ID:   id,
		Type: "child_database",
		Fields: map[string]any{
			"id":             id,
			"type":           "child_database",
			"child_database": map[string]any{"title": title},
		},
	}
}

func TestResolveRoot_FetchesOnce(t *testing.T) {
	stub := &notiontest.Stub{
		FindByExactTitleFunc: func(ctx context.Context, name string) ([]notion.Object, error) {
			return []notion.Object{{ID: rootID, Title: name, Kind: notion.KindPage}}, nil
		},
	}
	r := New(stub, "HQ")

	for i := 0; i < 3; i++ {
		root, err := r.ResolveRoot(context.Background())
		if err != nil {
			t.Fatalf("ResolveRoot() error = %v", err)
		}
		if root.ID != rootID || root.Title != "HQ" {
			t.Errorf("root = %+v", root)
		}
	}
	if got := stub.Calls("FindByExactTitle"); got != 1 {
		t.Errorf("remote searches = %d, want 1", got)
	}
}

func TestResolveRoot_NoMatch(t *testing.T) {
	stub := &notiontest.Stub{
		FindByExactTitleFunc: func(ctx context.Context, name string) ([]notion.Object, error) {
			return nil, nil
		},
	}
	r := New(stub, "HQ")
	_, err := r.ResolveRoot(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := apierr.KindOf(err); kind != apierr.KindNotFound {
		t.Errorf("kind = %q, want %q", kind, apierr.KindNotFound)
	}
}

func TestResolveRoot_MultipleMatchesIsAmbiguous(t *testing.T) {
	stub := &notiontest.Stub{
		FindByExactTitleFunc: func(ctx context.Context, name string) ([]notion.Object, error) {
			return []notion.Object{
				{ID: "aaaa1111-1111-1111-1111-111111111111", Title: name},
				{ID: "bbbb1111-1111-1111-1111-111111111111", Title: name},
			}, nil
		},
	}
	r := New(stub, "HQ")
	_, err := r.ResolveRoot(context.Background())
	if err == nil {
		t.Fatal("expected error, got a root (must never pick-first)")
	}
	e := apierr.AsError(err)
	if e.Kind != apierr.KindAmbiguous {
		t.Fatalf("kind = %q, want %q", e.Kind, apierr.KindAmbiguous)
	}
	details, ok := e.Details.(map[string]any)
	if !ok {
		t.Fatalf("details = %T, want map", e.Details)
	}
	matches, ok := details["matches"].([]string)
	if !ok || len(matches) != 2 {
		t.Errorf("matches detail = %v", details["matches"])
	}
}

func TestRefresh_DropsCachedRoot(t *testing.T) {
	stub := &notiontest.Stub{
		FindByExactTitleFunc: func(ctx context.Context, name string) ([]notion.Object, error) {
			return []notion.Object{{ID: rootID, Title: name}}, nil
		},
	}
	r := New(stub, "HQ")

	if _, err := r.ResolveRoot(context.Background()); err != nil {
		t.Fatalf("ResolveRoot() error = %v", err)
	}
	r.Refresh()
	if _, err := r.ResolveRoot(context.Background()); err != nil {
		t.Fatalf("ResolveRoot() error = %v", err)
	}
	if got := stub.Calls("FindByExactTitle"); got != 2 {
		t.Errorf("remote searches = %d, want 2", got)
	}
}

func TestCollectChildren_WalksAllPages(t *testing.T) {
	// Three remote pages of sizes 2, 2, 1: all five children come back in
	// listing order, with exactly three remote calls.
	pages := []notion.BlockList{
		{Results: []notion.Block{childPage("p1", "One"), childDatabase("d1", "Two")}, HasMore: true, NextCursor: "c1"},
		{Results: []notion.Block{childPage("p2", "Three"), childPage("p3", "Four")}, HasMore: true, NextCursor: "c2"},
		{Results: []notion.Block{childDatabase("d2", "Five")}, HasMore: false},
	}
	cursors := map[string]int{"": 0, "c1": 1, "c2": 2}

	stub := &notiontest.Stub{
		ListChildrenFunc: func(ctx context.Context, containerID, cursor string, pageSize int) (*notion.BlockList, error) {
			idx, ok := cursors[cursor]
			if !ok {
				t.Fatalf("unexpected cursor %q", cursor)
			}
			page := pages[idx]
			return &page, nil
		},
	}
	r := New(stub, "HQ")

	children, err := r.CollectChildren(context.Background(), rootID)
	if err != nil {
		t.Fatalf("CollectChildren() error = %v", err)
	}
	if got := stub.Calls("ListChildren"); got != 3 {
		t.Errorf("remote calls = %d, want 3", got)
	}
	wantTitles := []string{"One", "Two", "Three", "Four", "Five"}
	if len(children) != len(wantTitles) {
		t.Fatalf("children = %d, want %d", len(children), len(wantTitles))
	}
	for i, want := range wantTitles {
		if children[i].Title != want {
			t.Errorf("children[%d].Title = %q, want %q", i, children[i].Title, want)
		}
	}
	if children[1].Kind != notion.KindDatabase {
		t.Errorf("children[1].Kind = %q, want %q", children[1].Kind, notion.KindDatabase)
	}
}

func TestChildPager_SkipsNonContainerBlocks(t *testing.T) {
	stub := &notiontest.Stub{
		ListChildrenFunc: func(ctx context.Context, containerID, cursor string, pageSize int) (*notion.BlockList, error) {
			return &notion.BlockList{Results: []notion.Block{
				{ID: "b1", Type: "paragraph", Fields: map[string]any{"type": "paragraph"}},
				childPage("p1", "Kept"),
				{ID: "b2", Type: "divider", Fields: map[string]any{"type": "divider"}},
			}}, nil
		},
	}
	r := New(stub, "HQ")
	children, err := r.CollectChildren(context.Background(), rootID)
	if err != nil {
		t.Fatalf("CollectChildren() error = %v", err)
	}
	if len(children) != 1 || children[0].Title != "Kept" {
		t.Errorf("children = %+v, want single Kept entry", children)
	}
}

func TestFindChildByName(t *testing.T) {
	listing := []notion.Block{
		childDatabase("d1", "Journal"),
		childPage("p1", "journal"),
		childPage("p2", "Notes"),
		childPage("p3", "Notes"),
	}
	stub := &notiontest.Stub{
		ListChildrenFunc: func(ctx context.Context, containerID, cursor string, pageSize int) (*notion.BlockList, error) {
			return &notion.BlockList{Results: listing}, nil
		},
	}
	r := New(stub, "HQ")

	t.Run("case sensitive match", func(t *testing.T) {
		child, err := r.FindChildByName(context.Background(), rootID, "Journal")
		if err != nil {
			t.Fatalf("FindChildByName() error = %v", err)
		}
		if child == nil || child.ID != "d1" || child.Kind != notion.KindDatabase {
			t.Errorf("child = %+v, want database d1", child)
		}
	})

	t.Run("absent is nil without error", func(t *testing.T) {
		child, err := r.FindChildByName(context.Background(), rootID, "JOURNAL")
		if err != nil {
			t.Fatalf("FindChildByName() error = %v", err)
		}
		if child != nil {
			t.Errorf("child = %+v, want nil", child)
		}
	})

	t.Run("duplicate titles are ambiguous", func(t *testing.T) {
		_, err := r.FindChildByName(context.Background(), rootID, "Notes")
		if err == nil {
			t.Fatal("expected error")
		}
		if kind := apierr.KindOf(err); kind != apierr.KindAmbiguous {
			t.Errorf("kind = %q, want %q", kind, apierr.KindAmbiguous)
		}
	})
}
