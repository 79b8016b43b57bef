// ABOUTME: Tests for the database schema cache and descriptors.
// ABOUTME: Verifies option ordering, caching behavior, forced refresh, and schema mismatch errors.

package schema

import (
	"context"
	"reflect"
	"testing"

	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
	"github.com/2389/notebridge/internal/notion/notiontest"
)

const dbID = "22222222-2222-2222-2222-222222222222"

func testDatabase() *notion.Database {
	return &notion.Database{
		ID:    dbID,
		Title: []notion.RichText{{PlainText: "Tasks"}},
		Properties: map[string]map[string]any{
			"Name": {"type": "title", "title": map[string]any{}},
			"Done": {"type": "checkbox", "checkbox": map[string]any{}},
			"Status": {
				"type": "select",
				"select": map[string]any{
					"options": []any{
						map[string]any{"name": "Todo"},
						map[string]any{"name": "Doing"},
						map[string]any{"name": "Done"},
					},
				},
			},
			"Tags": {
				"type": "multi_select",
				"multi_select": map[string]any{
					"options": []any{
						map[string]any{"name": "home"},
						map[string]any{"name": "work"},
					},
				},
			},
		},
	}
}

func newTestCache() (*Cache, *notiontest.Stub) {
	stub := &notiontest.Stub{
		GetDatabaseFunc: func(ctx context.Context, databaseID string) (*notion.Database, error) {
			return testDatabase(), nil
		},
	}
	return NewCache(stub), stub
}

func TestCache_Get_UsesCache(t *testing.T) {
	cache, stub := newTestCache()

	for i := 0; i < 3; i++ {
		desc, err := cache.Get(context.Background(), dbID, false)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if desc.Title != "Tasks" {
			t.Errorf("Title = %q, want Tasks", desc.Title)
		}
	}
	if got := stub.Calls("GetDatabase"); got != 1 {
		t.Errorf("remote fetches = %d, want 1", got)
	}
}

func TestCache_Get_ForceRefresh(t *testing.T) {
	cache, stub := newTestCache()

	if _, err := cache.Get(context.Background(), dbID, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := cache.Get(context.Background(), dbID, true); err != nil {
		t.Fatalf("Get(refresh) error = %v", err)
	}
	if got := stub.Calls("GetDatabase"); got != 2 {
		t.Errorf("remote fetches = %d, want 2", got)
	}
}

func TestCache_Invalidate(t *testing.T) {
	cache, stub := newTestCache()

	cache.Get(context.Background(), dbID, false)
	cache.Invalidate(dbID)
	cache.Get(context.Background(), dbID, false)
	if got := stub.Calls("GetDatabase"); got != 2 {
		t.Errorf("remote fetches = %d, want 2", got)
	}
}

func TestDescriptor_PreservesOptionOrder(t *testing.T) {
	cache, _ := newTestCache()
	desc, err := cache.Get(context.Background(), dbID, false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	status, ok := desc.Property("Status")
	if !ok {
		t.Fatal("Status property missing")
	}
	want := []string{"Todo", "Doing", "Done"}
	if !reflect.DeepEqual(status.Options, want) {
		t.Errorf("Status options = %v, want %v (schema order)", status.Options, want)
	}

	done, _ := desc.Property("Done")
	if done.Type != TypeCheckbox || done.Options != nil {
		t.Errorf("Done = %+v, want checkbox with no options", done)
	}
}

func TestOptionsFor(t *testing.T) {
	cache, _ := newTestCache()
	ctx := context.Background()

	t.Run("choice property", func(t *testing.T) {
		options, err := cache.OptionsFor(ctx, dbID, "Tags")
		if err != nil {
			t.Fatalf("OptionsFor() error = %v", err)
		}
		if !reflect.DeepEqual(options, []string{"home", "work"}) {
			t.Errorf("options = %v", options)
		}
	})

	t.Run("missing property", func(t *testing.T) {
		_, err := cache.OptionsFor(ctx, dbID, "Priority")
		if kind := apierr.KindOf(err); kind != apierr.KindSchemaMismatch {
			t.Errorf("kind = %q, want %q", kind, apierr.KindSchemaMismatch)
		}
	})

	t.Run("non-choice property", func(t *testing.T) {
		_, err := cache.OptionsFor(ctx, dbID, "Done")
		if kind := apierr.KindOf(err); kind != apierr.KindSchemaMismatch {
			t.Errorf("kind = %q, want %q", kind, apierr.KindSchemaMismatch)
		}
	})
}

func TestDescriptor_TitleProperty(t *testing.T) {
	cache, _ := newTestCache()
	desc, _ := cache.Get(context.Background(), dbID, false)

	name, err := desc.TitleProperty()
	if err != nil {
		t.Fatalf("TitleProperty() error = %v", err)
	}
	if name != "Name" {
		t.Errorf("TitleProperty() = %q, want Name", name)
	}

	bare := &Descriptor{DatabaseID: dbID, Properties: map[string]Property{
		"Done": {Name: "Done", Type: TypeCheckbox},
	}}
	if _, err := bare.TitleProperty(); apierr.KindOf(err) != apierr.KindSchemaMismatch {
		t.Errorf("kind = %q, want %q", apierr.KindOf(err), apierr.KindSchemaMismatch)
	}
}

func TestDescriptor_Sorted(t *testing.T) {
	cache, _ := newTestCache()
	desc, _ := cache.Get(context.Background(), dbID, false)

	props := desc.Sorted()
	wantNames := []string{"Done", "Name", "Status", "Tags"}
	if len(props) != len(wantNames) {
		t.Fatalf("len = %d, want %d", len(props), len(wantNames))
	}
	for i, want := range wantNames {
		if props[i].Name != want {
			t.Errorf("props[%d].Name = %q, want %q", i, props[i].Name, want)
		}
	}
}

func TestIsChoiceType(t *testing.T) {
	for _, choice := range []string{TypeSelect, TypeStatus, TypeMultiSelect} {
		if !IsChoiceType(choice) {
			t.Errorf("IsChoiceType(%q) = false, want true", choice)
		}
	}
	for _, plain := range []string{TypeTitle, TypeRichText, TypeCheckbox, "number"} {
		if IsChoiceType(plain) {
			t.Errorf("IsChoiceType(%q) = true, want false", plain)
		}
	}
}
