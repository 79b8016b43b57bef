// ABOUTME: Tests for the Notion HTTP client against a local test server.
// ABOUTME: Verifies headers, search filtering, pagination, and error kind mapping.

package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apierr "github.com/2389/notebridge/internal/errors"
)

const (
	testPageID = "11111111-1111-1111-1111-111111111111"
	testDBID   = "22222222-2222-2222-2222-222222222222"
)

func TestClient_SendsAuthAndVersionHeaders(t *testing.T) {
	var gotAuth, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		json.NewEncoder(w).Encode(Page{ID: testPageID})
	}))
	defer srv.Close()

	c := NewClient("secret-token", WithBaseURL(srv.URL))
	if _, err := c.GetPage(context.Background(), testPageID); err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret-token")
	}
	if gotVersion != Version {
		t.Errorf("Notion-Version = %q, want %q", gotVersion, Version)
	}
}

func TestClient_FindByExactTitle_FiltersAndPaginates(t *testing.T) {
	// Two pages of search results; only the exact, case-sensitive matches
	// should come back, across both pages.
	page := func(id, title string) map[string]any {
		return map[string]any{
			"object": "page",
			"id":     id,
			"properties": map[string]any{
				"Name": map[string]any{
					"type":  "title",
					"title": []map[string]any{{"plain_text": title}},
				},
			},
		}
	}
	database := func(id, title string) map[string]any {
		return map[string]any{
			"object": "database",
			"id":     id,
			"title":  []map[string]any{{"plain_text": title}},
		}
	}

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		calls++
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		switch calls {
		case 1:
			if body["start_cursor"] != nil {
				t.Errorf("first search carried start_cursor %v", body["start_cursor"])
			}
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					page("aaaa1111-1111-1111-1111-111111111111", "Journal"),
					page("bbbb1111-1111-1111-1111-111111111111", "journal"),
				},
				"has_more":    true,
				"next_cursor": "cursor-2",
			})
		case 2:
			if body["start_cursor"] != "cursor-2" {
				t.Errorf("second search start_cursor = %v, want cursor-2", body["start_cursor"])
			}
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					database("cccc1111-1111-1111-1111-111111111111", "Journal"),
					page("dddd1111-1111-1111-1111-111111111111", "Journal entries"),
				},
				"has_more": false,
			})
		}
	}))
	defer srv.Close()

	c := NewClient("t", WithBaseURL(srv.URL))
	matches, err := c.FindByExactTitle(context.Background(), "Journal")
	if err != nil {
		t.Fatalf("FindByExactTitle() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("search calls = %d, want 2", calls)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].Kind != KindPage || matches[0].Title != "Journal" {
		t.Errorf("matches[0] = %+v", matches[0])
	}
	if matches[1].Kind != KindDatabase {
		t.Errorf("matches[1] = %+v", matches[1])
	}
}

func TestClient_MapsRemoteFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind apierr.Kind
	}{
		{"remote 404", http.StatusNotFound, apierr.KindNotFound},
		{"remote 400", http.StatusBadRequest, apierr.KindUpstream},
		{"remote 429", http.StatusTooManyRequests, apierr.KindUpstream},
		{"remote 500", http.StatusInternalServerError, apierr.KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"nope"}`))
			}))
			defer srv.Close()

			c := NewClient("t", WithBaseURL(srv.URL))
			_, err := c.GetDatabase(context.Background(), testDBID)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apierr.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"dashed uuid", testPageID, false},
		{"undashed uuid", "11111111111111111111111111111111", false},
		{"whitespace padded", "  " + testPageID + "  ", false},
		{"empty", "", true},
		{"page title", "Groceries", true},
		{"truncated", "1111-2222", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeID("page_id", tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeID(%q) expected error, got %q", tt.input, got)
				}
				if kind := apierr.KindOf(err); kind != apierr.KindValidation {
					t.Errorf("kind = %q, want %q", kind, apierr.KindValidation)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeID(%q) error = %v", tt.input, err)
			}
		})
	}
}

func TestIsID(t *testing.T) {
	if !IsID(testPageID) {
		t.Error("IsID(uuid) = false, want true")
	}
	if IsID("Weekly Journal") {
		t.Error("IsID(title) = true, want false")
	}
}

func TestClient_DeleteBlock(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("t", WithBaseURL(srv.URL))
	if err := c.DeleteBlock(context.Background(), testPageID); err != nil {
		t.Fatalf("DeleteBlock() error = %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
	if gotPath != "/v1/blocks/"+testPageID {
		t.Errorf("path = %s", gotPath)
	}
}
