// ABOUTME: Unit tests for the error taxonomy and HTTP envelope helpers.
// ABOUTME: Validates kind-to-status mapping, normalization, and JSON envelope shape.

package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindAmbiguous, http.StatusConflict},
		{KindValidation, http.StatusBadRequest},
		{KindSchemaMismatch, http.StatusBadRequest},
		{KindUnknownAction, http.StatusBadRequest},
		{KindUpstream, http.StatusBadGateway},
		{Kind("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := HTTPStatus(tt.kind); got != tt.want {
				t.Errorf("HTTPStatus(%q) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(E(KindAmbiguous, "two matches")); got != KindAmbiguous {
		t.Errorf("KindOf(structured) = %q, want %q", got, KindAmbiguous)
	}
	if got := KindOf(fmt.Errorf("dial tcp: connection refused")); got != KindUpstream {
		t.Errorf("KindOf(bare) = %q, want %q", got, KindUpstream)
	}
	wrapped := fmt.Errorf("query: %w", E(KindNotFound, "no such page"))
	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindNotFound)
	}
}

func TestAsError_NormalizesBareErrors(t *testing.T) {
	e := AsError(fmt.Errorf("boom"))
	if e.Kind != KindUpstream {
		t.Errorf("Kind = %q, want %q", e.Kind, KindUpstream)
	}
	if e.Message != "boom" {
		t.Errorf("Message = %q, want %q", e.Message, "boom")
	}
}

func TestWriteError_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, WithDetails(KindValidation,
		map[string]any{"options": []string{"Todo", "Done"}},
		"%q is not a valid option", "Dome"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body: %s", err, w.Body.String())
	}
	if resp.Status != "error" {
		t.Errorf("status field = %q, want %q", resp.Status, "error")
	}
	if resp.Error == nil || resp.Error.Kind != KindValidation {
		t.Fatalf("error field = %+v, want kind %q", resp.Error, KindValidation)
	}
	if resp.Error.Details == nil {
		t.Error("details missing from envelope")
	}
}

func TestWriteKind(t *testing.T) {
	w := httptest.NewRecorder()
	WriteKind(w, KindUnknownAction, "unknown action %q", "page.bogus")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp.Error.Message != `unknown action "page.bogus"` {
		t.Errorf("message = %q", resp.Error.Message)
	}
}
