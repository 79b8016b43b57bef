// ABOUTME: Error taxonomy for command resolution and validation failures.
// ABOUTME: Provides structured Error values and the JSON envelope written by HTTP handlers.

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a command failure. Every failure that crosses the
// dispatcher boundary carries exactly one Kind.
type Kind string

const (
	// KindNotFound - requested id/name does not resolve to any object in scope
	KindNotFound Kind = "not_found"
	// KindAmbiguous - name resolution matched more than one candidate where exactly one was expected
	KindAmbiguous Kind = "ambiguous"
	// KindValidation - supplied value(s) do not satisfy the schema
	KindValidation Kind = "validation"
	// KindSchemaMismatch - schema-dependent lookup targets a property that does not exist or has the wrong type
	KindSchemaMismatch Kind = "schema_mismatch"
	// KindUnknownAction - dispatcher received an action with no registered handler
	KindUnknownAction Kind = "unknown_action"
	// KindUpstream - the Notion API call itself failed (network, auth, rate limit, remote 5xx)
	KindUpstream Kind = "upstream_error"
)

// Error is the structured failure type returned by resolver, schema cache,
// coercer, and dispatcher handlers. Details is optional machine-readable
// context (e.g. the valid option set for a rejected select value).
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// E builds a plain Error with no details.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails builds an Error carrying machine-readable context.
func WithDetails(kind Kind, details any, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Details: details}
}

// KindOf extracts the Kind from err, treating anything that is not a
// structured *Error as an upstream failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// AsError normalizes err into a structured *Error so handlers never leak
// bare failures across the dispatcher boundary.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindUpstream, Message: err.Error()}
}

// HTTPStatus maps a failure kind to the transport status the HTTP layer
// responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindAmbiguous:
		return http.StatusConflict
	case KindValidation, KindSchemaMismatch, KindUnknownAction:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the standardized error envelope written by HTTP handlers.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  *Error `json:"error"`
}

// WriteError writes the structured failure envelope for err.
func WriteError(w http.ResponseWriter, err error) {
	e := AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(e.Kind))
	json.NewEncoder(w).Encode(ErrorResponse{Status: "error", Error: e})
}

// WriteKind writes a failure envelope built on the spot, for transport-level
// failures that never went through the dispatcher (bad JSON body, etc).
func WriteKind(w http.ResponseWriter, kind Kind, format string, args ...any) {
	WriteError(w, E(kind, format, args...))
}
