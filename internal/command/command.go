// ABOUTME: Command and result types for the action dispatch layer.
// ABOUTME: A command is an action identifier plus action-specific params, immutable once received.

package command

import (
	"encoding/json"

	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
	"github.com/2389/notebridge/internal/resolve"
	"github.com/2389/notebridge/internal/schema"
)

// Command is one inbound action request. Action is a dotted verb
// (resource.operation); Params stays raw until the handler's own parameter
// struct decodes it.
type Command struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Meta carries resolution side-information alongside a successful result,
// e.g. which target a name lookup matched.
type Meta map[string]any

// Result is a successful command outcome. Failures travel as structured
// errors and never cross the dispatcher boundary as panics.
type Result struct {
	Result any  `json:"result"`
	Meta   Meta `json:"meta,omitempty"`
}

// Deps are the collaborators every handler consumes.
type Deps struct {
	API      notion.API
	Resolver *resolve.Resolver
	Schemas  *schema.Cache
}

// decodeParams unmarshals raw params into an action's parameter struct.
// A malformed shape is a validation failure caught before the handler body.
func decodeParams[T any](raw json.RawMessage) (T, error) {
	var params T
	if len(raw) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, apierr.E(apierr.KindValidation, "invalid params: %v", err)
	}
	return params, nil
}
