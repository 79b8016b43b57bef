// ABOUTME: Action registry mapping dotted action identifiers to handlers.
// ABOUTME: Unknown actions fail with unknown_action; handlers never panic across this boundary.

package command

import (
	"context"
	"sort"
	"sync"

	apierr "github.com/2389/notebridge/internal/errors"
)

// HandlerFunc executes one action against the shared collaborators.
type HandlerFunc func(ctx context.Context, d *Deps, params []byte) (any, Meta, error)

// Dispatcher routes commands to their handlers.
type Dispatcher struct {
	deps *Deps

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewDispatcher builds a dispatcher with the full action table registered.
func NewDispatcher(deps *Deps) *Dispatcher {
	d := &Dispatcher{deps: deps, handlers: make(map[string]HandlerFunc)}

	d.Register("page.read", pageRead)
	d.Register("page.create", pageCreate)
	d.Register("page.update", pageUpdate)
	d.Register("page.archive", pageArchive)
	d.Register("page.replace_content", pageReplaceContent)
	d.Register("db.list", dbList)
	d.Register("db.schema", dbSchema)
	d.Register("db.query", dbQuery)
	d.Register("block.append", blockAppend)
	d.Register("block.replace", blockReplace)
	d.Register("block.delete", blockDelete)
	d.Register("block.update", blockUpdate)

	return d
}

// Register adds a handler for an action. Duplicate registration is a
// programming error.
func (d *Dispatcher) Register(action string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[action]; exists {
		panic("action " + action + " already registered")
	}
	d.handlers[action] = h
}

// Actions returns the registered action identifiers, sorted.
func (d *Dispatcher) Actions() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	actions := make([]string, 0, len(d.handlers))
	for action := range d.handlers {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// Execute runs one command end-to-end. Every failure comes back as a
// structured error with a taxonomy kind.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (*Result, error) {
	d.mu.RLock()
	handler, ok := d.handlers[cmd.Action]
	d.mu.RUnlock()
	if !ok {
		return nil, apierr.WithDetails(apierr.KindUnknownAction,
			map[string]any{"actions": d.Actions()},
			"unknown action %q", cmd.Action)
	}

	result, meta, err := handler(ctx, d.deps, cmd.Params)
	if err != nil {
		return nil, err
	}
	return &Result{Result: result, Meta: meta}, nil
}
