// ABOUTME: Name-or-id target references, resolved once at the dispatch boundary.
// ABOUTME: UUID-shaped values are ids used directly; everything else is an exact title under the root.

package command

import (
	"context"

	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
	"github.com/2389/notebridge/internal/resolve"
)

// TargetRef is the tagged union behind every "name or id" parameter.
// Exactly one of ID or Name is set.
type TargetRef struct {
	ID   string
	Name string
}

// ParseRef classifies a raw parameter value. Values matching the Notion id
// format skip the resolver round trip entirely.
func ParseRef(value string) TargetRef {
	if notion.IsID(value) {
		return TargetRef{ID: value}
	}
	return TargetRef{Name: value}
}

// resolveByName finds a target by exact title: the configured root itself,
// or one of its direct children. Absence of a match is not_found here
// because a named write target that resolves to nothing cannot proceed.
func resolveByName(ctx context.Context, d *Deps, name string) (resolve.ChildRef, Meta, error) {
	root, err := d.Resolver.ResolveRoot(ctx)
	if err != nil {
		return resolve.ChildRef{}, nil, err
	}
	if name == root.Title {
		ref := resolve.ChildRef{ID: root.ID, Title: root.Title, Kind: notion.KindPage}
		return ref, resolvedMeta(ref, true), nil
	}
	child, err := d.Resolver.FindChildByName(ctx, root.ID, name)
	if err != nil {
		return resolve.ChildRef{}, nil, err
	}
	if child == nil {
		return resolve.ChildRef{}, nil, apierr.E(apierr.KindNotFound,
			"no child titled %q under root %q", name, root.Title)
	}
	return *child, resolvedMeta(*child, false), nil
}

func resolvedMeta(ref resolve.ChildRef, isRoot bool) Meta {
	target := map[string]any{"id": ref.ID, "title": ref.Title, "kind": ref.Kind}
	if isRoot {
		target["root"] = true
	}
	return Meta{"resolved_target": target}
}
