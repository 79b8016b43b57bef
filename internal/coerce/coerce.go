// ABOUTME: Converts caller-supplied plain values into typed Notion property and block writes.
// ABOUTME: Every value is validated against the live schema before any mutation is attempted.

package coerce

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
	"github.com/2389/notebridge/internal/schema"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// SupportedBlockTypes are the block types accepted for block writes.
// paragraph is the guaranteed baseline; the rest mirror what text updates
// support upstream.
var SupportedBlockTypes = map[string]bool{
	"paragraph":          true,
	"heading_1":          true,
	"heading_2":          true,
	"heading_3":          true,
	"bulleted_list_item": true,
	"numbered_list_item": true,
	"to_do":              true,
}

// BlockSpec is the caller-facing shape of one block write.
type BlockSpec struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Checked bool   `json:"checked,omitempty"`
}

// Coerce converts one raw value into the typed write shape the property's
// declared type requires. Pure function of its inputs; the descriptor is
// never mutated.
func Coerce(desc *schema.Descriptor, propertyName string, raw any) (map[string]any, error) {
	prop, ok := desc.Property(propertyName)
	if !ok {
		return nil, apierr.E(apierr.KindValidation, "unknown property %q", propertyName)
	}

	switch prop.Type {
	case schema.TypeCheckbox:
		b, ok := raw.(bool)
		if !ok {
			return nil, apierr.E(apierr.KindValidation, "property %q expects a boolean", propertyName)
		}
		return map[string]any{"checkbox": b}, nil

	case schema.TypeSelect, schema.TypeStatus:
		label, ok := raw.(string)
		if !ok {
			return nil, apierr.E(apierr.KindValidation, "property %q expects a string option", propertyName)
		}
		if !containsLabel(prop.Options, label) {
			return nil, apierr.WithDetails(apierr.KindValidation,
				map[string]any{"property": propertyName, "options": prop.Options},
				"%q is not a valid option for property %q", label, propertyName)
		}
		return map[string]any{prop.Type: map[string]any{"name": label}}, nil

	case schema.TypeMultiSelect:
		labels, err := stringSlice(raw)
		if err != nil {
			return nil, apierr.E(apierr.KindValidation, "property %q expects a list of strings", propertyName)
		}
		// All-or-nothing: one bad label rejects the whole write.
		var invalid []string
		for _, label := range labels {
			if !containsLabel(prop.Options, label) {
				invalid = append(invalid, label)
			}
		}
		if len(invalid) > 0 {
			return nil, apierr.WithDetails(apierr.KindValidation,
				map[string]any{"property": propertyName, "invalid": invalid, "options": prop.Options},
				"invalid options for property %q: %s", propertyName, strings.Join(invalid, ", "))
		}
		entries := make([]map[string]any, len(labels))
		for i, label := range labels {
			entries[i] = map[string]any{"name": label}
		}
		return map[string]any{"multi_select": entries}, nil

	case schema.TypeTitle, schema.TypeRichText:
		text, ok := raw.(string)
		if !ok {
			return nil, apierr.E(apierr.KindValidation, "property %q expects a string", propertyName)
		}
		return map[string]any{prop.Type: notion.NewRichText(text)}, nil

	case "date":
		date, ok := raw.(string)
		if !ok || !dateRe.MatchString(date) {
			return nil, apierr.E(apierr.KindValidation, "property %q expects a YYYY-MM-DD date", propertyName)
		}
		return map[string]any{"date": map[string]any{"start": date}}, nil

	case "number":
		switch raw.(type) {
		case float64, int, int64:
			return map[string]any{"number": raw}, nil
		}
		return nil, apierr.E(apierr.KindValidation, "property %q expects a number", propertyName)

	case "relation":
		ids, err := stringSlice(raw)
		if err != nil {
			return nil, apierr.E(apierr.KindValidation, "property %q expects a list of page ids", propertyName)
		}
		entries := make([]map[string]any, len(ids))
		for i, id := range ids {
			if strings.TrimSpace(id) == "" {
				return nil, apierr.E(apierr.KindValidation, "property %q has an empty relation id", propertyName)
			}
			entries[i] = map[string]any{"id": id}
		}
		return map[string]any{"relation": entries}, nil

	case "url", "email", "phone_number":
		s, ok := raw.(string)
		if !ok {
			return nil, apierr.E(apierr.KindValidation, "property %q expects a string", propertyName)
		}
		return map[string]any{prop.Type: s}, nil

	case "rollup":
		return nil, apierr.E(apierr.KindValidation, "property %q is a rollup and cannot be written", propertyName)

	default:
		// Unrecognized types pass through unchanged: weaker validation in
		// exchange for forward compatibility with new property types.
		return map[string]any{prop.Type: raw}, nil
	}
}

// Properties coerces a whole batch. Every entry is validated before any
// remote write happens; a single failure rejects the batch, with every
// per-property failure reported.
func Properties(desc *schema.Descriptor, input map[string]any) (map[string]any, error) {
	writes := make(map[string]any, len(input))
	var failures []map[string]any
	for name, raw := range input {
		write, err := Coerce(desc, name, raw)
		if err != nil {
			e := apierr.AsError(err)
			failure := map[string]any{"property": name, "reason": e.Message}
			if e.Details != nil {
				failure["details"] = e.Details
			}
			failures = append(failures, failure)
			continue
		}
		writes[name] = write
	}
	if len(failures) > 0 {
		return nil, apierr.WithDetails(apierr.KindValidation,
			map[string]any{"properties": failures},
			"invalid properties payload (%d of %d rejected)", len(failures), len(input))
	}
	return writes, nil
}

// Blocks converts block specs into typed block writes. Unsupported types
// and empty text are validation failures; an empty list is too.
func Blocks(specs []BlockSpec) ([]map[string]any, error) {
	if len(specs) == 0 {
		return nil, apierr.E(apierr.KindValidation, "blocks must include at least one item")
	}
	writes := make([]map[string]any, 0, len(specs))
	for i, spec := range specs {
		if !SupportedBlockTypes[spec.Type] {
			return nil, apierr.WithDetails(apierr.KindValidation,
				map[string]any{"index": i, "supported": blockTypeList()},
				"unsupported block type %q", spec.Type)
		}
		if strings.TrimSpace(spec.Text) == "" {
			return nil, apierr.E(apierr.KindValidation, "block %d: text must be a non-empty string", i)
		}
		payload := map[string]any{"rich_text": notion.NewRichText(spec.Text)}
		if spec.Type == "to_do" {
			payload["checked"] = spec.Checked
		}
		writes = append(writes, map[string]any{
			"object":  "block",
			"type":    spec.Type,
			spec.Type: payload,
		})
	}
	return writes, nil
}

// BlocksFromContent splits plain text into one paragraph block per
// non-blank line. Returns nil for effectively empty content.
func BlocksFromContent(content string) []map[string]any {
	var writes []map[string]any
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		writes = append(writes, map[string]any{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]any{
				"rich_text": notion.NewRichText(line),
			},
		})
	}
	return writes
}

func blockTypeList() []string {
	types := make([]string, 0, len(SupportedBlockTypes))
	for t := range SupportedBlockTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func containsLabel(options []string, label string) bool {
	for _, o := range options {
		if o == label {
			return true
		}
	}
	return false
}

func stringSlice(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is not a string", i)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a list")
}
