// ABOUTME: End-to-end self-test exercising schema fetch, query, and a real property update.
// ABOUTME: Linear stage machine; the first failure short-circuits the remaining stages.

package selftest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/notebridge/internal/coerce"
	apierr "github.com/2389/notebridge/internal/errors"
	"github.com/2389/notebridge/internal/notion"
	"github.com/2389/notebridge/internal/resolve"
	"github.com/2389/notebridge/internal/schema"
)

// Stage names, in execution order.
const (
	StageSchema = "schema_check"
	StageQuery  = "query_check"
	StageUpdate = "update_check"
)

// Overall and per-stage outcomes.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Check is one stage outcome with enough detail to diagnose a failure
// without re-running.
type Check struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Report is an ordered list of stage outcomes; Status is PASS only when
// every stage passed.
type Report struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Checks    []Check   `json:"checks"`
}

// Runner drives the self-test against designated (or discovered) targets.
// The pass/fail result gates business commands only advisorily; enforcement
// belongs to the calling layer.
type Runner struct {
	api      notion.API
	resolver *resolve.Resolver
	schemas  *schema.Cache

	// Configured designators; discovered under the root when empty.
	databaseID string
	pageID     string
}

// New builds a runner. databaseID and pageID may be empty.
func New(api notion.API, resolver *resolve.Resolver, schemas *schema.Cache, databaseID, pageID string) *Runner {
	return &Runner{api: api, resolver: resolver, schemas: schemas, databaseID: databaseID, pageID: pageID}
}

// Run executes SCHEMA_CHECK, QUERY_CHECK, then UPDATE_CHECK. Stages run in
// order and the first failure ends the run with overall FAIL.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{Status: StatusPass, StartedAt: time.Now()}
	defer func() {
		report.Duration = time.Since(report.StartedAt).Round(time.Millisecond).String()
	}()

	fail := func(name string, details map[string]any, err error) *Report {
		check := Check{Name: name, Status: StatusFail, Details: details}
		if err != nil {
			check.Error = apierr.AsError(err).Error()
		}
		report.Checks = append(report.Checks, check)
		report.Status = StatusFail
		return report
	}
	pass := func(name string, details map[string]any) {
		report.Checks = append(report.Checks, Check{Name: name, Status: StatusPass, Details: details})
	}

	// SCHEMA_CHECK: the designated test database must yield a descriptor.
	databaseID, err := r.testDatabase(ctx)
	if err != nil {
		return fail(StageSchema, nil, err)
	}
	desc, err := r.schemas.Get(ctx, databaseID, true)
	if err != nil {
		return fail(StageSchema, map[string]any{"database_id": databaseID}, err)
	}
	pass(StageSchema, map[string]any{
		"database_id": databaseID,
		"title":       desc.Title,
		"properties":  len(desc.Properties),
	})

	// QUERY_CHECK: one page must come back from the test database.
	pageID := r.pageID
	list, err := r.api.QueryDatabase(ctx, databaseID, notion.QueryRequest{PageSize: 1})
	if err != nil {
		return fail(StageQuery, map[string]any{"database_id": databaseID}, err)
	}
	if len(list.Results) == 0 {
		return fail(StageQuery, map[string]any{"database_id": databaseID},
			apierr.E(apierr.KindNotFound, "test database returned no pages"))
	}
	if pageID == "" {
		pageID = list.Results[0].ID
	}
	pass(StageQuery, map[string]any{"database_id": databaseID, "page_id": pageID})

	// UPDATE_CHECK: write a property, re-read, and assert the round trip.
	details, err := r.updateRoundTrip(ctx, desc, pageID)
	if err != nil {
		return fail(StageUpdate, details, err)
	}
	pass(StageUpdate, details)

	return report
}

// testDatabase returns the configured test database or discovers the first
// database child under the root.
func (r *Runner) testDatabase(ctx context.Context) (string, error) {
	if r.databaseID != "" {
		return r.databaseID, nil
	}
	root, err := r.resolver.ResolveRoot(ctx)
	if err != nil {
		return "", err
	}
	pager := r.resolver.ListChildren(root.ID)
	for !pager.Done() {
		page, err := pager.Next(ctx)
		if err != nil {
			return "", err
		}
		for _, child := range page {
			if child.Kind == notion.KindDatabase {
				return child.ID, nil
			}
		}
	}
	return "", apierr.E(apierr.KindNotFound,
		"no test database configured and none found under root %q", root.Title)
}

// updateRoundTrip prefers a checkbox property (toggled), falling back to a
// title or rich_text property (suffixed), then verifies the written value
// survives a fresh read.
func (r *Runner) updateRoundTrip(ctx context.Context, desc *schema.Descriptor, pageID string) (map[string]any, error) {
	page, err := r.api.GetPage(ctx, pageID)
	if err != nil {
		return map[string]any{"page_id": pageID}, err
	}

	propName, wanted, err := pickUpdate(desc, page)
	if err != nil {
		return map[string]any{"page_id": pageID}, err
	}
	details := map[string]any{"page_id": pageID, "property": propName, "expected": wanted}

	write, err := coerce.Coerce(desc, propName, wanted)
	if err != nil {
		return details, err
	}
	if _, err := r.api.UpdateProperties(ctx, pageID, map[string]any{propName: write}); err != nil {
		return details, err
	}

	reread, err := r.api.GetPage(ctx, pageID)
	if err != nil {
		return details, err
	}
	observed := observedValue(reread, propName, desc)
	details["observed"] = observed
	if observed != wanted {
		return details, apierr.E(apierr.KindUpstream,
			"round trip mismatch on %q: wrote %v, read back %v", propName, wanted, observed)
	}
	return details, nil
}

// pickUpdate chooses the property to exercise and the value to write.
func pickUpdate(desc *schema.Descriptor, page *notion.Page) (string, any, error) {
	for _, prop := range desc.Sorted() {
		if prop.Type != schema.TypeCheckbox {
			continue
		}
		if value, ok := page.Properties[prop.Name]; ok {
			current, _ := value["checkbox"].(bool)
			return prop.Name, !current, nil
		}
	}

	suffix := fmt.Sprintf(" [test-%s]", uuid.NewString()[:6])
	for _, want := range []string{schema.TypeTitle, schema.TypeRichText} {
		for _, prop := range desc.Sorted() {
			if prop.Type != want {
				continue
			}
			value, ok := page.Properties[prop.Name]
			if !ok {
				continue
			}
			current := notion.PlainTextAny(value[prop.Type])
			return prop.Name, current + suffix, nil
		}
	}
	return "", nil, apierr.E(apierr.KindSchemaMismatch,
		"no checkbox, title, or rich_text property available for the update check")
}

// observedValue reads the value back in the same plain form it was written.
func observedValue(page *notion.Page, propName string, desc *schema.Descriptor) any {
	value, ok := page.Properties[propName]
	if !ok {
		return nil
	}
	prop, _ := desc.Property(propName)
	switch prop.Type {
	case schema.TypeCheckbox:
		checked, _ := value["checkbox"].(bool)
		return checked
	case schema.TypeTitle, schema.TypeRichText:
		return notion.PlainTextAny(value[prop.Type])
	}
	return value[prop.Type]
}
