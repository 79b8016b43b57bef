// ABOUTME: Builds the OpenAPI 3 document served at /openapi.json.
// ABOUTME: The action enum is generated from the live dispatcher table so the document never drifts.

package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

func buildOpenAPIDocument(actions []string) ([]byte, error) {
	actionSchema := openapi3.NewStringSchema()
	for _, action := range actions {
		actionSchema.Enum = append(actionSchema.Enum, action)
	}

	commandSchema := openapi3.NewObjectSchema().
		WithPropertyRef("action", actionSchema.NewRef()).
		WithProperty("params", openapi3.NewObjectSchema())
	commandSchema.Required = []string{"action"}

	okResponse := openapi3.NewResponse().
		WithDescription("Command executed").
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("status", openapi3.NewStringSchema()).
			WithProperty("result", openapi3.NewObjectSchema()).
			WithProperty("meta", openapi3.NewObjectSchema()))

	failResponse := openapi3.NewResponse().
		WithDescription("Structured failure").
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("status", openapi3.NewStringSchema()).
			WithProperty("error", openapi3.NewObjectSchema().
				WithProperty("kind", openapi3.NewStringSchema()).
				WithProperty("message", openapi3.NewStringSchema()).
				WithProperty("details", openapi3.NewObjectSchema())))

	reportSchema := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("started_at", openapi3.NewStringSchema()).
		WithProperty("checks", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema()))

	paths := openapi3.NewPaths(
		openapi3.WithPath("/v1/ping", &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "ping",
				Summary:     "Service status, configured root, and last self-test result",
				Responses: openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("Status").WithJSONSchema(openapi3.NewObjectSchema()),
				})),
			},
		}),
		openapi3.WithPath("/v1/command", &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "command",
				Summary:     "Execute one workspace action",
				Description: "Write actions validate every value against the live schema before any mutation is issued.",
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().WithJSONSchema(commandSchema).WithRequired(true),
				},
				Responses: openapi3.NewResponses(
					openapi3.WithStatus(200, &openapi3.ResponseRef{Value: okResponse}),
					openapi3.WithStatus(400, &openapi3.ResponseRef{Value: failResponse}),
					openapi3.WithStatus(404, &openapi3.ResponseRef{Value: failResponse}),
					openapi3.WithStatus(409, &openapi3.ResponseRef{Value: failResponse}),
					openapi3.WithStatus(502, &openapi3.ResponseRef{Value: failResponse}),
				),
			},
		}),
		openapi3.WithPath("/v1/selftest", &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "runSelftest",
				Summary:     "Run the end-to-end self-test and persist the report",
				Responses: openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("Report").WithJSONSchema(reportSchema),
				})),
			},
			Get: &openapi3.Operation{
				OperationID: "lastSelftest",
				Summary:     "Last persisted self-test report",
				Responses: openapi3.NewResponses(
					openapi3.WithStatus(200, &openapi3.ResponseRef{
						Value: openapi3.NewResponse().WithDescription("Report").WithJSONSchema(reportSchema),
					}),
					openapi3.WithStatus(404, &openapi3.ResponseRef{Value: failResponse}),
				),
			},
		}),
		openapi3.WithPath("/v1/logs", &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "logs",
				Summary:     "Request log history",
				Responses: openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("Logs").WithJSONSchema(openapi3.NewObjectSchema()),
				})),
			},
		}),
		openapi3.WithPath("/v1/stats", &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "stats",
				Summary:     "Aggregate request statistics",
				Responses: openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("Stats").WithJSONSchema(openapi3.NewObjectSchema()),
				})),
			},
		}),
	)

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "notebridge",
			Description: "Schema-aware command layer over a Notion workspace.",
			Version:     "1.0.0",
		},
		Paths: paths,
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return json.Marshal(doc)
}
