package api

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/getkin/kin-openapi/openapi3"

	"product-strategy-gateway/internal/gateway"
)

// Route describes one API operation for the OpenAPI document
type Route struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Tag         string
	// Task names the generation whose model reply shapes the response, if any
	Task gateway.Task
}

var routes = []Route{
	{http.MethodGet, "/health", "health", "Server and dependency health", "system", ""},
	{http.MethodGet, "/api/v1/health", "healthV1", "Server and dependency health", "system", ""},

	{http.MethodPost, "/api/v1/sessions", "createSession", "Start a wizard session", "sessions", ""},
	{http.MethodGet, "/api/v1/sessions/{id}", "getSession", "Session view state and analysis lifecycle", "sessions", ""},
	{http.MethodPut, "/api/v1/sessions/{id}/input", "putSessionInput", "Replace the wizard input", "sessions", ""},
	{http.MethodPost, "/api/v1/sessions/{id}/analysis", "startAnalysis", "Generate the DEEP analysis", "sessions", gateway.TaskAnalysis},
	{http.MethodDelete, "/api/v1/sessions/{id}/analysis", "resetAnalysis", "Clear the analysis for regeneration", "sessions", ""},
	{http.MethodPost, "/api/v1/sessions/{id}/solutions/bulk", "bulkSolutions", "Suggest solutions for every challenge", "sessions", gateway.TaskSolutionSuggestion},

	{http.MethodPost, "/api/v1/feedback", "analyzeText", "Span-anchored feedback on wizard text", "generation", gateway.TaskFeedback},
	{http.MethodPost, "/api/v1/suggestions/model", "suggestModel", "Recommend a monetization model", "generation", gateway.TaskModelSuggestion},
	{http.MethodPost, "/api/v1/suggestions/challenges", "suggestChallenges", "Suggest user challenges", "generation", gateway.TaskChallengeSuggestion},
	{http.MethodPost, "/api/v1/suggestions/solutions", "suggestSolutions", "Suggest solutions for one challenge", "generation", gateway.TaskSolutionSuggestion},
	{http.MethodPost, "/api/v1/suggestions/features", "suggestFeatures", "Suggest package features and pricing", "generation", gateway.TaskPackageSuggestion},
	{http.MethodPost, "/api/v1/chat/description", "describeFromChat", "Product description from a conversation", "generation", gateway.TaskChatDescription},

	{http.MethodPost, "/api/v1/strategies", "createStrategy", "Save a strategy", "strategies", ""},
	{http.MethodGet, "/api/v1/strategies", "listStrategies", "List saved strategies", "strategies", ""},
	{http.MethodGet, "/api/v1/strategies/{id}", "getStrategy", "Read a saved strategy", "strategies", ""},
	{http.MethodPut, "/api/v1/strategies/{id}", "updateStrategy", "Update a strategy (X-Edit-Token)", "strategies", ""},
	{http.MethodDelete, "/api/v1/strategies/{id}", "deleteStrategy", "Delete a strategy (X-Edit-Token)", "strategies", ""},
	{http.MethodGet, "/api/v1/share/{shareID}", "getSharedStrategy", "Read a public strategy", "share", ""},
	{http.MethodGet, "/api/v1/share/{shareID}/export", "exportSharedStrategy", "Export a public strategy as markdown or HTML", "share", ""},

	{http.MethodGet, "/ws/sessions/{id}", "sessionEvents", "WebSocket stream of session events", "sessions", ""},
}

// Routes returns every documented route
func Routes() []Route {
	return append([]Route(nil), routes...)
}

var pathParam = regexp.MustCompile(`\{([^}]+)\}`)

// OpenAPIDocument builds and validates the OpenAPI description of the API. Model
// reply schemas of the generation tasks are published as components.
func OpenAPIDocument(version string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Product Strategy Gateway API",
			Description: "Structured generation, analysis lifecycle and persistence for the product strategy wizard",
			Version:     version,
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}

	doc.Components.Schemas["Error"] = openapi3.NewSchemaRef("", errorSchema())
	for _, task := range gateway.Tasks() {
		schema, err := gateway.TaskSchema(task)
		if err != nil {
			return nil, err
		}
		doc.Components.Schemas[componentName(task)] = openapi3.NewSchemaRef("", schema.Definition)
	}

	errorResponse := openapi3.NewResponse().
		WithDescription("Error envelope").
		WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/Error", errorSchema()))

	for _, route := range routes {
		op := openapi3.NewOperation()
		op.OperationID = route.OperationID
		op.Summary = route.Summary
		op.Tags = []string{route.Tag}

		for _, match := range pathParam.FindAllStringSubmatch(route.Path, -1) {
			op.AddParameter(openapi3.NewPathParameter(match[1]).WithSchema(openapi3.NewStringSchema()))
		}
		if route.Method == http.MethodPost || route.Method == http.MethodPut {
			op.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithJSONSchema(openapi3.NewObjectSchema()),
			}
		}

		success := openapi3.NewResponse().WithDescription("Success envelope")
		if route.Task != "" {
			ref := "#/components/schemas/" + componentName(route.Task)
			success = openapi3.NewResponse().
				WithDescription(fmt.Sprintf("Success envelope; data is assembled from the %s reply", route.Task)).
				WithJSONSchemaRef(openapi3.NewSchemaRef(ref, doc.Components.Schemas[componentName(route.Task)].Value))
		}
		op.Responses = openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: success}),
			openapi3.WithName("default", errorResponse),
		)

		doc.AddOperation(route.Path, route.Method, op)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

func componentName(task gateway.Task) string {
	return string(task) + "Reply"
}

func errorSchema() *openapi3.Schema {
	details := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("trace_id", openapi3.NewStringSchema())
	details.Required = []string{"code", "message"}

	return openapi3.NewObjectSchema().
		WithProperty("error", details).
		WithProperty("timestamp", openapi3.NewStringSchema()).
		WithProperty("request_id", openapi3.NewStringSchema())
}
