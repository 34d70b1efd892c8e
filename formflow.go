// Package formflow is the top-level entry point: it turns declarative schema
// files or OpenAPI operations into reactive form trees.
package formflow

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/messages"
	"github.com/goliatone/go-formflow/pkg/orchestrator"
)

// Request selects the definition to build.
type Request = orchestrator.Request

// Result is a built form together with its definition and message catalog.
type Result = orchestrator.Result

// LintError reports a definition rejected before building.
type LintError = orchestrator.LintError

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Build resolves, lints and builds the requested form with a one-off
// orchestrator. It is the simplest entry point for callers that just want a
// live form.
func Build(ctx context.Context, req Request, options ...orchestrator.Option) (*Result, error) {
	return orchestrator.New(options...).Build(ctx, req)
}

// BuildFile builds the schema file at path.
func BuildFile(ctx context.Context, path string, options ...orchestrator.Option) (*Result, error) {
	return Build(ctx, Request{Path: path}, options...)
}

// BuildOperation builds the request body of operationID from an OpenAPI
// document.
func BuildOperation(ctx context.Context, document []byte, operationID string, options ...orchestrator.Option) (*Result, error) {
	return Build(ctx, Request{Document: document, OperationID: operationID}, options...)
}

// WithRegistry registers custom validation rules for linting and building.
func WithRegistry(registry *form.Registry) orchestrator.Option {
	return orchestrator.WithRegistry(registry)
}

// WithCatalog overrides the message catalog.
func WithCatalog(catalog *messages.Catalog) orchestrator.Option {
	return orchestrator.WithCatalog(catalog)
}

// WithTransformer registers a definition transformer.
func WithTransformer(t orchestrator.Transformer) orchestrator.Option {
	return orchestrator.WithTransformer(t)
}
