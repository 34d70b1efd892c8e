package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/messages"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithRegistry injects the rule registry used for linting and building.
func WithRegistry(registry *form.Registry) Option {
	return func(o *Orchestrator) {
		if registry != nil {
			o.registry = registry
		}
	}
}

// WithCatalog injects the message catalog handed out with results.
func WithCatalog(catalog *messages.Catalog) Option {
	return func(o *Orchestrator) {
		if catalog != nil {
			o.catalog = catalog
		}
	}
}

// WithTransformer registers a Transformer that can rewrite the definition
// before it is linted and built.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.transformers = append(o.transformers, t)
		}
	}
}

// WithBuildOptions forwards options to form.Build.
func WithBuildOptions(opts ...form.BuildOption) Option {
	return func(o *Orchestrator) {
		o.buildOptions = append(o.buildOptions, opts...)
	}
}

// Orchestrator turns schema documents into live form trees.
type Orchestrator struct {
	registry     *form.Registry
	catalog      *messages.Catalog
	transformers []Transformer
	buildOptions []form.BuildOption
	initErr      error
}

// New constructs an Orchestrator with the built-in registry and message
// catalog unless overridden.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	if o.registry == nil {
		o.registry = form.NewRegistry()
	}
	if o.catalog == nil {
		o.catalog, o.initErr = messages.New()
	}
	return o
}

// Request selects the definition to build. Definition wins over Document,
// which wins over Path. With OperationID set the document is read as OpenAPI
// and the operation's request body becomes the form.
type Request struct {
	Definition  *schema.Form
	Document    []byte
	Path        string
	OperationID string

	// Values are patched into the built form.
	Values map[string]any
}

// Result is a built form together with the definition it came from.
type Result struct {
	Definition schema.Form
	Form       *form.Group
	Catalog    *messages.Catalog
}

// Messages renders the current validation errors of the form by path.
func (r *Result) Messages() map[string][]messages.Message {
	return r.Catalog.Collect(r.Form)
}

// LintError reports a definition rejected by validation.ValidateForm.
type LintError struct {
	Issues []validation.SchemaIssue
}

func (e *LintError) Error() string {
	if len(e.Issues) == 0 {
		return "orchestrator: invalid form definition"
	}
	first := e.Issues[0]
	location := first.Field
	if location == "" {
		location = first.Path
	}
	return fmt.Sprintf("orchestrator: form definition has %d issue(s); first at %s: %s", len(e.Issues), location, first.Message)
}

// Build resolves, lints and builds the requested form. Conditional rules
// stay bound until ctx is cancelled.
func (o *Orchestrator) Build(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.initErr != nil {
		return nil, o.initErr
	}

	def, err := o.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, t := range o.transformers {
		if err := t.Transform(ctx, &def); err != nil {
			return nil, fmt.Errorf("orchestrator: transform: %w", err)
		}
	}

	if result := validation.ValidateForm(def, o.registry); !result.Valid {
		return nil, &LintError{Issues: result.Issues}
	}

	root, err := form.Build(ctx, def, o.registry, o.buildOptions...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build form: %w", err)
	}
	if len(req.Values) > 0 {
		if err := root.PatchValue(req.Values); err != nil {
			return nil, fmt.Errorf("orchestrator: apply values: %w", err)
		}
	}

	logging.FromContext(ctx).Debug("orchestrator: form ready",
		zap.String("form", def.ID),
		zap.String("status", string(root.Status())),
	)
	return &Result{Definition: def, Form: root, Catalog: o.catalog}, nil
}

func (o *Orchestrator) resolve(ctx context.Context, req Request) (schema.Form, error) {
	if req.Definition != nil {
		return *req.Definition, nil
	}

	raw := req.Document
	if len(raw) == 0 {
		if strings.TrimSpace(req.Path) == "" {
			return schema.Form{}, errors.New("orchestrator: definition, document or path is required")
		}
		if req.OperationID == "" {
			def, err := schema.LoadFile(req.Path)
			if err != nil {
				return schema.Form{}, fmt.Errorf("orchestrator: load schema: %w", err)
			}
			return def, nil
		}
		var err error
		raw, err = os.ReadFile(req.Path)
		if err != nil {
			return schema.Form{}, fmt.Errorf("orchestrator: read document: %w", err)
		}
	}

	if req.OperationID != "" {
		def, err := openapi.FormFromOperation(ctx, raw, req.OperationID)
		if err != nil {
			return schema.Form{}, fmt.Errorf("orchestrator: %w", err)
		}
		return def, nil
	}
	def, err := schema.Parse(raw, req.Path)
	if err != nil {
		return schema.Form{}, fmt.Errorf("orchestrator: parse schema: %w", err)
	}
	return def, nil
}
