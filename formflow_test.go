package formflow_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

func TestBuildFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := form.NewRegistry()
	result, err := formflow.BuildFile(ctx, "pkg/schema/testdata/signup.yaml", formflow.WithRegistry(registry))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.Form.Valid() {
		t.Fatalf("expected an empty signup form to be invalid")
	}

	accountType := result.Form.Get("accountType")
	company := result.Form.Get("company")
	if err := accountType.SetValue("business"); err != nil {
		t.Fatalf("set account type: %v", err)
	}
	if !company.HasError(form.KeyRequired) {
		t.Fatalf("expected company to become required for business accounts")
	}
}

func TestBuildOperation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw, err := os.ReadFile("pkg/openapi/testdata/accounts.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	result, err := formflow.BuildOperation(ctx, raw, "createAccount")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.Definition.Title != "Create account" {
		t.Fatalf("unexpected title %q", result.Definition.Title)
	}
}

func TestBuildSurfacesLintErrors(t *testing.T) {
	def := schema.Form{Controls: []schema.Control{{Name: "a"}, {Name: "a"}}}
	_, err := formflow.Build(context.Background(), formflow.Request{Definition: &def})
	var lintErr *formflow.LintError
	if !errors.As(err, &lintErr) {
		t.Fatalf("expected lint error, got %v", err)
	}
}
