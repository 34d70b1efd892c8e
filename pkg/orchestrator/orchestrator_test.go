package orchestrator

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/schema"
)

const signupPath = "../schema/testdata/signup.yaml"

func TestBuildFromSchemaFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := New().Build(ctx, Request{
		Path: signupPath,
		Values: map[string]any{
			"username": "ada",
			"password": "secret1",
			"confirm":  "secret1",
			"terms":    true,
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.Definition.ID != "signup" {
		t.Fatalf("expected signup definition, got %q", result.Definition.ID)
	}
	if got := result.Form.Get("username").Value(); got != "ada" {
		t.Fatalf("expected patched username, got %v", got)
	}
	if !result.Form.Valid() {
		t.Fatalf("expected valid form, messages: %v", result.Messages())
	}
}

func TestBuildReportsMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := New().Build(ctx, Request{Path: signupPath})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	msgs := result.Messages()
	if len(msgs["username"]) == 0 || msgs["username"][0].Text != "Username is required" {
		t.Fatalf("expected username message, got %v", msgs["username"])
	}
}

func TestBuildFromOpenAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw, err := os.ReadFile("../openapi/testdata/accounts.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	result, err := New().Build(ctx, Request{Document: raw, OperationID: "createAccount"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := result.Form.Get("plan").Value(); got != "free" {
		t.Fatalf("expected enum default, got %v", got)
	}
	if !result.Form.Get("email").HasError(form.KeyRequired) {
		t.Fatalf("expected required email")
	}

	_, err = New().Build(ctx, Request{Path: "../openapi/testdata/accounts.json", OperationID: "missing"})
	if !errors.Is(err, openapi.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestBuildRejectsInvalidDefinitions(t *testing.T) {
	def := schema.Form{
		ID:       "broken",
		Controls: []schema.Control{{Name: "tags", Kind: schema.KindArray}},
	}

	_, err := New().Build(context.Background(), Request{Definition: &def})
	var lintErr *LintError
	if !errors.As(err, &lintErr) {
		t.Fatalf("expected LintError, got %v", err)
	}
	if len(lintErr.Issues) != 1 || lintErr.Issues[0].Field != "tags" {
		t.Fatalf("unexpected issues %#v", lintErr.Issues)
	}
}

func TestBuildRequiresSource(t *testing.T) {
	if _, err := New().Build(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error without a source")
	}
}

func TestBuildAppliesTransformers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	data, err := os.ReadFile("testdata/preset.yaml")
	if err != nil {
		t.Fatalf("read preset: %v", err)
	}
	preset, err := NewPresetTransformer(data)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	var seen string
	spy := TransformerFunc(func(_ context.Context, def *schema.Form) error {
		seen = def.Title
		return nil
	})

	result, err := New(WithTransformer(preset), WithTransformer(spy)).Build(ctx, Request{Path: signupPath})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if seen != "Join us" {
		t.Fatalf("expected transformers to run in order, spy saw %q", seen)
	}

	email, _ := result.Definition.Find("email")
	want := schema.Control{
		Name:        "email",
		Format:      "email",
		Label:       "Work email",
		Placeholder: "you@company.com",
		Required:    true,
		Kind:        email.Kind,
		Type:        email.Type,
		Rules:       email.Rules,
	}
	if diff := cmp.Diff(want, email); diff != "" {
		t.Fatalf("email mismatch (-want +got):\n%s", diff)
	}
	if got := result.Form.Get("email").Meta().Label; got != "Work email" {
		t.Fatalf("expected built label, got %q", got)
	}
	if !result.Form.Get("email").HasError(form.KeyRequired) {
		t.Fatalf("expected preset to make email required")
	}

	if err := result.Form.Get("address.postalCode").SetValue("123456"); err != nil {
		t.Fatalf("set postal code: %v", err)
	}
	if !result.Form.Get("address.postalCode").HasError(form.KeyMaxLength) {
		t.Fatalf("expected appended maxLength rule")
	}
	phone, _ := result.Definition.Find("phones.0")
	if phone.Metadata["widget"] != "tel" {
		t.Fatalf("expected array item metadata, got %v", phone.Metadata)
	}
	if result.Definition.Metadata["theme"] != "dark" {
		t.Fatalf("expected form metadata, got %v", result.Definition.Metadata)
	}
}

func TestPresetTransformerUnknownControl(t *testing.T) {
	preset, err := NewPresetTransformer([]byte(`{"fields": {"nope": {"label": "x"}}}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	def := schema.Form{Controls: []schema.Control{{Name: "email"}}}
	if err := preset.Transform(context.Background(), &def); err == nil {
		t.Fatalf("expected unknown control error")
	}
	if _, err := NewPresetTransformer(nil); err == nil {
		t.Fatalf("expected empty document error")
	}
}
