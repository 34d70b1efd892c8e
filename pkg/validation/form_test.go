package validation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

func TestValidateForm_Valid(t *testing.T) {
	result := validation.ValidateFile("../schema/testdata/signup.yaml", nil)
	if !result.Valid {
		t.Fatalf("expected valid form, got %#v", result.Issues)
	}
}

func TestValidateForm_ReportsIssues(t *testing.T) {
	def := schema.Form{
		Validators: []schema.Rule{{Kind: schema.RuleFieldsMatch, Params: map[string]string{"fields": "password,nope"}}},
		Controls: []schema.Control{
			{Name: "password", Rules: []schema.Rule{{Kind: schema.RuleMinLength, Params: map[string]string{"value": "many"}}}},
			{Name: "password"},
			{Name: "tags", Kind: schema.KindArray},
			{Name: "plan", Enum: []any{"free", "pro"}, Default: "gold", Sanitize: []string{"shout"}},
			{Name: "company", When: []schema.Condition{{Field: "accountType", Rules: []schema.Rule{{Kind: "bogus"}}}}},
			{Name: "confirm", UpdateOn: "focus", Rules: []schema.Rule{{Kind: schema.RuleMatch, Params: map[string]string{"field": "secret"}}}},
		},
	}

	result := validation.ValidateForm(def, nil)
	if result.Valid {
		t.Fatalf("expected issues")
	}
	want := []validation.SchemaIssue{
		{Path: "/controls/0/rules/0", Field: "password", Message: `minLength expects a non-negative integer value, got "many"`},
		{Path: "/controls/1", Field: "password", Message: "duplicate name (first defined at /controls/0)"},
		{Path: "/controls/2/item", Field: "tags", Message: "array has no item"},
		{Path: "/controls/3/default", Field: "plan", Message: "default gold is not one of the enum values"},
		{Path: "/controls/3/sanitize/0", Field: "plan", Message: `unknown sanitizer "shout"`},
		{Path: "/controls/4/when/0/field", Field: "company", Message: `condition refers to unknown field "accountType"`},
		{Path: "/controls/4/when/0/rules/0", Field: "company", Message: `unknown rule kind "bogus"`},
		{Path: "/controls/5/rules/0", Field: "confirm", Message: `match refers to unknown field "secret"`},
		{Path: "/controls/5/updateOn", Field: "confirm", Message: `updateOn must be "change" or "blur"`},
		{Path: "/validators/0", Field: "", Message: `fieldsMatch refers to unknown field "nope"`},
	}
	if diff := cmp.Diff(want, result.Issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateForm_ConditionExpressions(t *testing.T) {
	when := func(src string) []schema.Condition {
		return []schema.Condition{{Expr: src, Rules: []schema.Rule{{Kind: schema.RuleRequired}}}}
	}
	def := schema.Form{
		Controls: []schema.Control{
			{Name: "plan"},
			{Name: "trial", Type: schema.FieldTypeBoolean},
			{Name: "company", When: when(`plan == "pro" && trial != true`)},
			{Name: "vat", When: when(`plan == "pro" && region == "eu"`)},
			{Name: "coupon", When: when(`plan ==`)},
			{Name: "notes", When: when(`notes != ""`)},
			{Name: "phone", When: []schema.Condition{{Field: "plan", Expr: "trial", Rules: []schema.Rule{{Kind: schema.RuleRequired}}}}},
		},
	}

	result := validation.ValidateForm(def, nil)
	want := []validation.SchemaIssue{
		{Path: "/controls/3/when/0/expr", Field: "vat", Message: `condition expression refers to unknown field "region"`},
		{Path: "/controls/4/when/0/expr", Field: "coupon", Message: "syntax error: expected a field or value, got end of input"},
		{Path: "/controls/5/when/0/expr", Field: "notes", Message: `condition expression reads its own field "notes"`},
		{Path: "/controls/6/when/0", Field: "phone", Message: "condition sets expr together with field or equals"},
	}
	if diff := cmp.Diff(want, result.Issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFile_LoadFailure(t *testing.T) {
	result := validation.ValidateFile("testdata/missing.yaml", nil)
	if result.Valid || len(result.Issues) != 1 {
		t.Fatalf("expected a single load issue, got %#v", result)
	}
}
