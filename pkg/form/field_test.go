package form_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
)

func TestField_RequiredAndMinLength(t *testing.T) {
	field := form.NewField("ab", form.WithValidators(form.Required, form.MinLength(6)))

	if got := field.Status(); got != form.StatusInvalid {
		t.Fatalf("expected INVALID, got %s", got)
	}
	want := form.Errors{"minlength": map[string]any{"requiredLength": 6, "actualLength": 2}}
	if diff := cmp.Diff(want, field.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if err := field.SetValue("abcdef"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if got := field.Status(); got != form.StatusValid {
		t.Fatalf("expected VALID, got %s", got)
	}
	if errs := field.Errors(); errs != nil {
		t.Fatalf("expected no errors, got %#v", errs)
	}
}

func TestField_EmptyValueOnlyFailsRequired(t *testing.T) {
	field := form.NewField("", form.WithValidators(form.Required, form.MinLength(3), form.Email))
	if !field.HasError("required") {
		t.Fatalf("expected required error, got %#v", field.Errors())
	}
	if field.HasError("minlength") || field.HasError("email") {
		t.Fatalf("length and email validators must pass on empty values: %#v", field.Errors())
	}
}

func TestField_ValueChangesAndStatusChanges(t *testing.T) {
	field := form.NewField("", form.WithValidators(form.Required))
	values := collect(t, field.ValueChanges())
	statuses := collect(t, field.StatusChanges())

	_ = field.SetValue("a")
	_ = field.SetValue("")

	if diff := cmp.Diff([]any{"a", ""}, values.all()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	want := []form.Status{form.StatusValid, form.StatusInvalid}
	if diff := cmp.Diff(want, statuses.all()); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestField_SilentUpdate(t *testing.T) {
	field := form.NewField("")
	values := collect(t, field.ValueChanges())
	_ = field.SetValue("quiet", form.Silent())
	if got := values.all(); len(got) != 0 {
		t.Fatalf("expected no notifications, got %#v", got)
	}
	if field.Value() != "quiet" {
		t.Fatalf("value not stored: %#v", field.Value())
	}
}

func TestField_DisabledIsValid(t *testing.T) {
	field := form.NewField("", form.WithValidators(form.Required))
	field.Disable()
	if field.Status() != form.StatusDisabled {
		t.Fatalf("expected DISABLED, got %s", field.Status())
	}
	if !field.Valid() {
		t.Fatalf("disabled field must report valid")
	}
	if field.Errors() != nil {
		t.Fatalf("disabled field keeps no errors: %#v", field.Errors())
	}

	field.Enable()
	if !field.HasError("required") {
		t.Fatalf("enable must re-run validators, got %#v", field.Errors())
	}
}

func TestField_InputMarksDirty(t *testing.T) {
	field := form.NewField("")
	if !field.Pristine() {
		t.Fatalf("new field must be pristine")
	}
	field.Input("typed")
	if !field.Dirty() || field.Value() != "typed" {
		t.Fatalf("expected dirty field holding input, got dirty=%v value=%#v", field.Dirty(), field.Value())
	}
	_ = field.SetValue("programmatic")
	field.MarkAsPristine()
	if field.Dirty() {
		t.Fatalf("expected pristine after MarkAsPristine")
	}
}

func TestField_UpdateOnBlur(t *testing.T) {
	field := form.NewField("", form.WithUpdateOn(form.UpdateOnBlur), form.WithValidators(form.Required))
	values := collect(t, field.ValueChanges())

	field.Input("draft")
	if field.Value() != "" {
		t.Fatalf("input must be held back until blur, got %#v", field.Value())
	}
	if len(values.all()) != 0 {
		t.Fatalf("no value change expected before blur")
	}

	field.Blur()
	if field.Value() != "draft" || !field.Touched() {
		t.Fatalf("blur must commit and touch, got value=%#v touched=%v", field.Value(), field.Touched())
	}
	if diff := cmp.Diff([]any{"draft"}, values.all()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestField_ResetRestoresInitialValue(t *testing.T) {
	field := form.NewField("initial")
	field.Input("changed")
	field.MarkAsTouched()

	field.Reset(nil)
	if field.Value() != "initial" {
		t.Fatalf("expected initial value, got %#v", field.Value())
	}
	if field.Dirty() || field.Touched() {
		t.Fatalf("reset must clear dirty and touched")
	}

	field.Reset("other")
	if field.Value() != "other" {
		t.Fatalf("expected explicit reset value, got %#v", field.Value())
	}
}

func TestField_Sanitizers(t *testing.T) {
	field := form.NewField(" <b>Ada</b> ", form.WithSanitizer(form.StripHTML, form.Lowercase))
	if field.Value() != "ada" {
		t.Fatalf("expected sanitized value, got %#v", field.Value())
	}
	field.Input("<script>alert(1)</script>Bob")
	if field.Value() != "bob" {
		t.Fatalf("expected sanitized input, got %#v", field.Value())
	}

	safe := form.NewField(`<p onclick="x()">hi <em>there</em></p>`, form.WithSanitizer(form.SafeHTML))
	if safe.Value() != "<p>hi <em>there</em></p>" {
		t.Fatalf("unexpected safe html: %#v", safe.Value())
	}
}

func TestField_SetErrorsAndValidatorManagement(t *testing.T) {
	field := form.NewField("value")
	field.SetErrors(form.Errors{"server": "taken"})
	if !field.Invalid() || field.GetError("server") != "taken" {
		t.Fatalf("expected server error, got %#v", field.Errors())
	}
	field.UpdateValueAndValidity()
	if field.Invalid() {
		t.Fatalf("revalidation must drop manual errors")
	}

	field.SetValidators(form.MaxLength(2))
	field.UpdateValueAndValidity()
	if !field.HasError("maxlength") {
		t.Fatalf("expected maxlength after SetValidators")
	}
	field.AddValidators(form.Required)
	_ = field.SetValue("")
	if !field.HasError("required") {
		t.Fatalf("expected required after AddValidators")
	}
	field.ClearValidators()
	field.UpdateValueAndValidity()
	if !field.Valid() {
		t.Fatalf("expected valid after ClearValidators")
	}
}
