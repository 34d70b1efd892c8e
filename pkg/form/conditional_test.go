package form_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-formflow/pkg/expr"
	"github.com/goliatone/go-formflow/pkg/form"
)

func TestWhen_TogglesValidators(t *testing.T) {
	accountType := form.NewField("personal")
	company := form.NewField("", form.WithValidators(form.MaxLength(5)))
	form.NewGroup([]form.Entry{
		{Name: "accountType", Control: accountType},
		{Name: "company", Control: company},
	})

	sub := form.When(context.Background(), accountType, form.Equals("business"), company, form.Required)
	if company.Status() != form.StatusValid {
		t.Fatalf("expected VALID while the condition does not hold, got %s", company.Status())
	}

	_ = accountType.SetValue("business")
	if !company.HasError("required") {
		t.Fatalf("expected required once the condition holds, got %#v", company.Errors())
	}

	_ = company.SetValue("Acme Corporation")
	if company.HasError("required") || !company.HasError("maxlength") {
		t.Fatalf("existing validators must be kept, got %#v", company.Errors())
	}

	_ = accountType.SetValue("personal")
	_ = company.SetValue("")
	if company.Status() != form.StatusValid {
		t.Fatalf("expected VALID after the condition stops holding, got %s", company.Status())
	}

	sub.Dispose()
	_ = accountType.SetValue("business")
	if company.HasError("required") {
		t.Fatalf("disposed condition must stop following the trigger")
	}
}

func TestWhen_AppliesInitialState(t *testing.T) {
	subscribe := form.NewField(true)
	email := form.NewField("")
	sub := form.When(context.Background(), subscribe, form.Equals(true), email, form.Required, form.Email)
	defer sub.Dispose()

	if !email.HasError("required") {
		t.Fatalf("condition must be evaluated at bind time, got %#v", email.Errors())
	}
}

func TestBind_MultipleTriggers(t *testing.T) {
	country := form.NewField("US")
	shipping := form.NewField(false)
	zip := form.NewField("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	binding := form.Bind(ctx, zip,
		form.Conditional{Trigger: country, Predicate: form.Equals("US"), Validators: []form.Validator{form.Pattern(`[0-9]{5}`)}},
		form.Conditional{Trigger: shipping, Predicate: form.Equals(true), Validators: []form.Validator{form.Required}},
	)
	defer binding.Dispose()

	_ = zip.SetValue("abc")
	if !zip.HasError("pattern") || zip.HasError("required") {
		t.Fatalf("expected only pattern, got %#v", zip.Errors())
	}

	_ = shipping.SetValue(true)
	_ = zip.SetValue("")
	if !zip.HasError("required") {
		t.Fatalf("expected required from second trigger, got %#v", zip.Errors())
	}
	if got := binding.Active(); len(got) != 2 || !got[0] || !got[1] {
		t.Fatalf("expected both conditions active, got %v", got)
	}
}

func TestBind_ExpressionWatchesEveryField(t *testing.T) {
	plan := form.NewField("free")
	seats := form.NewField(1)
	invoiceEmail := form.NewField("")
	controls := map[string]form.Control{"plan": plan, "seats": seats}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	binding := form.Bind(ctx, invoiceEmail, form.Conditional{
		Trigger:    plan,
		Watch:      []form.Control{seats},
		Predicate:  form.Expr(expr.MustCompile(`plan == "team" && seats > 5`), func(path string) form.Control { return controls[path] }),
		Validators: []form.Validator{form.Required},
	})
	defer binding.Dispose()

	_ = plan.SetValue("team")
	if invoiceEmail.HasError("required") {
		t.Fatalf("five seats or fewer need no invoice email")
	}
	_ = seats.SetValue(10)
	if !invoiceEmail.HasError("required") {
		t.Fatalf("expected a change of a watched control to re-evaluate, got %#v", invoiceEmail.Errors())
	}
	_ = plan.SetValue("free")
	if invoiceEmail.HasError("required") {
		t.Fatalf("expected condition to lift with the trigger")
	}
}

func TestEquals(t *testing.T) {
	cases := []struct {
		expected any
		value    any
		want     bool
	}{
		{"business", "business", true},
		{true, "true", true},
		{1, 1.0, true},
		{"a", "b", false},
		{"a", nil, false},
		{nil, nil, true},
	}
	for _, tc := range cases {
		if got := form.Equals(tc.expected)(tc.value); got != tc.want {
			t.Fatalf("Equals(%#v)(%#v) = %v, want %v", tc.expected, tc.value, got, tc.want)
		}
	}
}
