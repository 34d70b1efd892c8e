package expr

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEval(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"plan":     "pro",
		"trial":    false,
		"age":      21,
		"score":    "7.5",
		"nickname": "",
		"password": "hunter2",
		"confirm":  "hunter2",
		"address":  map[string]any{"city": "Lyon", "zip": nil},
		"tags":     []any{"go", "forms"},
		"flag":     "true",
	}

	cases := []struct {
		src  string
		want bool
	}{
		{`plan == "pro"`, true},
		{`plan != "pro"`, false},
		{`plan == pro`, false},
		{`plan == "pro" && !trial`, true},
		{`plan == "free" || trial`, false},
		{`!(plan == "free" || trial)`, true},
		{`trial == false`, true},
		{`trial != true`, true},
		{`missing != true`, true},
		{`missing == null`, true},
		{`nickname == null`, true},
		{`nickname`, false},
		{`age >= 18`, true},
		{`age < 18`, false},
		{`age == "21"`, true},
		{`score > 7`, true},
		{`score <= -1`, false},
		{`address.city == "Lyon"`, true},
		{`address.zip`, false},
		{`tags.1 == "forms"`, true},
		{`tags`, true},
		{`password == confirm`, true},
		{`flag == true`, true},
		{"plan == `pro`", true},
		{`plan < "zzz"`, true},
		{`plan > 3`, false},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			e, err := Compile(tc.src)
			if err != nil {
				t.Fatalf("compile %q: %v", tc.src, err)
			}
			if got := e.EvalMap(values); got != tc.want {
				t.Fatalf("%s: got %v, want %v", tc.src, got, tc.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"",
		"   ",
		"plan =",
		"plan = 'pro'",
		`plan == "pro`,
		"plan == (",
		"(plan == 1",
		"plan & trial",
		"plan ==",
		"a b",
		"address..city",
		"address.",
		"== 1",
	} {
		if _, err := Compile(src); !errors.Is(err, ErrSyntax) {
			t.Fatalf("Compile(%q): expected ErrSyntax, got %v", src, err)
		}
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	e := MustCompile(`b != true && (a == "x" || a == "y") && address.city`)
	if diff := cmp.Diff([]string{"a", "address.city", "b"}, e.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if e.String() != `b != true && (a == "x" || a == "y") && address.city` {
		t.Fatalf("unexpected source %q", e.String())
	}
}

func TestEvalNilLookup(t *testing.T) {
	t.Parallel()

	if !MustCompile("missing == null").Eval(nil) {
		t.Fatalf("expected unset fields to read as null")
	}
}
