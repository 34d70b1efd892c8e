package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/prompt"
	"github.com/goliatone/go-formflow/pkg/rx"
)

const contactSchema = "../../pkg/schema/testdata/contact.json"

type scriptedDriver struct {
	inputs []string
	pos    int
	infos  []string
}

func (d *scriptedDriver) next() (string, error) {
	if d.pos >= len(d.inputs) {
		return "", errors.New("no input scripted")
	}
	val := d.inputs[d.pos]
	d.pos++
	return val, nil
}

func (d *scriptedDriver) Input(context.Context, prompt.TextQuestion) (string, error) { return d.next() }
func (d *scriptedDriver) Password(context.Context, prompt.TextQuestion) (string, error) {
	return d.next()
}
func (d *scriptedDriver) TextArea(context.Context, prompt.TextQuestion) (string, error) {
	return d.next()
}
func (d *scriptedDriver) Confirm(context.Context, prompt.ConfirmQuestion) (bool, error) {
	answer, err := d.next()
	return answer == "y", err
}
func (d *scriptedDriver) Select(context.Context, prompt.ChoiceQuestion) (int, error) {
	return 0, errors.New("no select scripted")
}
func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func runCLI(t *testing.T, driver prompt.Driver, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, driver, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var value map[string]any
	if err := json.Unmarshal([]byte(out), &value); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	return value
}

func TestRunFillsForm(t *testing.T) {
	driver := &scriptedDriver{inputs: []string{"Ada", "17", "36"}}
	code, stdout, stderr := runCLI(t, driver, "--schema", contactSchema)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	want := map[string]any{"name": "Ada", "age": float64(36)}
	if diff := cmp.Diff(want, decode(t, stdout)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Age must be at least 18"}, driver.infos); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRunReportsInvalidValues(t *testing.T) {
	code, stdout, stderr := runCLI(t, nil,
		"--schema", contactSchema,
		"--values", "testdata/values.yaml",
		"--config", "testdata/formflow.yaml",
		"--no-input",
	)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if diff := cmp.Diff(map[string]any{"name": nil, "age": float64(16)}, decode(t, stdout)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	want := []string{
		"age: Age must be 18 or older",
		"name: Name: please fill this in",
	}
	if diff := cmp.Diff(want, strings.Split(strings.TrimSpace(stderr), "\n")); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBuildsOpenAPIOperation(t *testing.T) {
	driver := &scriptedDriver{inputs: []string{"<b>hi</b>  "}}
	code, stdout, stderr := runCLI(t, driver,
		"--schema", "../../pkg/openapi/testdata/accounts.json",
		"--operation", "put:/accounts/{id}/notes",
	)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if diff := cmp.Diff(map[string]any{"body": "<b>hi</b>"}, decode(t, stdout)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRunPrintsLintIssues(t *testing.T) {
	code, _, stderr := runCLI(t, nil, "--schema", "testdata/broken.yaml")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "testdata/broken.yaml: tags -> array has no item") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRunRequiresSchema(t *testing.T) {
	if code, _, _ := runCLI(t, nil); code != 2 {
		t.Fatalf("expected usage exit 2, got %d", code)
	}
}

// slowLookup answers after delay, or never when delay is zero.
func slowLookup(delay time.Duration) form.AsyncValidator {
	return func(_ context.Context, v form.View) rx.Observable[form.Errors] {
		name, _ := v.Value().(string)
		return rx.FromFunc(func(ctx context.Context) (form.Errors, error) {
			var answered <-chan time.Time
			if delay > 0 {
				answered = time.After(delay)
			}
			select {
			case <-answered:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if name == "taken" {
				return form.Errors{"usernameTaken": true}, nil
			}
			return nil, nil
		})
	}
}

func TestAwaitWaitsForAsyncValidation(t *testing.T) {
	tests := []struct {
		name        string
		delay       time.Duration
		wait        time.Duration
		value       string
		wantPending []string
		wantStatus  form.Status
	}{
		{name: "settles valid", delay: 20 * time.Millisecond, wait: 2 * time.Second, value: "free", wantStatus: form.StatusValid},
		{name: "settles invalid", delay: 20 * time.Millisecond, wait: 2 * time.Second, value: "taken", wantStatus: form.StatusInvalid},
		{name: "reports fields still pending", wait: 30 * time.Millisecond, value: "taken", wantPending: []string{"account.username"}, wantStatus: form.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			username := form.NewField("", form.WithAsyncValidators(slowLookup(tt.delay)))
			account := form.NewGroup([]form.Entry{{Name: "username", Control: username}})
			root := form.NewGroup([]form.Entry{
				{Name: "email", Control: form.NewField("ada@example.com")},
				{Name: "account", Control: account},
			})
			if err := username.SetValue(tt.value); err != nil {
				t.Fatalf("SetValue: %v", err)
			}
			if !root.Pending() {
				t.Fatalf("expected the form to be pending before await, got %s", root.Status())
			}

			pending := await(context.Background(), root, tt.wait)
			if diff := cmp.Diff(tt.wantPending, pending); diff != "" {
				t.Fatalf("pending mismatch (-want +got):\n%s", diff)
			}
			if got := root.Status(); got != tt.wantStatus {
				t.Fatalf("expected status %s, got %s", tt.wantStatus, got)
			}
		})
	}
}
