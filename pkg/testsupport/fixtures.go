// Package testsupport holds fixture and golden-file helpers shared by the
// package tests and the command tests.
package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// UpdateEnv enables rewriting golden files instead of comparing them.
const UpdateEnv = "UPDATE_GOLDENS"

// MustLoadForm reads a YAML or JSON schema fixture.
func MustLoadForm(t *testing.T, path string) schema.Form {
	t.Helper()

	def, err := schema.LoadFile(path)
	if err != nil {
		t.Fatalf("load form %s: %v", path, err)
	}
	return def
}

// MustBuildForm loads a schema fixture and builds it with the default
// registry. Subscriptions created by conditional rules end with the test.
func MustBuildForm(t *testing.T, path string) *form.Group {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	root, err := form.Build(ctx, MustLoadForm(t, path), form.NewRegistry())
	if err != nil {
		t.Fatalf("build form %s: %v", path, err)
	}
	return root
}

// ControlState is the observable state of one control, as captured by
// Snapshot.
type ControlState struct {
	Status  string         `json:"status"`
	Value   any            `json:"value,omitempty"`
	Errors  map[string]any `json:"errors,omitempty"`
	Dirty   bool           `json:"dirty,omitempty"`
	Touched bool           `json:"touched,omitempty"`
}

// Snapshot captures the state of root and its descendants keyed by dotted
// path. The root is stored under ".".
func Snapshot(root form.Control) map[string]ControlState {
	out := make(map[string]ControlState)
	form.Walk(root, func(path string, c form.Control) bool {
		if path == "" {
			path = "."
		}
		state := ControlState{
			Status:  string(c.Status()),
			Value:   c.Value(),
			Dirty:   c.Dirty(),
			Touched: c.Touched(),
		}
		if errs := c.Errors(); len(errs) > 0 {
			state.Errors = map[string]any(errs)
		}
		out[path] = state
		return true
	})
	return out
}

// AssertGolden compares got, encoded as JSON, with the golden file at path.
// Both sides are decoded before comparing so formatting does not matter.
// With UPDATE_GOLDENS set the file is rewritten instead.
func AssertGolden(t *testing.T, path string, got any) {
	t.Helper()

	payload, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if WriteMaybeGolden(t, path, append(payload, '\n')) {
		return
	}

	var want, have any
	if err := json.Unmarshal(MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	if err := json.Unmarshal(payload, &have); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if diff := cmp.Diff(want, have); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", path, diff)
	}
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv(UpdateEnv) == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}
