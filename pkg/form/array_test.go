package form_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
)

func lineItem(sku string) form.Control {
	return form.NewGroup([]form.Entry{
		{Name: "sku", Control: form.NewField(sku, form.WithValidators(form.Required))},
		{Name: "qty", Control: form.NewField(1, form.WithValidators(form.Min(1)))},
	})
}

func TestArray_StructuralMutations(t *testing.T) {
	items := form.NewArray([]form.Control{form.NewField("a"), form.NewField("b")})
	values := collect(t, items.ValueChanges())

	items.Push(form.NewField("c"))
	if err := items.Insert(0, form.NewField("z")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if diff := cmp.Diff([]any{"z", "a", "b", "c"}, items.Value()); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}

	if err := items.Move(0, 3); err != nil {
		t.Fatalf("move: %v", err)
	}
	if diff := cmp.Diff([]any{"a", "b", "c", "z"}, items.Value()); diff != "" {
		t.Fatalf("value after move mismatch (-want +got):\n%s", diff)
	}
	if items.At(3).Name() != "3" || items.Get("3").Value() != "z" {
		t.Fatalf("items must be renamed after their index")
	}

	if err := items.RemoveAt(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := cmp.Diff([]any{"a", "c", "z"}, items.Value()); diff != "" {
		t.Fatalf("value after remove mismatch (-want +got):\n%s", diff)
	}

	if err := items.RemoveAt(5); !errors.Is(err, form.ErrIndexRange) {
		t.Fatalf("expected ErrIndexRange, got %v", err)
	}
	if err := items.Move(0, 9); !errors.Is(err, form.ErrIndexRange) {
		t.Fatalf("expected ErrIndexRange, got %v", err)
	}

	items.Clear()
	if items.Len() != 0 {
		t.Fatalf("expected empty array, got %d", items.Len())
	}
	if got := len(values.all()); got != 5 {
		t.Fatalf("expected one notification per mutation, got %d", got)
	}
}

func TestArray_StatusFollowsItems(t *testing.T) {
	items := form.NewArray([]form.Control{lineItem("A-1")})
	if items.Status() != form.StatusValid {
		t.Fatalf("expected VALID, got %s", items.Status())
	}

	bad := lineItem("")
	items.Push(bad)
	if items.Status() != form.StatusInvalid {
		t.Fatalf("expected INVALID, got %s", items.Status())
	}
	if !items.Get("1.sku").HasError("required") {
		t.Fatalf("expected required on items.1.sku")
	}

	bad.Disable()
	if items.Status() != form.StatusValid {
		t.Fatalf("disabled item must not count, got %s", items.Status())
	}
	if got := len(items.Value().([]any)); got != 1 {
		t.Fatalf("disabled item must be left out of the value, got %d items", got)
	}
}

func TestArray_SetValueNeedsMatchingLength(t *testing.T) {
	items := form.NewArray([]form.Control{form.NewField("a")})
	if err := items.SetValue([]any{"a", "b"}); !errors.Is(err, form.ErrValueShape) {
		t.Fatalf("expected ErrValueShape, got %v", err)
	}
	if err := items.PatchValue([]string{"x", "y"}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if diff := cmp.Diff([]any{"x"}, items.Value()); diff != "" {
		t.Fatalf("patch writes existing items only (-want +got):\n%s", diff)
	}
}

func TestArray_FactoryResizes(t *testing.T) {
	items := form.NewArray(nil, form.WithItemFactory(func() form.Control { return lineItem("") }))

	err := items.SetValue([]any{
		map[string]any{"sku": "A", "qty": 2},
		map[string]any{"sku": "B", "qty": 0},
	})
	if err != nil {
		t.Fatalf("set value: %v", err)
	}
	if items.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", items.Len())
	}
	if !items.Get("1.qty").HasError("min") {
		t.Fatalf("expected min error on items.1.qty, got %#v", items.Get("1.qty").Errors())
	}

	_ = items.SetValue([]any{map[string]any{"sku": "C", "qty": 3}})
	if items.Len() != 1 || items.Status() != form.StatusValid {
		t.Fatalf("expected a single valid item, got len=%d status=%s", items.Len(), items.Status())
	}

	added, err := items.PushNew()
	if err != nil {
		t.Fatalf("push new: %v", err)
	}
	if added.Parent() != form.Control(items) {
		t.Fatalf("new item must be attached")
	}
	if _, err := form.NewArray(nil).PushNew(); !errors.Is(err, form.ErrNoItemFactory) {
		t.Fatalf("expected ErrNoItemFactory, got %v", err)
	}
}

func TestArray_SetValueRejectsBadGrowthUntouched(t *testing.T) {
	items := form.NewArray([]form.Control{lineItem("keep")},
		form.WithItemFactory(func() form.Control { return lineItem("") }),
	)
	values := collect(t, items.ValueChanges())
	before := items.Value()

	cases := []struct {
		name  string
		value []any
	}{
		{name: "scalar for group", value: []any{map[string]any{"sku": "A", "qty": 2}, "not-a-map"}},
		{name: "missing field", value: []any{map[string]any{"sku": "A", "qty": 2}, map[string]any{"sku": "B"}}},
		{name: "unknown field", value: []any{map[string]any{"sku": "A", "qty": 2}, map[string]any{"sku": "B", "qty": 1, "color": "red"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := items.SetValue(tc.value)
			if err == nil {
				t.Fatalf("expected shape error")
			}
			if items.Len() != 1 {
				t.Fatalf("array must keep its length, got %d", items.Len())
			}
			if diff := cmp.Diff(before, items.Value()); diff != "" {
				t.Fatalf("value must be unchanged (-want +got):\n%s", diff)
			}
		})
	}
	if got := len(values.all()); got != 0 {
		t.Fatalf("rejected writes must not notify, got %d", got)
	}
}

func TestArray_NestedPaths(t *testing.T) {
	order := form.NewGroup([]form.Entry{
		{Name: "items", Control: form.NewArray([]form.Control{lineItem("A"), lineItem("B")})},
	})
	sku := order.Get("items.1.sku")
	if sku == nil || sku.Value() != "B" {
		t.Fatalf("expected items.1.sku to resolve, got %#v", sku)
	}
	if sku.Root() != form.Control(order) {
		t.Fatalf("root must be the outer group")
	}
	if order.Get("items.x") != nil || order.Get("items.7.sku") != nil {
		t.Fatalf("bad indexes must resolve to nil")
	}
}
