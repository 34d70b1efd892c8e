// Package prompt fills a form tree by asking questions in a terminal. Each
// answer goes through the field's validators, and the first rendered error
// message is shown before the question is asked again.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/messages"
	"github.com/goliatone/go-formflow/pkg/rx"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/widgets"
)

const defaultMaxAttempts = 5

// Option configures Fill.
type Option func(*filler)

// WithCatalog renders validation messages with catalog instead of the
// default templates.
func WithCatalog(catalog *messages.Catalog) Option {
	return func(f *filler) {
		if catalog != nil {
			f.catalog = catalog
		}
	}
}

// WithMaxAttempts bounds how often a rejected question is asked again.
func WithMaxAttempts(n int) Option {
	return func(f *filler) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithWidgets picks the question kind for each field from reg instead of
// the built-in matchers.
func WithWidgets(reg *widgets.Registry) Option {
	return func(f *filler) {
		if reg != nil {
			f.widgets = reg
		}
	}
}

type filler struct {
	driver      Driver
	catalog     *messages.Catalog
	widgets     *widgets.Registry
	maxAttempts int
	logger      *zap.Logger
}

// Fill asks for every enabled field of root in declaration order. Controls
// disabled by earlier answers are skipped. Booleans use confirm prompts,
// enumerated fields a select prompt and arrays repeat until declined. On
// return every control is marked touched.
func Fill(ctx context.Context, driver Driver, root *form.Group, opts ...Option) error {
	if ctx == nil {
		return errors.New("prompt: context is required")
	}
	if driver == nil {
		return errors.New("prompt: driver is nil")
	}
	if root == nil {
		return errors.New("prompt: form is nil")
	}

	f := &filler{
		driver:      driver,
		widgets:     widgets.NewRegistry(),
		maxAttempts: defaultMaxAttempts,
		logger:      logging.FromContext(ctx).Named("prompt"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.catalog == nil {
		catalog, err := messages.New()
		if err != nil {
			return err
		}
		f.catalog = catalog
	}

	if err := f.control(ctx, root); err != nil {
		return err
	}
	form.MarkAllAsTouched(root)
	return nil
}

func (f *filler) control(ctx context.Context, c form.Control) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil || c.Disabled() {
		return nil
	}
	switch c := c.(type) {
	case *form.Group:
		for _, name := range c.Names() {
			if err := f.control(ctx, c.Control(name)); err != nil {
				return err
			}
		}
	case *form.Array:
		return f.array(ctx, c)
	case *form.Field:
		return f.field(ctx, c)
	}
	return nil
}

func (f *filler) array(ctx context.Context, a *form.Array) error {
	for _, item := range a.Controls() {
		if err := f.control(ctx, item); err != nil {
			return err
		}
	}

	label := labelOf(a)
	for attempt := 0; ; {
		more, err := f.driver.Confirm(ctx, ConfirmQuestion{
			Message: fmt.Sprintf("Add %s entry?", label),
			Help:    a.Meta().Description,
		})
		if err != nil {
			return err
		}
		if more {
			item, err := a.PushNew()
			if errors.Is(err, form.ErrNoItemFactory) {
				return f.driver.Info(ctx, fmt.Sprintf("%s does not accept new entries", label))
			}
			if err != nil {
				return err
			}
			if err := f.control(ctx, item); err != nil {
				return err
			}
			continue
		}

		msg, invalid := f.catalog.First(a)
		if !invalid {
			return nil
		}
		attempt++
		if attempt >= f.maxAttempts {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, label)
		}
		if err := f.driver.Info(ctx, msg); err != nil {
			return err
		}
	}
}

func (f *filler) field(ctx context.Context, fd *form.Field) error {
	meta := fd.Meta()
	label := labelOf(fd)

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		value, err := f.ask(ctx, fd, meta, label)
		if err != nil {
			return err
		}
		fd.Input(value)
		fd.Blur()
		if err := Settle(ctx, fd); err != nil {
			return err
		}

		msg, invalid := f.catalog.First(fd)
		if !invalid {
			return nil
		}
		f.logger.Debug("answer rejected", zap.String("field", fd.Name()), zap.String("message", msg))
		if err := f.driver.Info(ctx, msg); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrTooManyAttempts, label)
}

func (f *filler) ask(ctx context.Context, fd *form.Field, meta form.Meta, label string) (any, error) {
	current := fd.Value()
	widget := f.widgets.ResolveOrDefault(meta)

	switch widget {
	case widgets.WidgetConfirm:
		b, _ := current.(bool)
		return f.driver.Confirm(ctx, ConfirmQuestion{Message: label, Default: b, Help: meta.Description})
	case widgets.WidgetSelect:
		if len(meta.Enum) > 0 {
			return f.choose(ctx, meta, label, current)
		}
	}

	validate := func(answer string) error {
		value, err := parse(meta.Type, answer)
		if err != nil {
			return err
		}
		return f.tryValue(fd, value)
	}
	def := ""
	if current != nil {
		def = fmt.Sprint(current)
	}

	var (
		answer string
		err    error
	)
	switch widget {
	case widgets.WidgetPassword:
		answer, err = f.driver.Password(ctx, TextQuestion{Message: label, Help: meta.Description, Check: validate})
		if err == nil && answer == "" {
			answer = def
		}
	case widgets.WidgetTextArea:
		answer, err = f.driver.TextArea(ctx, TextQuestion{Message: label, Default: def, Help: meta.Description, Check: validate})
	default:
		answer, err = f.driver.Input(ctx, TextQuestion{Message: label, Default: def, Help: meta.Description, Check: validate})
	}
	if err != nil {
		return nil, err
	}
	value, err := parse(meta.Type, answer)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (f *filler) choose(ctx context.Context, meta form.Meta, label string, current any) (any, error) {
	options := make([]string, len(meta.Enum))
	selected := 0
	for i, option := range meta.Enum {
		options[i] = fmt.Sprint(option)
		if current != nil && options[i] == fmt.Sprint(current) {
			selected = i
		}
	}
	idx, err := f.driver.Select(ctx, ChoiceQuestion{
		Message:  label,
		Options:  options,
		Selected: selected,
		Help:     meta.Description,
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(meta.Enum) {
		return nil, fmt.Errorf("prompt: %s: selection %d out of range", label, idx)
	}
	return meta.Enum[idx], nil
}

// tryValue runs the field's validators against value without notifying
// observers. The answer is committed afterwards through Input.
func (f *filler) tryValue(fd *form.Field, value any) error {
	if err := fd.SetValue(value, form.Silent(), form.OnlySelf()); err != nil {
		return err
	}
	if msg, invalid := f.catalog.First(fd); invalid {
		return errors.New(msg)
	}
	return nil
}

// Settle waits until c has no async validation in flight. It returns ctx.Err()
// when ctx ends first.
func Settle(ctx context.Context, c form.Control) error {
	if !c.Pending() {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{}, 1)
	sub := rx.Subscribe(ctx, c.StatusChanges(), rx.Observer[form.Status]{
		Next: func(status form.Status) {
			if status != form.StatusPending {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		},
	})
	defer sub.Dispose()

	if !c.Pending() {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parse(fieldType, answer string) (any, error) {
	trimmed := strings.TrimSpace(answer)
	switch schema.FieldType(fieldType) {
	case schema.FieldTypeInteger:
		if trimmed == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%q is not a whole number", trimmed)
		}
		return n, nil
	case schema.FieldTypeNumber:
		if trimmed == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", trimmed)
		}
		return n, nil
	default:
		return answer, nil
	}
}

func labelOf(c form.Control) string {
	if label := c.Meta().Label; label != "" {
		return label
	}
	return schema.Humanize(c.Name())
}
