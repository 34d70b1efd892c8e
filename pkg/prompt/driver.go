package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// TextQuestion asks for free text. Check, when set, rejects an answer before
// the prompt returns so the user can correct it in place.
type TextQuestion struct {
	Message string
	Default string
	Help    string
	Check   func(string) error
}

// ConfirmQuestion asks a yes/no question.
type ConfirmQuestion struct {
	Message string
	Default bool
	Help    string
}

// ChoiceQuestion asks the user to pick one of Options. Select returns the
// index of the picked option.
type ChoiceQuestion struct {
	Message  string
	Options  []string
	Selected int
	Help     string
	PageSize int
}

// Driver asks questions on behalf of Fill.
type Driver interface {
	Input(ctx context.Context, q TextQuestion) (string, error)
	Password(ctx context.Context, q TextQuestion) (string, error)
	TextArea(ctx context.Context, q TextQuestion) (string, error)
	Confirm(ctx context.Context, q ConfirmQuestion) (bool, error)
	Select(ctx context.Context, q ChoiceQuestion) (int, error)
	Info(ctx context.Context, msg string) error
}

// NewSurveyDriver returns a terminal Driver. Info lines go to out, stdout
// when nil.
func NewSurveyDriver(out io.Writer) Driver {
	if out == nil {
		out = os.Stdout
	}
	return surveyDriver{out: out}
}

type surveyDriver struct {
	out io.Writer
}

func (d surveyDriver) Input(ctx context.Context, q TextQuestion) (string, error) {
	return askOne[string](ctx, &survey.Input{Message: q.Message, Default: q.Default, Help: q.Help}, q.Check)
}

func (d surveyDriver) Password(ctx context.Context, q TextQuestion) (string, error) {
	return askOne[string](ctx, &survey.Password{Message: q.Message, Help: q.Help}, q.Check)
}

func (d surveyDriver) TextArea(ctx context.Context, q TextQuestion) (string, error) {
	return askOne[string](ctx, &survey.Multiline{Message: q.Message, Default: q.Default, Help: q.Help}, q.Check)
}

func (d surveyDriver) Confirm(ctx context.Context, q ConfirmQuestion) (bool, error) {
	return askOne[bool](ctx, &survey.Confirm{Message: q.Message, Default: q.Default, Help: q.Help}, nil)
}

// Select answers into an int, which survey fills with the option index.
func (d surveyDriver) Select(ctx context.Context, q ChoiceQuestion) (int, error) {
	sel := &survey.Select{Message: q.Message, Options: q.Options, Help: q.Help}
	if q.PageSize > 0 {
		sel.PageSize = q.PageSize
	}
	if q.Selected >= 0 && q.Selected < len(q.Options) {
		sel.Default = q.Options[q.Selected]
	}
	return askOne[int](ctx, sel, nil)
}

func (d surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(d.out, "! %s\n", msg)
	return err
}

func askOne[T any](ctx context.Context, p survey.Prompt, check func(string) error) (T, error) {
	var answer T
	if err := ctx.Err(); err != nil {
		return answer, err
	}
	var opts []survey.AskOpt
	if check != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			text, _ := ans.(string)
			return check(text)
		}))
	}
	if err := survey.AskOne(p, &answer, opts...); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return answer, ErrAborted
		}
		return answer, err
	}
	return answer, nil
}
