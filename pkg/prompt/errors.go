package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrTooManyAttempts is returned when a scripted driver keeps answering
	// with values the field rejects.
	ErrTooManyAttempts = errors.New("prompt: too many invalid answers")
)
