package xray

import "fmt"

// InputError means book markup cannot be used: it does not parse or a
// structurally required position is broken. Processing of the book must stop
// and nothing should be written for it.
type InputError struct {
	What string
	Err  error
}

func (e *InputError) Error() string {
	if e.Err == nil {
		return "bad book markup: " + e.What
	}
	return fmt.Sprintf("bad book markup: %s: %v", e.What, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func inputError(err error, format string, args ...any) error {
	return &InputError{What: fmt.Sprintf(format, args...), Err: err}
}
