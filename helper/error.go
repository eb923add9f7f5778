package helper

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Error wraps an error with a trace of where it happened
type Error struct {
	Original error
	Trace    []string
}

// NewError wraps err with a trace entry. Wrapping an existing *Error
// prepends to its trace instead of nesting.
func NewError(trace string, err error) error {
	if err == nil {
		return nil
	}

	entry := trace
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			name = name[strings.LastIndex(name, "/")+1:]
			entry = fmt.Sprintf("%s: %s", name, trace)
		}
	}

	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Original: e.Original,
			Trace:    append([]string{entry}, e.Trace...),
		}
	}
	return &Error{
		Original: err,
		Trace:    []string{entry},
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", strings.Join(e.Trace, " > "), e.Original)
}

// Unwrap returns the original error so errors.Is keeps working
func (e *Error) Unwrap() error {
	return e.Original
}
