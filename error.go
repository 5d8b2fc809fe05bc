package nexus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage failure causes. Stage errors wrap one of these so callers can match
// with errors.Is without parsing messages.
var (
	ErrUnknownFormat    = errors.New("unknown data format")
	ErrNoReadings       = errors.New("no readings")
	ErrMalformedReading = errors.New("malformed reading")
	ErrEmptyCSV         = errors.New("no csv lines")
	ErrMissingField     = errors.New("missing field")
	ErrNotNumeric       = errors.New("not numeric")
	ErrNotRecord        = errors.New("input is not a record")
	ErrNotTransformed   = errors.New("record has not been transformed")
	ErrUnknownRecord    = errors.New("unknown record format")
	ErrUnexpectedInput  = errors.New("unexpected input type")
)

// FormatError reports raw input that InputStage cannot classify or parse.
type FormatError struct {
	Err    error
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return "format error: " + e.Err.Error()
	}
	return fmt.Sprintf("format error: %v: %s", e.Err, e.Detail)
}

func (e *FormatError) Unwrap() error { return e.Err }

// TransformError reports a record that lacks the field its format requires,
// or whose field cannot be coerced.
type TransformError struct {
	Err    error
	Format Format
	Field  string
}

func (e *TransformError) Error() string {
	switch {
	case e.Format == "":
		return "transform error: " + e.Err.Error()
	case e.Field == "":
		return fmt.Sprintf("transform error: %s record: %v", e.Format, e.Err)
	default:
		return fmt.Sprintf("transform error: %s record field %q: %v", e.Format, e.Field, e.Err)
	}
}

func (e *TransformError) Unwrap() error { return e.Err }

// OutputError reports any failure while rendering a record. Every render
// failure collapses into this one kind; the cause is kept for logs only.
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string {
	return "output error: " + e.Err.Error()
}

func (e *OutputError) Unwrap() error { return e.Err }

// Error describes a failed pipeline run: where it failed, the value the
// failing stage received and how long the run had taken.
//
// Path lists the pipeline name followed by the stage name. When pipelines
// nest, outer pipeline names are prepended.
type Error struct {
	Timestamp time.Time
	InputData any
	Err       error
	Path      []Name
	Duration  time.Duration
	Timeout   bool
	Canceled  bool
	Panicked  bool
}

func (e *Error) Error() string {
	path := strings.Join(e.Path, " -> ")
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s timed out after %v: %v", path, e.Duration, e.Err)
	case e.Canceled:
		return fmt.Sprintf("%s canceled after %v: %v", path, e.Duration, e.Err)
	default:
		return fmt.Sprintf("%s failed after %v: %v", path, e.Duration, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether the run stopped on a deadline.
func (e *Error) IsTimeout() bool {
	return e.Timeout || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled reports whether the run stopped on cancellation.
func (e *Error) IsCanceled() bool {
	return e.Canceled || errors.Is(e.Err, context.Canceled)
}

// panicError carries a recovered panic value.
type panicError struct {
	value any
	stage Name
}

func (p *panicError) Error() string {
	return fmt.Sprintf("stage %q panicked: %v", p.stage, p.value)
}

// recoverFromPanic converts a panic inside a stage into an error so a single
// bad stage cannot take the process down. Use with defer and named results.
func recoverFromPanic(result *any, err *error, stage Name, input any) {
	if r := recover(); r != nil {
		*result = input
		*err = &panicError{stage: stage, value: r}
	}
}
