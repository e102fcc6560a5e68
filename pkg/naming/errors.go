package naming

import (
	"errors"
	"fmt"
)

var (
	// ErrReferenceBuild is wrapped by every fatal lineage error.
	ErrReferenceBuild = errors.New("unable to build references")
	// ErrUnknownName is returned when parsing an enum name that has no value.
	ErrUnknownName = errors.New("unknown name")
	// ErrNoSubshape is returned when a sub-shape does not belong to a shape.
	ErrNoSubshape = errors.New("no such sub-shape")
)

// ReferenceError is a fatal lineage failure. It carries the offending
// Reference when one is known.
type ReferenceError struct {
	Msg string
	Ref Reference
}

func (e *ReferenceError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrReferenceBuild, e.Msg)
	if e.Ref.IsValid() {
		msg += fmt.Sprintf(" due to reference %s: %s", e.Ref.HashString(), e.Ref)
	}
	return msg
}

func (e *ReferenceError) Unwrap() error { return ErrReferenceBuild }

func faultyData(format string, args ...any) *ReferenceError {
	return &ReferenceError{Msg: "faulty data: " + fmt.Sprintf(format, args...)}
}
