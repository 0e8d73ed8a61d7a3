package construct

import (
	"errors"
	"fmt"
)

// The closed error taxonomy. Every failure raised by the engine carries
// exactly one of these kinds; combinators extend the path on the way out
// but never replace the kind.
var (
	// ErrStream indicates the stream returned fewer bytes than requested,
	// or lacks a capability (seek/tell) that the specific construct requires.
	ErrStream = errors.New("construct: stream error")

	// ErrFormatField indicates a fixed-format leaf could not encode or
	// decode the given value or bytes.
	ErrFormatField = errors.New("construct: format field error")

	// ErrString indicates a byte/text type mismatch on a type-strict
	// string construct.
	ErrString = errors.New("construct: string error")

	// ErrInteger indicates an integral value outside the representable
	// range of its declared width and signedness.
	ErrInteger = errors.New("construct: integer out of range")

	// ErrRepeat indicates a repetition constraint violation, e.g. building
	// a fixed-count array from a sequence of the wrong length.
	ErrRepeat = errors.New("construct: repeat error")

	// ErrIndexField wraps an error raised by a repetition element, with
	// the failing index appended to the path.
	ErrIndexField = errors.New("construct: error inside repeated element")

	// ErrCheck indicates a user-declared validation predicate returned false.
	ErrCheck = errors.New("construct: validation failed")

	// ErrNamedTuple indicates a structured result could not be assembled
	// from the produced fields, e.g. an embedding key collision.
	ErrNamedTuple = errors.New("construct: field name conflict")

	// ErrRawCopy indicates a raw-copy wrapper could not complete its
	// byte-window bookkeeping because the surrounding construct failed.
	ErrRawCopy = errors.New("construct: raw copy unavailable")

	// ErrMissingField indicates a struct/sequence build was not given a
	// required named entry.
	ErrMissingField = errors.New("construct: missing field")

	// ErrSwitch indicates no case matched and no default was provided.
	ErrSwitch = errors.New("construct: no matching case")

	// ErrSizeof indicates the size depends on data not known from the
	// given context.
	ErrSizeof = errors.New("construct: size not determinable")

	// ErrArgument indicates an argument-domain failure, e.g. a derived
	// count that evaluated to a negative number.
	ErrArgument = errors.New("construct: argument out of domain")

	// ErrConst indicates parsed bytes did not match a declared constant.
	ErrConst = errors.New("construct: constant mismatch")

	// ErrPadding indicates strict padding did not match its pattern.
	ErrPadding = errors.New("construct: padding mismatch")

	// ErrTerminator indicates data remained where end-of-stream was asserted.
	ErrTerminator = errors.New("construct: expected end of stream")
)

// Error is the failure record produced by every construct. It pairs a
// taxonomy kind with the path from the schema root to the failing node,
// a human message, and the underlying cause when one exists. Records are
// never mutated once raised; propagation wraps them with extra path
// segments via withPath.
type Error struct {
	Kind  error
	Path  Path
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%v at %s: %s", e.Kind, e.Path, e.Msg)
}

// Unwrap exposes both the taxonomy kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// newError creates a fresh error record with an empty path.
func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrapError records a cause underneath a fresh kind, preserving the
// cause's path so the deepest location survives.
func wrapError(kind error, cause error, format string, args ...any) *Error {
	e := &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
	var inner *Error
	if errors.As(cause, &inner) {
		e.Path = inner.Path
	}
	return e
}

// withPath returns err with seg prepended to its path. Errors raised
// outside the taxonomy (e.g. by user callbacks) are promoted to a record
// so the path is never lost; the kind of taxonomy errors is untouched.
func withPath(err error, seg Segment) error {
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: ErrCheck, Path: Path{seg}, Msg: err.Error(), Cause: err}
	}
	return &Error{Kind: e.Kind, Path: e.Path.prepend(seg), Msg: e.Msg, Cause: e.Cause}
}

// withIndexPath wraps an element failure in ErrIndexField with the
// failing index on the path, keeping the original error reachable
// through errors.Is.
func withIndexPath(err error, index int) error {
	seg := IndexSegment(index)
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: ErrIndexField, Path: Path{seg}, Msg: err.Error(), Cause: err}
	}
	return &Error{Kind: ErrIndexField, Path: e.Path.prepend(seg), Msg: e.Msg, Cause: err}
}
