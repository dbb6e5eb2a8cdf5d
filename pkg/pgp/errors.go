package pgp

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindShortRead means the source ended inside a declared field. The
	// stream position is lost and the session stops.
	KindShortRead Kind = "ShortRead"
	// KindStructural means a declared length disagrees with the content.
	// The decoder skips to the next packet boundary.
	KindStructural Kind = "StructuralViolation"
	// KindCapacity means a bounded scratch structure had no room.
	KindCapacity Kind = "CapacityExceeded"
	// KindUnsupported means an algorithm, S2K or sub-packet type is unknown.
	// The field is kept as raw bytes.
	KindUnsupported Kind = "UnsupportedVariant"
)

// Error is the decoder's structured error. Offset is the stream offset of the
// packet being decoded when the error was raised.
type Error struct {
	Kind    Kind
	Offset  int64
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("pgp: %s: %v", e.Message, e.Cause)
	}
	return "pgp: " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the kind of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if !stderrors.As(err, &e) {
		return ""
	}
	return e.Kind
}

func shortRead(cause error, format string, args ...interface{}) error {
	if cause == io.EOF {
		cause = io.ErrUnexpectedEOF
	}
	return &Error{Kind: KindShortRead, Message: fmt.Sprintf(format, args...), Cause: errors.WithStack(cause)}
}

func structural(format string, args ...interface{}) error {
	return &Error{Kind: KindStructural, Message: fmt.Sprintf(format, args...)}
}

func unsupported(format string, args ...interface{}) error {
	return &Error{Kind: KindUnsupported, Message: fmt.Sprintf(format, args...)}
}

func capacity(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindCapacity, Message: fmt.Sprintf(format, args...), Cause: errors.WithStack(cause)}
}

// atOffset stamps the packet offset onto err if it is an *Error without one.
func atOffset(err error, off int64) error {
	var e *Error
	if stderrors.As(err, &e) && e.Offset == 0 {
		e.Offset = off
	}
	return err
}

// fatal reports whether err ends the decoding session.
func fatal(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindStructural, KindUnsupported, KindCapacity:
		return false
	}
	return true
}
