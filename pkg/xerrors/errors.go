package xerrors

import (
	"errors"
	"fmt"
)

// LogicError reports a violated precondition: a fatal, non-recoverable
// condition the caller must never trigger — writing to a frozen node,
// mismatched node heights, nesting an ANode inside another ANode, closing a
// Builder whose annotated root could not be pushed down when an annotated
// root is disallowed. The core never recovers from a LogicError; it panics
// with one and lets the panic propagate.
type LogicError struct{ msg string }

// NewLogicError constructs a LogicError with a formatted message.
func NewLogicError(format string, args ...any) *LogicError {
	return &LogicError{msg: fmt.Sprintf(format, args...)}
}

func (e *LogicError) Error() string { return "logic error: " + e.msg }

// InvariantViolation reports an internal consistency check that failed:
// a balance predicate violated after an operation that should have
// restored it, or cumulative-size bookkeeping that disagrees with a node's
// actual children. These should be unreachable in a correct implementation;
// they are raised unconditionally, in normal and debug builds alike, so a
// regression fails loudly instead of corrupting a tree silently
// (internal/debug.Assert adds further checks, in debug builds only).
type InvariantViolation struct{ msg string }

// NewInvariantViolation constructs an InvariantViolation with a formatted
// message.
func NewInvariantViolation(format string, args ...any) *InvariantViolation {
	return &InvariantViolation{msg: fmt.Sprintf(format, args...)}
}

func (e *InvariantViolation) Error() string { return "invariant violation: " + e.msg }

// ErrFull is returned by ANode's compaction path when two adjacent overlays
// could not be fused to free a slot. Unlike LogicError and
// InvariantViolation this is not fatal. Builder does not branch on it: it
// pushes every ANode operand down to a plain tree before joining.
var ErrFull = errors.New("xerrors: node is full")
