// Package apperr carries the application error taxonomy shared by the
// saga and its coordinators. Business-rule failures (validation,
// availability, payment declines, illegal state transitions) are
// distinguished from infrastructure faults so callers can decide what
// is retriable and what must be surfaced as-is.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAvailability
	KindPayment
	KindState
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAvailability:
		return "availability"
	case KindPayment:
		return "payment"
	case KindState:
		return "state"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error

	// Unavailable lists product ids for availability errors.
	Unavailable []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Unavailable) > 0 {
		fmt.Fprintf(&b, ": unavailable [%s]", strings.Join(e.Unavailable, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func Availability(op string, unavailable []string) *Error {
	return &Error{Kind: KindAvailability, Op: op, Msg: "insufficient stock", Unavailable: unavailable}
}

func Payment(op, msg string) *Error {
	return &Error{Kind: KindPayment, Op: op, Msg: msg}
}

func State(op, msg string) *Error {
	return &Error{Kind: KindState, Op: op, Msg: msg}
}

func Dependency(op string, err error) *Error {
	return &Error{Kind: KindDependency, Op: op, Err: err}
}

// KindOf reports the taxonomy kind of err, or KindUnknown when err does
// not wrap an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
