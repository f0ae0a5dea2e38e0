package errs

import (
	"errors"
	"fmt"
)

/*
Errors surfaced by the storage core carry a Kind so that callers can tell a bad
configuration apart from a corrupted store. Everything wraps with %w, so the
usual errors.Is / errors.As work against the sentinels below.
*/

type Kind int

const (
	KindConfig Kind = iota + 1
	KindIntegrity
	KindRange
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindIntegrity:
		return "integrity"
	case KindRange:
		return "range"
	case KindNotFound:
		return "not found"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a storage error tagged with its kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrConfig) works
// for every configuration error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrConfig    = &Error{Kind: KindConfig}
	ErrIntegrity = &Error{Kind: KindIntegrity}
	ErrRange     = &Error{Kind: KindRange}
	ErrNotFound  = &Error{Kind: KindNotFound}
)

func newError(kind Kind, op string, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Config reports a fatal configuration or format error.
func Config(op string, format string, args ...interface{}) error {
	return newError(KindConfig, op, format, args...)
}

// Integrity reports corrupted or inconsistent on-disk state.
func Integrity(op string, format string, args ...interface{}) error {
	return newError(KindIntegrity, op, format, args...)
}

// Range reports a value outside what an encoding can represent.
func Range(op string, format string, args ...interface{}) error {
	return newError(KindRange, op, format, args...)
}

func NotFound(op string, format string, args ...interface{}) error {
	return newError(KindNotFound, op, format, args...)
}

func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

func IsRange(err error) bool {
	return errors.Is(err, ErrRange)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// KindOf returns the kind of the first *Error in the chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
