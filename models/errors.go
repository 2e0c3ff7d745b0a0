package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Auth, Validation and Persistence
// fail the request; the other kinds are absorbed where they happen.
type ErrorKind string

const (
	KindAuth             ErrorKind = "UNAUTHENTICATED"
	KindValidation       ErrorKind = "INVALID_ARGUMENT"
	KindExtractionParse  ErrorKind = "EXTRACTION_PARSE"
	KindEntityValidation ErrorKind = "ENTITY_VALIDATION"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindPersistence      ErrorKind = "PERSISTENCE"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("revision conflict")
)

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an Error whose cause is a formatted message.
func Errorf(kind ErrorKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
