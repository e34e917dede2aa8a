package schema

import "errors"

var (
	// ErrServiceNotFound indicates the store service executable is absent.
	ErrServiceNotFound = errors.New("store service not found")
	// ErrTimeout indicates a store command exceeded its time bound.
	ErrTimeout = errors.New("store command timed out")
	// ErrService indicates the store service exited non-zero or wrote to stderr.
	ErrService = errors.New("store service error")
	// ErrTransport indicates any other failure invoking the store service.
	ErrTransport = errors.New("store transport error")
	// ErrValidation indicates a request was rejected before reaching the store.
	ErrValidation = errors.New("validation error")
	// ErrEmptyTerm indicates an empty search or replace term where one is required.
	ErrEmptyTerm = fmtValidation("empty term")
	// ErrInvalidFilename indicates a filename that cannot be expressed in the command grammar.
	ErrInvalidFilename = fmtValidation("invalid filename")
	// ErrInvalidUTF8 indicates opened file content that is not valid UTF-8.
	ErrInvalidUTF8 = fmtValidation("content is not valid utf-8")
	// ErrInvalidEdit indicates an edit outside the buffer bounds.
	ErrInvalidEdit = fmtValidation("invalid edit")
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrNoActiveTab indicates an operation needed an active tab and there is none.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrInvalidCommand indicates a malformed protocol or console command.
	ErrInvalidCommand = errors.New("invalid command")
)

type validationError struct {
	msg string
}

func fmtValidation(msg string) error {
	return &validationError{msg: msg}
}

func (e *validationError) Error() string {
	return e.msg
}

func (e *validationError) Is(target error) bool {
	return target == ErrValidation
}
