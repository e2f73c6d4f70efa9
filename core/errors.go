package core

import "github.com/pkg/errors"

// FieldError ties a validation failure to a single input field; the
// API layer renders these under data.fields.
type FieldError struct {
	Field string
	Error string
}

// ValidationError marks input the caller can correct, either free-form
// (enrollment already exists, quiz not published) or per-field. The
// transport layer maps it to a 400 instead of a 500.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Unwrap exposes the underlying sentinel so errors.Is sees through the
// validation wrapper.
func (err *ValidationError) Unwrap() error { return err.Err }

// shutdown signals a failure the process cannot recover from; the
// server's error handler initiates a graceful stop when it sees one.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string { return s.message }

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
