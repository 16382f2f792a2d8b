package constants

import (
	"errors"
	"fmt"
	"net/http"
)

type CodedError struct {
	err  error
	code int
}

func NewCodedError(msg string, code int) *CodedError {
	return &CodedError{err: errors.New(msg), code: code}
}

func (e *CodedError) Error() string {
	return e.err.Error()
}

func (e *CodedError) Code() int {
	return e.code
}

func (e *CodedError) Unwrap() error {
	return e.err
}

var (
	ErrDBNotFound        = NewCodedError("not found", http.StatusNotFound)
	ErrCountryNotFound   = NewCodedError("no such country", http.StatusNotFound)
	ErrUnauthorized      = NewCodedError("unauthorized", http.StatusUnauthorized)
	ErrMissingAuthCookie = NewCodedError("missing auth cookie", http.StatusUnauthorized)
	ErrBadRequest        = NewCodedError("bad request", http.StatusBadRequest)

	// ErrTransactionFailure marks a rolled back write transaction.
	ErrTransactionFailure = errors.New("transaction failed")
)

// ConfigurationError is raised at bake time when a reference (migration, program,
// country) cannot be resolved. It is fatal to the current bake batch.
type ConfigurationError struct {
	Kind string
	// Key names the attribute Ref refers to; "id" when empty.
	Key  string
	Ref  string
	Hint string
}

func (e *ConfigurationError) Error() string {
	key := e.Key
	if key == "" {
		key = "id"
	}
	msg := fmt.Sprintf("no %s with %s '%s'", e.Kind, key, e.Ref)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
